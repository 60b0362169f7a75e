package coachrepo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/ai-fitcoach/internal/domain/coach"
)

func TestMemoryRepositoryNutritionUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, ok, err := repo.LatestNutrition(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.UpsertNutrition(ctx, coach.NutritionRecord{ID: uuid.New(), UserID: "u1", Nutrition: coach.Nutrition{Calories: 2000}}))
	require.NoError(t, repo.UpsertNutrition(ctx, coach.NutritionRecord{ID: uuid.New(), UserID: "u1", Nutrition: coach.Nutrition{Calories: 2500}}))

	rec, ok, err := repo.LatestNutrition(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2500, rec.Nutrition.Calories)
}

func TestMemoryRepositoryReplacePlan(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	days := []coach.DayEntry{{Day: 1, WorkoutType: "run"}}

	require.NoError(t, repo.ReplacePlan(ctx, coach.PlanRecord{UserID: "u1", Days: days}))
	days[0].WorkoutType = "mutated"
	require.NoError(t, repo.ReplacePlan(ctx, coach.PlanRecord{UserID: "u1", Days: []coach.DayEntry{{Day: 2, WorkoutType: "lift"}}}))

	rec, ok, err := repo.CurrentPlan(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []coach.DayEntry{{Day: 2, WorkoutType: "lift"}}, rec.Days)
}

func TestMemoryRepositoryRecentWorkoutsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.InsertWorkout(ctx, coach.WorkoutRecord{
			UserID:    "u1",
			Workout:   coach.Workout{Note: string(rune('a' + i))},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, repo.InsertWorkout(ctx, coach.WorkoutRecord{UserID: "u2", CreatedAt: base.Add(time.Hour * 10)}))

	recs, err := repo.RecentWorkouts(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "c", recs[0].Workout.Note)
	require.Equal(t, "b", recs[1].Workout.Note)
}

func TestMemoryRepositoryBodyScans(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	rec := coach.BodyScanRecord{UserID: "u1", ImagePath: "u1/a.png", Analysis: coach.BodyScan{Summary: "first"}}
	require.NoError(t, repo.UpsertBodyScan(ctx, rec))
	rec.Analysis.Summary = "second"
	require.NoError(t, repo.UpsertBodyScan(ctx, rec))

	stored, ok := repo.BodyScan("u1", "u1/a.png")
	require.True(t, ok)
	require.Equal(t, "second", stored.Analysis.Summary)

	found, err := repo.DeleteBodyScan(ctx, "u2", "u1/a.png")
	require.NoError(t, err)
	require.False(t, found)

	found, err = repo.DeleteBodyScan(ctx, "u1", "u1/a.png")
	require.NoError(t, err)
	require.True(t, found)
	_, ok = repo.BodyScan("u1", "u1/a.png")
	require.False(t, ok)
}
