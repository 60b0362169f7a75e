package coachrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/ai-fitcoach/internal/domain/coach"
)

type scanKey struct {
	userID    string
	imagePath string
}

// MemoryRepository keeps records in process memory for tests and local dev.
type MemoryRepository struct {
	mu        sync.RWMutex
	nutrition map[string]coach.NutritionRecord
	plans     map[string]coach.PlanRecord
	workouts  map[string][]coach.WorkoutRecord
	scans     map[scanKey]coach.BodyScanRecord
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nutrition: make(map[string]coach.NutritionRecord),
		plans:     make(map[string]coach.PlanRecord),
		workouts:  make(map[string][]coach.WorkoutRecord),
		scans:     make(map[scanKey]coach.BodyScanRecord),
	}
}

func (r *MemoryRepository) UpsertNutrition(_ context.Context, rec coach.NutritionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nutrition[rec.UserID] = rec
	return nil
}

func (r *MemoryRepository) LatestNutrition(_ context.Context, userID string) (coach.NutritionRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.nutrition[userID]
	return rec, ok, nil
}

func (r *MemoryRepository) ReplacePlan(_ context.Context, rec coach.PlanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Days = append([]coach.DayEntry(nil), rec.Days...)
	r.plans[rec.UserID] = rec
	return nil
}

func (r *MemoryRepository) CurrentPlan(_ context.Context, userID string) (coach.PlanRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.plans[userID]
	if !ok {
		return coach.PlanRecord{}, false, nil
	}
	rec.Days = append([]coach.DayEntry(nil), rec.Days...)
	return rec, true, nil
}

func (r *MemoryRepository) InsertWorkout(_ context.Context, rec coach.WorkoutRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workouts[rec.UserID] = append(r.workouts[rec.UserID], rec)
	return nil
}

func (r *MemoryRepository) RecentWorkouts(_ context.Context, userID string, limit int) ([]coach.WorkoutRecord, error) {
	r.mu.RLock()
	items := append([]coach.WorkoutRecord(nil), r.workouts[userID]...)
	r.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *MemoryRepository) UpsertBodyScan(_ context.Context, rec coach.BodyScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans[scanKey{userID: rec.UserID, imagePath: rec.ImagePath}] = rec
	return nil
}

func (r *MemoryRepository) DeleteBodyScan(_ context.Context, userID, imagePath string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := scanKey{userID: userID, imagePath: imagePath}
	if _, ok := r.scans[key]; !ok {
		return false, nil
	}
	delete(r.scans, key)
	return true, nil
}

// BodyScan returns the stored analysis for (userID, imagePath).
func (r *MemoryRepository) BodyScan(userID, imagePath string) (coach.BodyScanRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.scans[scanKey{userID: userID, imagePath: imagePath}]
	return rec, ok
}

var _ coach.Repository = (*MemoryRepository)(nil)
