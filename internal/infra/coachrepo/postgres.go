package coachrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/ai-fitcoach/internal/domain/coach"
)

// Schema creates the tables used by PostgresRepository when they are missing.
const Schema = `
CREATE TABLE IF NOT EXISTS nutrition_targets (
	user_id    TEXT PRIMARY KEY,
	id         UUID NOT NULL,
	calories   INTEGER NOT NULL,
	protein    INTEGER NOT NULL,
	carbs      INTEGER NOT NULL,
	fats       INTEGER NOT NULL,
	notes      TEXT NOT NULL,
	model      TEXT NOT NULL,
	fallback   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS weekly_plans (
	plan_id      UUID NOT NULL,
	user_id      TEXT NOT NULL,
	day          INTEGER NOT NULL,
	position     INTEGER NOT NULL,
	workout_type TEXT NOT NULL,
	intensity    TEXT NOT NULL,
	notes        TEXT NOT NULL,
	model        TEXT NOT NULL,
	fallback     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, position)
);

CREATE TABLE IF NOT EXISTS workouts (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	note       TEXT NOT NULL,
	exercises  JSONB NOT NULL,
	model      TEXT NOT NULL,
	fallback   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS workouts_user_created_idx ON workouts (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS body_scans (
	user_id         TEXT NOT NULL,
	image_path      TEXT NOT NULL,
	id              UUID NOT NULL,
	summary         TEXT NOT NULL,
	focus_areas     JSONB NOT NULL,
	recommendations JSONB NOT NULL,
	model           TEXT NOT NULL,
	fallback        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, image_path)
);
`

// PostgresRepository implements coach.Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema applies Schema.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpsertNutrition(ctx context.Context, rec coach.NutritionRecord) error {
	n := rec.Nutrition
	_, err := r.pool.Exec(ctx, `
		INSERT INTO nutrition_targets (user_id, id, calories, protein, carbs, fats, notes, model, fallback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			id = EXCLUDED.id,
			calories = EXCLUDED.calories,
			protein = EXCLUDED.protein,
			carbs = EXCLUDED.carbs,
			fats = EXCLUDED.fats,
			notes = EXCLUDED.notes,
			model = EXCLUDED.model,
			fallback = EXCLUDED.fallback,
			created_at = EXCLUDED.created_at
	`, rec.UserID, rec.ID, n.Calories, n.Protein, n.Carbs, n.Fats, n.Notes, rec.Model, rec.Fallback, rec.CreatedAt)
	return err
}

func (r *PostgresRepository) LatestNutrition(ctx context.Context, userID string) (coach.NutritionRecord, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, calories, protein, carbs, fats, notes, model, fallback, created_at
		FROM nutrition_targets
		WHERE user_id = $1
	`, userID)
	var rec coach.NutritionRecord
	n := &rec.Nutrition
	if err := row.Scan(&rec.ID, &rec.UserID, &n.Calories, &n.Protein, &n.Carbs, &n.Fats, &n.Notes, &rec.Model, &rec.Fallback, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coach.NutritionRecord{}, false, nil
		}
		return coach.NutritionRecord{}, false, err
	}
	return rec, true, nil
}

// ReplacePlan deletes the user's rows and inserts the new week in one transaction.
func (r *PostgresRepository) ReplacePlan(ctx context.Context, rec coach.PlanRecord) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM weekly_plans WHERE user_id = $1`, rec.UserID); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i, day := range rec.Days {
			batch.Queue(`
				INSERT INTO weekly_plans (plan_id, user_id, day, position, workout_type, intensity, notes, model, fallback, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, rec.ID, rec.UserID, day.Day, i, day.WorkoutType, day.Intensity, day.Notes, rec.Model, rec.Fallback, rec.CreatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (r *PostgresRepository) CurrentPlan(ctx context.Context, userID string) (coach.PlanRecord, bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT plan_id, user_id, day, workout_type, intensity, notes, model, fallback, created_at
		FROM weekly_plans
		WHERE user_id = $1
		ORDER BY position
	`, userID)
	if err != nil {
		return coach.PlanRecord{}, false, err
	}
	defer rows.Close()

	var rec coach.PlanRecord
	for rows.Next() {
		var day coach.DayEntry
		if err := rows.Scan(&rec.ID, &rec.UserID, &day.Day, &day.WorkoutType, &day.Intensity, &day.Notes, &rec.Model, &rec.Fallback, &rec.CreatedAt); err != nil {
			return coach.PlanRecord{}, false, err
		}
		rec.Days = append(rec.Days, day)
	}
	if err := rows.Err(); err != nil {
		return coach.PlanRecord{}, false, err
	}
	return rec, len(rec.Days) > 0, nil
}

func (r *PostgresRepository) InsertWorkout(ctx context.Context, rec coach.WorkoutRecord) error {
	exercises, err := json.Marshal(rec.Workout.Exercises)
	if err != nil {
		return fmt.Errorf("encode exercises: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO workouts (id, user_id, note, exercises, model, fallback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.UserID, rec.Workout.Note, exercises, rec.Model, rec.Fallback, rec.CreatedAt)
	return err
}

func (r *PostgresRepository) RecentWorkouts(ctx context.Context, userID string, limit int) ([]coach.WorkoutRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, note, exercises, model, fallback, created_at
		FROM workouts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []coach.WorkoutRecord
	for rows.Next() {
		var (
			rec       coach.WorkoutRecord
			exercises []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Workout.Note, &exercises, &rec.Model, &rec.Fallback, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(exercises, &rec.Workout.Exercises); err != nil {
			return nil, fmt.Errorf("decode exercises for workout %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpsertBodyScan(ctx context.Context, rec coach.BodyScanRecord) error {
	focus, err := json.Marshal(nonNil(rec.Analysis.FocusAreas))
	if err != nil {
		return err
	}
	recommendations, err := json.Marshal(nonNil(rec.Analysis.Recommendations))
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO body_scans (user_id, image_path, id, summary, focus_areas, recommendations, model, fallback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, image_path) DO UPDATE SET
			id = EXCLUDED.id,
			summary = EXCLUDED.summary,
			focus_areas = EXCLUDED.focus_areas,
			recommendations = EXCLUDED.recommendations,
			model = EXCLUDED.model,
			fallback = EXCLUDED.fallback,
			created_at = EXCLUDED.created_at
	`, rec.UserID, rec.ImagePath, rec.ID, rec.Analysis.Summary, focus, recommendations, rec.Model, rec.Fallback, rec.CreatedAt)
	return err
}

func (r *PostgresRepository) DeleteBodyScan(ctx context.Context, userID, imagePath string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM body_scans WHERE user_id = $1 AND image_path = $2
	`, userID, imagePath)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

var _ coach.Repository = (*PostgresRepository)(nil)
