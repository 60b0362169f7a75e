package coach

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by ObjectStorage when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage abstracts blob storage (R2/S3/MinIO/in-memory).
type ObjectStorage interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Repository persists coaching results per user.
type Repository interface {
	UpsertNutrition(ctx context.Context, rec NutritionRecord) error
	LatestNutrition(ctx context.Context, userID string) (NutritionRecord, bool, error)
	// ReplacePlan drops every stored day of the user's plan before writing rec.
	ReplacePlan(ctx context.Context, rec PlanRecord) error
	CurrentPlan(ctx context.Context, userID string) (PlanRecord, bool, error)
	InsertWorkout(ctx context.Context, rec WorkoutRecord) error
	// RecentWorkouts returns at most limit workouts, newest first.
	RecentWorkouts(ctx context.Context, userID string, limit int) ([]WorkoutRecord, error)
	UpsertBodyScan(ctx context.Context, rec BodyScanRecord) error
	DeleteBodyScan(ctx context.Context, userID, imagePath string) (bool, error)
}

// UsageCounter counts AI calls per user and day.
type UsageCounter interface {
	// Increment bumps the counter for (userID, day) and returns the new value.
	// The counter expires after ttl.
	Increment(ctx context.Context, userID, day string, ttl time.Duration) (int64, error)
}

// TokenEstimator approximates the token count of text.
type TokenEstimator interface {
	Count(text string) int
}
