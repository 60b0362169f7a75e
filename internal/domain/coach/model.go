package coach

import (
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/ai-fitcoach/pkg/metrics"
)

// FallbackWarning is shown to users when the model answer could not be validated.
const FallbackWarning = "The coach returned an answer we could not read, so a safe default is shown instead."

// ProfileRequest is the body accepted by the nutrition, plan and workout endpoints.
type ProfileRequest struct {
	UserID               string   `json:"user_id"`
	Goal                 string   `json:"goal"`
	ActivityLevel        string   `json:"activity_level"`
	Weight               float64  `json:"weight"`
	RecoveryScore        *int     `json:"recovery_score"`
	Equipment            []string `json:"equipment"`
	DaysSinceLastWorkout *int     `json:"days_since_last_workout"`
	Prompt               string   `json:"prompt"`
}

// Profile converts the request into prompt context.
func (r ProfileRequest) Profile() Profile {
	return Profile{
		Goal:                 r.Goal,
		ActivityLevel:        r.ActivityLevel,
		WeightKg:             r.Weight,
		RecoveryScore:        r.RecoveryScore,
		Equipment:            r.Equipment,
		DaysSinceLastWorkout: r.DaysSinceLastWorkout,
		Extra:                r.Prompt,
	}
}

// BodyScanRequest asks for the analysis of an uploaded progress photo.
type BodyScanRequest struct {
	UserID    string `json:"user_id"`
	ImagePath string `json:"image_path"`
	Prompt    string `json:"prompt"`
}

// Result is returned by every AI operation.
type Result struct {
	RecordID uuid.UUID
	Payload  Payload
	Model    string
	Fallback bool
	Excerpt  string
	Usage    metrics.TokenUsage
}

// NutritionRecord is a stored nutrition target. One per user.
type NutritionRecord struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Nutrition Nutrition `json:"nutrition"`
	Model     string    `json:"model"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}

// PlanRecord is the user's current training week.
type PlanRecord struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	Days      []DayEntry `json:"plan"`
	Model     string     `json:"model"`
	Fallback  bool       `json:"fallback"`
	CreatedAt time.Time  `json:"created_at"`
}

// WorkoutRecord is one generated session.
type WorkoutRecord struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Workout   Workout   `json:"workout"`
	Model     string    `json:"model"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}

// BodyScanRecord is the analysis of one stored photo, keyed by (UserID, ImagePath).
type BodyScanRecord struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	ImagePath string    `json:"image_path"`
	Analysis  BodyScan  `json:"analysis"`
	Model     string    `json:"model"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}

// Config wires runtime settings for the coaching service.
type Config struct {
	PrimaryModel    string
	FallbackModel   string
	Temperature     float32
	ModelTimeout    time.Duration
	DownloadTimeout time.Duration
	MaxImageBytes   int64
	// DailyQuota caps AI calls per user and UTC day. Zero disables the check.
	DailyQuota int
}
