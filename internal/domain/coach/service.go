package coach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	apperrors "github.com/yanqian/ai-fitcoach/pkg/errors"
	"github.com/yanqian/ai-fitcoach/pkg/metrics"
	"github.com/yanqian/ai-fitcoach/pkg/util"
)

const (
	defaultModelTimeout    = 25 * time.Second
	defaultDownloadTimeout = 12 * time.Second
	defaultMaxImageBytes   = 10 << 20
	defaultRecentWorkouts  = 10
	maxRecentWorkouts      = 50
	usageTTL               = 48 * time.Hour
)

// Service exposes the coaching operations.
type Service interface {
	Nutrition(ctx context.Context, userID string, req ProfileRequest) (Result, error)
	WeeklyPlan(ctx context.Context, userID string, req ProfileRequest) (Result, error)
	Workout(ctx context.Context, userID string, req ProfileRequest) (Result, error)
	AnalyzeBodyScan(ctx context.Context, userID string, req BodyScanRequest) (Result, error)
	LatestNutrition(ctx context.Context, userID string) (NutritionRecord, error)
	CurrentPlan(ctx context.Context, userID string) (PlanRecord, error)
	RecentWorkouts(ctx context.Context, userID string, limit int) ([]WorkoutRecord, error)
	DeleteBodyScan(ctx context.Context, userID, imagePath string) error
}

type service struct {
	cfg     Config
	gen     Generator
	repo    Repository
	storage ObjectStorage
	usage   UsageCounter
	tokens  TokenEstimator
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires up the coaching domain. usage and tokens may be nil.
func NewService(cfg Config, gen Generator, repo Repository, storage ObjectStorage, usage UsageCounter, tokens TokenEstimator, logger *slog.Logger) Service {
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = defaultModelTimeout
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = defaultDownloadTimeout
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = defaultMaxImageBytes
	}
	return &service{
		cfg:     cfg,
		gen:     gen,
		repo:    repo,
		storage: storage,
		usage:   usage,
		tokens:  tokens,
		logger:  logger.With("component", "coach.service"),
		now:     util.NowUTC,
	}
}

func (s *service) Nutrition(ctx context.Context, userID string, req ProfileRequest) (Result, error) {
	if err := checkOwner(userID, req.UserID); err != nil {
		return Result{}, err
	}
	res, err := s.generate(ctx, userID, KindNutrition, GenerateRequest{Prompt: BuildNutritionPrompt(req.Profile())})
	if err != nil {
		return Result{}, err
	}

	rec := NutritionRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Nutrition: res.Payload.(Nutrition),
		Model:     res.Model,
		Fallback:  res.Fallback,
		CreatedAt: s.now(),
	}
	if err := s.repo.UpsertNutrition(ctx, rec); err != nil {
		return Result{}, apperrors.Wrap("storage_error", "failed to save nutrition targets", err)
	}
	res.RecordID = rec.ID
	return res, nil
}

func (s *service) WeeklyPlan(ctx context.Context, userID string, req ProfileRequest) (Result, error) {
	if err := checkOwner(userID, req.UserID); err != nil {
		return Result{}, err
	}
	res, err := s.generate(ctx, userID, KindPlan, GenerateRequest{Prompt: BuildPlanPrompt(req.Profile())})
	if err != nil {
		return Result{}, err
	}

	rec := PlanRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Days:      res.Payload.(WeeklyPlan).Days,
		Model:     res.Model,
		Fallback:  res.Fallback,
		CreatedAt: s.now(),
	}
	if err := s.repo.ReplacePlan(ctx, rec); err != nil {
		return Result{}, apperrors.Wrap("storage_error", "failed to save weekly plan", err)
	}
	res.RecordID = rec.ID
	return res, nil
}

func (s *service) Workout(ctx context.Context, userID string, req ProfileRequest) (Result, error) {
	if err := checkOwner(userID, req.UserID); err != nil {
		return Result{}, err
	}
	if req.DaysSinceLastWorkout == nil {
		req.DaysSinceLastWorkout = s.daysSinceLastWorkout(ctx, userID)
	}
	res, err := s.generate(ctx, userID, KindWorkout, GenerateRequest{Prompt: BuildWorkoutPrompt(req.Profile())})
	if err != nil {
		return Result{}, err
	}

	rec := WorkoutRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Workout:   res.Payload.(Workout),
		Model:     res.Model,
		Fallback:  res.Fallback,
		CreatedAt: s.now(),
	}
	if err := s.repo.InsertWorkout(ctx, rec); err != nil {
		return Result{}, apperrors.Wrap("storage_error", "failed to save workout", err)
	}
	res.RecordID = rec.ID
	return res, nil
}

func (s *service) AnalyzeBodyScan(ctx context.Context, userID string, req BodyScanRequest) (Result, error) {
	if err := checkOwner(userID, req.UserID); err != nil {
		return Result{}, err
	}
	imagePath, err := ownedImagePath(userID, req.ImagePath)
	if err != nil {
		return Result{}, err
	}

	image, err := s.download(ctx, imagePath)
	if err != nil {
		return Result{}, err
	}

	res, err := s.generate(ctx, userID, KindBodyScan, GenerateRequest{
		Prompt: BuildBodyScanPrompt(Profile{Extra: req.Prompt}),
		Inline: image,
	})
	if err != nil {
		return Result{}, err
	}

	rec := BodyScanRecord{
		ID:        uuid.New(),
		UserID:    userID,
		ImagePath: imagePath,
		Analysis:  res.Payload.(BodyScan),
		Model:     res.Model,
		Fallback:  res.Fallback,
		CreatedAt: s.now(),
	}
	if err := s.repo.UpsertBodyScan(ctx, rec); err != nil {
		return Result{}, apperrors.Wrap("storage_error", "failed to save body scan", err)
	}
	res.RecordID = rec.ID
	return res, nil
}

func (s *service) LatestNutrition(ctx context.Context, userID string) (NutritionRecord, error) {
	rec, ok, err := s.repo.LatestNutrition(ctx, userID)
	if err != nil {
		return NutritionRecord{}, apperrors.Wrap("storage_error", "failed to load nutrition targets", err)
	}
	if !ok {
		return NutritionRecord{}, apperrors.Wrap("not_found", "no nutrition targets yet", nil)
	}
	return rec, nil
}

func (s *service) CurrentPlan(ctx context.Context, userID string) (PlanRecord, error) {
	rec, ok, err := s.repo.CurrentPlan(ctx, userID)
	if err != nil {
		return PlanRecord{}, apperrors.Wrap("storage_error", "failed to load weekly plan", err)
	}
	if !ok {
		return PlanRecord{}, apperrors.Wrap("not_found", "no weekly plan yet", nil)
	}
	return rec, nil
}

func (s *service) RecentWorkouts(ctx context.Context, userID string, limit int) ([]WorkoutRecord, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentWorkouts
	case limit > maxRecentWorkouts:
		limit = maxRecentWorkouts
	}
	recs, err := s.repo.RecentWorkouts(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Wrap("storage_error", "failed to load workouts", err)
	}
	if recs == nil {
		recs = []WorkoutRecord{}
	}
	return recs, nil
}

func (s *service) DeleteBodyScan(ctx context.Context, userID, imagePath string) error {
	imagePath, err := ownedImagePath(userID, imagePath)
	if err != nil {
		return err
	}
	found, err := s.repo.DeleteBodyScan(ctx, userID, imagePath)
	if err != nil {
		return apperrors.Wrap("storage_error", "failed to delete body scan", err)
	}
	if err := s.storage.Delete(ctx, imagePath); err != nil {
		if !errors.Is(err, ErrObjectNotFound) {
			return apperrors.Wrap("storage_error", "failed to delete image", err)
		}
		if !found {
			return apperrors.Wrap("not_found", "body scan not found", nil)
		}
	}
	s.logger.Info("body scan deleted", "user_id", userID, "image_path", imagePath, "record_found", found)
	return nil
}

// generate runs the quota check, the model call and the validation pipeline.
func (s *service) generate(ctx context.Context, userID string, kind Kind, req GenerateRequest) (Result, error) {
	if err := s.consumeQuota(ctx, userID); err != nil {
		return Result{}, err
	}

	req.System = systemInstruction
	req.Temperature = s.cfg.Temperature
	req.JSON = true

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ModelTimeout)
	defer cancel()

	start := time.Now()
	call, err := CallWithFallback(callCtx, s.gen, s.cfg.PrimaryModel, s.cfg.FallbackModel, req)
	if err != nil {
		category := Classify(err)
		s.logger.Error("model request failed", "kind", kind, "category", category, "error", err)
		return Result{}, apperrors.Wrap(string(category), "model request failed", err)
	}
	if call.ModelUsed != s.cfg.PrimaryModel {
		s.logger.Warn("primary model unavailable, used fallback model", "kind", kind, "primary", s.cfg.PrimaryModel, "model", call.ModelUsed)
	}

	outcome := Resolve(kind, call.Text)
	usage := call.Usage
	if usage.IsZero() {
		usage = s.estimateUsage(req, call.Text)
	}
	if outcome.Fallback {
		s.logger.Warn("model response rejected, using fallback", "kind", kind, "model", call.ModelUsed, "excerpt_len", len(outcome.Excerpt))
	}
	s.logger.Info("coach response resolved",
		"kind", kind,
		"model", call.ModelUsed,
		"fallback", outcome.Fallback,
		"total_tokens", usage.TotalTokens,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return Result{
		Payload:  outcome.Payload,
		Model:    call.ModelUsed,
		Fallback: outcome.Fallback,
		Excerpt:  outcome.Excerpt,
		Usage:    usage,
	}, nil
}

// consumeQuota fails open: a counter outage never blocks coaching.
func (s *service) consumeQuota(ctx context.Context, userID string) error {
	if s.usage == nil || s.cfg.DailyQuota <= 0 {
		return nil
	}
	count, err := s.usage.Increment(ctx, userID, util.DayKey(s.now()), usageTTL)
	if err != nil {
		s.logger.Warn("usage counter unavailable", "user_id", userID, "error", err)
		return nil
	}
	if count > int64(s.cfg.DailyQuota) {
		return apperrors.Wrap("quota_exceeded", fmt.Sprintf("daily limit of %d coach requests reached", s.cfg.DailyQuota), nil)
	}
	return nil
}

func (s *service) estimateUsage(req GenerateRequest, completion string) metrics.TokenUsage {
	if s.tokens == nil {
		return metrics.TokenUsage{}
	}
	prompt := s.tokens.Count(req.System + "\n" + req.Prompt)
	output := s.tokens.Count(completion)
	return metrics.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: output,
		TotalTokens:      prompt + output,
		Estimated:        true,
	}
}

func (s *service) daysSinceLastWorkout(ctx context.Context, userID string) *int {
	recs, err := s.repo.RecentWorkouts(ctx, userID, 1)
	if err != nil {
		s.logger.Warn("failed to load last workout", "user_id", userID, "error", err)
		return nil
	}
	if len(recs) == 0 {
		return nil
	}
	days := util.DaysBetween(recs[0].CreatedAt, s.now())
	return &days
}

func (s *service) download(ctx context.Context, key string) (*InlineData, error) {
	dlCtx, cancel := context.WithTimeout(ctx, s.cfg.DownloadTimeout)
	defer cancel()

	rc, err := s.storage.Get(dlCtx, key)
	if err != nil {
		return nil, storageFailure(err, "failed to download image")
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.cfg.MaxImageBytes+1))
	if err != nil {
		return nil, storageFailure(err, "failed to read image")
	}
	if int64(len(data)) > s.cfg.MaxImageBytes {
		return nil, apperrors.Wrap("invalid_input", fmt.Sprintf("image exceeds %d bytes", s.cfg.MaxImageBytes), nil)
	}
	if len(data) == 0 {
		return nil, apperrors.Wrap("invalid_input", "image is empty", nil)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, apperrors.Wrap("invalid_input", "file is not an image", nil)
	}
	return &InlineData{MIMEType: mtype.String(), Data: data}, nil
}

func storageFailure(err error, msg string) error {
	switch {
	case errors.Is(err, ErrObjectNotFound):
		return apperrors.Wrap("not_found", "image not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(string(CategoryTimeout), "image download timed out", err)
	default:
		return apperrors.Wrap("storage_error", msg, err)
	}
}

func checkOwner(userID, claimed string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.Wrap("unauthorized", "missing user", nil)
	}
	if claimed = strings.TrimSpace(claimed); claimed != "" && claimed != userID {
		return apperrors.Wrap("forbidden", "user_id does not match the authenticated user", nil)
	}
	return nil
}

// ownedImagePath cleans raw and requires it to live under the user's prefix.
func ownedImagePath(userID, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperrors.Wrap("invalid_input", "image_path is required", nil)
	}
	cleaned := path.Clean(strings.TrimPrefix(trimmed, "/"))
	if strings.HasPrefix(cleaned, "..") || !strings.HasPrefix(cleaned, userID+"/") {
		return "", apperrors.Wrap("forbidden", "image_path does not belong to the authenticated user", nil)
	}
	return cleaned, nil
}
