package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/ai-fitcoach/internal/domain/auth"
	"github.com/yanqian/ai-fitcoach/internal/domain/coach"
	"github.com/yanqian/ai-fitcoach/internal/infra/config"
	apperrors "github.com/yanqian/ai-fitcoach/pkg/errors"
	"github.com/yanqian/ai-fitcoach/pkg/metrics"
)

const testSecret = "router-secret"

func TestRouter_Healthz(t *testing.T) {
	recorder := performRequest(t, http.MethodGet, "/healthz", "", "", newRouterUnderTest(t, &stubCoach{}))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"ok":true}`, recorder.Body.String())
}

func TestRouter_RequiresBearerToken(t *testing.T) {
	server := newRouterUnderTest(t, &stubCoach{})

	recorder := performRequest(t, http.MethodPost, "/api/v1/nutrition", `{}`, "", server)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.Equal(t, "unauthorized", decodeErrorBody(t, recorder.Body.Bytes())["error"])

	recorder = performRequest(t, http.MethodPost, "/api/v1/nutrition", `{}`, "garbage", server)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.Equal(t, "invalid_token", decodeErrorBody(t, recorder.Body.Bytes())["error"])
}

func TestRouter_NutritionSuccess(t *testing.T) {
	recordID := uuid.New()
	svc := &stubCoach{
		profileFn: func(_ context.Context, userID string, req coach.ProfileRequest) (coach.Result, error) {
			require.Equal(t, "user-1", userID)
			require.Equal(t, "cut", req.Goal)
			require.InDelta(t, 72.5, req.Weight, 1e-9)
			return coach.Result{
				RecordID: recordID,
				Payload:  coach.Nutrition{Calories: 2100, Protein: 160, Carbs: 210, Fats: 70, Notes: "eat greens"},
				Model:    "gemini-2.5-flash",
				Usage:    metrics.TokenUsage{PromptTokens: 20, CompletionTokens: 30, TotalTokens: 50},
			}, nil
		},
	}

	recorder := performRequest(t, http.MethodPost, "/api/v1/nutrition", `{"goal":"cut","weight":72.5}`, signedToken(t, "user-1"), newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder.Body.Bytes())
	require.Equal(t, true, body["ok"])
	require.EqualValues(t, 2100, body["calories"])
	require.EqualValues(t, 160, body["protein"])
	require.Equal(t, "eat greens", body["notes"])
	require.Equal(t, "gemini-2.5-flash", body["model"])
	require.Equal(t, false, body["fallback"])
	require.Equal(t, recordID.String(), body["id"])
	require.NotContains(t, body, "warning")
	require.EqualValues(t, 50, body["usage"].(map[string]any)["total_tokens"])
}

func TestRouter_PlanFallbackCarriesWarning(t *testing.T) {
	svc := &stubCoach{
		profileFn: func(context.Context, string, coach.ProfileRequest) (coach.Result, error) {
			return coach.Result{
				Payload:  coach.BuildFallback(coach.KindPlan, ""),
				Model:    "gemini-2.5-flash",
				Fallback: true,
				Excerpt:  "Sure! Here is your plan",
			}, nil
		},
	}

	recorder := performRequest(t, http.MethodPost, "/api/v1/plan", "", signedToken(t, "user-1"), newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder.Body.Bytes())
	require.Equal(t, true, body["fallback"])
	require.Equal(t, coach.FallbackWarning, body["warning"])
	require.Equal(t, "Sure! Here is your plan", body["excerpt"])
	require.Len(t, body["plan"], 7)
}

func TestRouter_ErrorStatusMapping(t *testing.T) {
	tests := map[string]int{
		"invalid_input":        http.StatusBadRequest,
		"forbidden":            http.StatusForbidden,
		"quota_exceeded":       http.StatusTooManyRequests,
		"rate_limited":         http.StatusTooManyRequests,
		"timeout":              http.StatusGatewayTimeout,
		"upstream_auth_failed": http.StatusBadGateway,
		"upstream_error":       http.StatusBadGateway,
		"storage_error":        http.StatusInternalServerError,
		"not_found":            http.StatusNotFound,
	}
	for code, status := range tests {
		t.Run(code, func(t *testing.T) {
			svc := &stubCoach{
				profileFn: func(context.Context, string, coach.ProfileRequest) (coach.Result, error) {
					return coach.Result{}, apperrors.Wrap(code, "it failed", nil)
				},
			}
			recorder := performRequest(t, http.MethodPost, "/api/v1/workout", `{}`, signedToken(t, "user-1"), newRouterUnderTest(t, svc))
			require.Equal(t, status, recorder.Code)

			body := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, code, body["error"])
			require.Equal(t, "it failed", body["detail"])
		})
	}
}

func TestRouter_UnknownErrorIsInternal(t *testing.T) {
	svc := &stubCoach{
		profileFn: func(context.Context, string, coach.ProfileRequest) (coach.Result, error) {
			return coach.Result{}, io.ErrUnexpectedEOF
		},
	}
	recorder := performRequest(t, http.MethodPost, "/api/v1/workout", `{}`, signedToken(t, "user-1"), newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.Equal(t, "internal_error", decodeErrorBody(t, recorder.Body.Bytes())["error"])
}

func TestRouter_InvalidJSON(t *testing.T) {
	recorder := performRequest(t, http.MethodPost, "/api/v1/body-scan", `{"image_path":12}`, signedToken(t, "user-1"), newRouterUnderTest(t, &stubCoach{}))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	body := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", body["error"])
	require.NotEmpty(t, body["detail"])
}

func TestRouter_DeleteBodyScanFromQuery(t *testing.T) {
	var gotUser, gotPath string
	svc := &stubCoach{
		deleteFn: func(_ context.Context, userID, imagePath string) error {
			gotUser, gotPath = userID, imagePath
			return nil
		},
	}

	recorder := performRequest(t, http.MethodDelete, "/api/v1/body-scan?image_path=user-1/front.png", "", signedToken(t, "user-1"), newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "user-1", gotUser)
	require.Equal(t, "user-1/front.png", gotPath)
}

func TestRouter_DeleteBodyScanFromBody(t *testing.T) {
	var gotPath string
	svc := &stubCoach{
		deleteFn: func(_ context.Context, _ string, imagePath string) error {
			gotPath = imagePath
			return nil
		},
	}

	recorder := performRequest(t, http.MethodDelete, "/api/v1/body-scan", `{"image_path":"user-1/side.jpg"}`, signedToken(t, "user-1"), newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "user-1/side.jpg", gotPath)
}

func TestRouter_RecentWorkoutsLimit(t *testing.T) {
	var gotLimit int
	svc := &stubCoach{
		workoutsFn: func(_ context.Context, _ string, limit int) ([]coach.WorkoutRecord, error) {
			gotLimit = limit
			return []coach.WorkoutRecord{}, nil
		},
	}
	server := newRouterUnderTest(t, svc)
	token := signedToken(t, "user-1")

	recorder := performRequest(t, http.MethodGet, "/api/v1/workouts?limit=5", "", token, server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 5, gotLimit)
	require.JSONEq(t, `{"ok":true,"workouts":[]}`, recorder.Body.String())

	recorder = performRequest(t, http.MethodGet, "/api/v1/workouts?limit=abc", "", token, server)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_LatestNutritionNotFound(t *testing.T) {
	svc := &stubCoach{
		latestFn: func(context.Context, string) (coach.NutritionRecord, error) {
			return coach.NutritionRecord{}, apperrors.Wrap("not_found", "no nutrition targets yet", nil)
		},
	}
	recorder := performRequest(t, http.MethodGet, "/api/v1/nutrition", "", signedToken(t, "user-1"), newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusNotFound, recorder.Code)
	require.Equal(t, "not_found", decodeErrorBody(t, recorder.Body.Bytes())["error"])
}

func TestRouter_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/body-scan", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	newRouterUnderTest(t, &stubCoach{}).Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestIPRateLimiterRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newIPRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 2})
	limiter.now = func() time.Time { return now }

	require.True(t, limiter.allow("1.1.1.1"))
	require.True(t, limiter.allow("1.1.1.1"))
	require.False(t, limiter.allow("1.1.1.1"))
	require.True(t, limiter.allow("2.2.2.2"))

	now = now.Add(time.Second)
	require.True(t, limiter.allow("1.1.1.1"))
}

func performRequest(t *testing.T, method, path, body, token string, server *http.Server) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, svc coach.Service) *http.Server {
	t.Helper()
	logger := newTestLogger()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:        ":0",
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			AllowedOrigins: []string{"https://app.example.com"},
		},
	}
	return NewRouter(cfg, NewCoachHandler(svc, logger), auth.NewService(auth.Config{Secret: testSecret}, logger), logger)
}

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubCoach struct {
	profileFn  func(ctx context.Context, userID string, req coach.ProfileRequest) (coach.Result, error)
	scanFn     func(ctx context.Context, userID string, req coach.BodyScanRequest) (coach.Result, error)
	latestFn   func(ctx context.Context, userID string) (coach.NutritionRecord, error)
	workoutsFn func(ctx context.Context, userID string, limit int) ([]coach.WorkoutRecord, error)
	deleteFn   func(ctx context.Context, userID, imagePath string) error
}

var _ coach.Service = (*stubCoach)(nil)

func (s *stubCoach) profile(ctx context.Context, userID string, req coach.ProfileRequest) (coach.Result, error) {
	if s.profileFn != nil {
		return s.profileFn(ctx, userID, req)
	}
	return coach.Result{Payload: coach.BuildFallback(coach.KindWorkout, "")}, nil
}

func (s *stubCoach) Nutrition(ctx context.Context, userID string, req coach.ProfileRequest) (coach.Result, error) {
	return s.profile(ctx, userID, req)
}

func (s *stubCoach) WeeklyPlan(ctx context.Context, userID string, req coach.ProfileRequest) (coach.Result, error) {
	return s.profile(ctx, userID, req)
}

func (s *stubCoach) Workout(ctx context.Context, userID string, req coach.ProfileRequest) (coach.Result, error) {
	return s.profile(ctx, userID, req)
}

func (s *stubCoach) AnalyzeBodyScan(ctx context.Context, userID string, req coach.BodyScanRequest) (coach.Result, error) {
	if s.scanFn != nil {
		return s.scanFn(ctx, userID, req)
	}
	return coach.Result{Payload: coach.BuildFallback(coach.KindBodyScan, "")}, nil
}

func (s *stubCoach) LatestNutrition(ctx context.Context, userID string) (coach.NutritionRecord, error) {
	if s.latestFn != nil {
		return s.latestFn(ctx, userID)
	}
	return coach.NutritionRecord{}, nil
}

func (s *stubCoach) CurrentPlan(context.Context, string) (coach.PlanRecord, error) {
	return coach.PlanRecord{}, nil
}

func (s *stubCoach) RecentWorkouts(ctx context.Context, userID string, limit int) ([]coach.WorkoutRecord, error) {
	if s.workoutsFn != nil {
		return s.workoutsFn(ctx, userID, limit)
	}
	return nil, nil
}

func (s *stubCoach) DeleteBodyScan(ctx context.Context, userID, imagePath string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, userID, imagePath)
	}
	return nil
}

func decodeBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	body := decodeBody(t, raw)
	require.Equal(t, false, body["ok"])
	return body
}
