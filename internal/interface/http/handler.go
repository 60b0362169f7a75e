package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ai-fitcoach/internal/domain/coach"
)

// CoachHandler exposes the coaching operations over HTTP.
type CoachHandler struct {
	svc    coach.Service
	logger *slog.Logger
}

// NewCoachHandler constructs the coaching HTTP handler.
func NewCoachHandler(svc coach.Service, logger *slog.Logger) *CoachHandler {
	return &CoachHandler{
		svc:    svc,
		logger: logger.With("component", "http.coach"),
	}
}

// Nutrition generates and stores daily nutrition targets.
func (h *CoachHandler) Nutrition(c *gin.Context) {
	h.profileOperation(c, h.svc.Nutrition)
}

// WeeklyPlan generates and stores a seven day training plan.
func (h *CoachHandler) WeeklyPlan(c *gin.Context) {
	h.profileOperation(c, h.svc.WeeklyPlan)
}

// Workout generates a single session.
func (h *CoachHandler) Workout(c *gin.Context) {
	h.profileOperation(c, h.svc.Workout)
}

type profileFunc func(ctx context.Context, userID string, req coach.ProfileRequest) (coach.Result, error)

func (h *CoachHandler) profileOperation(c *gin.Context, run profileFunc) {
	var req coach.ProfileRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	res, err := run(c.Request.Context(), userID(c), req)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	h.writeResult(c, res)
}

// AnalyzeBodyScan analyzes a previously uploaded progress photo.
func (h *CoachHandler) AnalyzeBodyScan(c *gin.Context) {
	var req coach.BodyScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	res, err := h.svc.AnalyzeBodyScan(c.Request.Context(), userID(c), req)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	h.writeResult(c, res)
}

// DeleteBodyScan removes a body scan record and its image. The path is read
// from the image_path query parameter or, failing that, the JSON body.
func (h *CoachHandler) DeleteBodyScan(c *gin.Context) {
	imagePath := c.Query("image_path")
	if imagePath == "" {
		var req coach.BodyScanRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
			return
		}
		imagePath = req.ImagePath
	}
	if err := h.svc.DeleteBodyScan(c.Request.Context(), userID(c), imagePath); err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "image_path": imagePath})
}

// LatestNutrition returns the stored nutrition targets.
func (h *CoachHandler) LatestNutrition(c *gin.Context) {
	rec, err := h.svc.LatestNutrition(c.Request.Context(), userID(c))
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	body := flatten(rec.Nutrition)
	body["id"] = rec.ID
	body["model"] = rec.Model
	body["fallback"] = rec.Fallback
	body["created_at"] = rec.CreatedAt
	c.JSON(http.StatusOK, body)
}

// CurrentPlan returns the stored training week.
func (h *CoachHandler) CurrentPlan(c *gin.Context) {
	rec, err := h.svc.CurrentPlan(c.Request.Context(), userID(c))
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"id":         rec.ID,
		"plan":       rec.Days,
		"model":      rec.Model,
		"fallback":   rec.Fallback,
		"created_at": rec.CreatedAt,
	})
}

// RecentWorkouts lists the newest sessions, honouring ?limit=.
func (h *CoachHandler) RecentWorkouts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer", err))
			return
		}
		limit = n
	}
	recs, err := h.svc.RecentWorkouts(c.Request.Context(), userID(c), limit)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "workouts": recs})
}

func (h *CoachHandler) writeResult(c *gin.Context, res coach.Result) {
	body := flatten(res.Payload)
	body["id"] = res.RecordID
	body["model"] = res.Model
	body["fallback"] = res.Fallback
	body["usage"] = res.Usage
	if res.Fallback {
		body["warning"] = coach.FallbackWarning
		if res.Excerpt != "" {
			body["excerpt"] = res.Excerpt
		}
		h.logger.Warn("served fallback payload", "kind", res.Payload.Kind(), "model", res.Model, "user_id", userID(c))
	}
	c.JSON(http.StatusOK, body)
}

// flatten lifts the payload fields to the top level of the response next to "ok".
func flatten(payload any) gin.H {
	body := gin.H{}
	if raw, err := json.Marshal(payload); err == nil {
		_ = json.Unmarshal(raw, &body)
	}
	body["ok"] = true
	return body
}

// bindOptionalJSON accepts an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(c.Request.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
