package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ai-fitcoach/internal/domain/auth"
	"github.com/yanqian/ai-fitcoach/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *CoachHandler, authSvc auth.Service, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        newEngine(cfg, handler, authSvc, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func newEngine(cfg *config.Config, handler *CoachHandler, authSvc auth.Service, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	logger = logger.With("component", "http.router")

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := router.Group("/api/v1")
	api.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, logger), authMiddleware(authSvc))
	{
		api.POST("/nutrition", handler.Nutrition)
		api.GET("/nutrition", handler.LatestNutrition)
		api.POST("/plan", handler.WeeklyPlan)
		api.GET("/plan", handler.CurrentPlan)
		api.POST("/workout", handler.Workout)
		api.GET("/workouts", handler.RecentWorkouts)
		api.POST("/body-scan", handler.AnalyzeBodyScan)
		api.DELETE("/body-scan", handler.DeleteBodyScan)
	}

	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
