package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/ai-fitcoach/internal/domain/auth"
	"github.com/yanqian/ai-fitcoach/internal/domain/coach"
	"github.com/yanqian/ai-fitcoach/internal/infra/coachrepo"
	"github.com/yanqian/ai-fitcoach/internal/infra/config"
	"github.com/yanqian/ai-fitcoach/internal/infra/llm/gemini"
	"github.com/yanqian/ai-fitcoach/internal/infra/storage"
	"github.com/yanqian/ai-fitcoach/internal/infra/usage"
)

func provideCoachConfig(cfg *config.Config) coach.Config {
	return coach.Config{
		PrimaryModel:    cfg.LLM.Model,
		FallbackModel:   cfg.LLM.FallbackModel,
		Temperature:     cfg.LLM.Temperature,
		ModelTimeout:    cfg.LLM.Timeout,
		DownloadTimeout: cfg.Storage.DownloadTimeout,
		MaxImageBytes:   cfg.Coach.MaxImageBytes,
		DailyQuota:      cfg.Coach.DailyQuota,
	}
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	}
}

func provideGenerator(cfg *config.Config) (coach.Generator, error) {
	return gemini.NewClient(context.Background(), cfg.LLM.APIKey)
}

func provideTokenEstimator(cfg *config.Config, logger *slog.Logger) coach.TokenEstimator {
	return gemini.NewTokenEstimator(cfg.LLM.TokenEncoding, logger)
}

func provideRepository(cfg *config.Config, logger *slog.Logger) coach.Repository {
	fallback := coachrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	repo := coachrepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("postgres schema setup failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("postgres repository enabled")
	return repo
}

func provideUsageCounter(cfg *config.Config, logger *slog.Logger) coach.UsageCounter {
	if !cfg.Redis.Enabled {
		return usage.NewMemoryCounter()
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory counter", "error", err)
		return usage.NewMemoryCounter()
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory counter", "error", err)
		return usage.NewMemoryCounter()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory counter", "error", err)
		client.Close()
		return usage.NewMemoryCounter()
	}
	logger.Info("valkey usage counter enabled", "addr", cfg.Redis.Addr)
	return usage.NewValkeyCounter(client, "coach:usage")
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Redis.Addr, "://") {
		return valkey.ParseURL(cfg.Redis.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Redis.Addr}}, nil
}

func provideObjectStorage(cfg *config.Config, logger *slog.Logger) (coach.ObjectStorage, error) {
	if strings.TrimSpace(cfg.Storage.Endpoint) == "" {
		logger.Warn("storage endpoint not set, using in-memory object storage")
		return storage.NewMemoryStorage(), nil
	}
	return storage.NewS3Storage(storage.S3Options{
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		UseSSL:          cfg.Storage.UseSSL,
	}, logger)
}
