package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	LLM      LLMConfig      `yaml:"llm"`
	Coach    CoachConfig    `yaml:"coach"`
	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LLMConfig contains Gemini settings.
type LLMConfig struct {
	APIKey        string        `yaml:"apiKey"`
	Model         string        `yaml:"model"`
	FallbackModel string        `yaml:"fallbackModel"`
	Temperature   float32       `yaml:"temperature"`
	Timeout       time.Duration `yaml:"timeout"`
	TokenEncoding string        `yaml:"tokenEncoding"`
}

// CoachConfig tunes the coaching domain.
type CoachConfig struct {
	DailyQuota    int   `yaml:"dailyQuota"`
	MaxImageBytes int64 `yaml:"maxImageBytes"`
}

// StorageConfig points at the S3 compatible bucket holding uploaded photos.
// An empty endpoint selects the in-memory store.
type StorageConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	AccessKeyID     string        `yaml:"accessKeyId"`
	SecretAccessKey string        `yaml:"secretAccessKey"`
	Bucket          string        `yaml:"bucket"`
	Region          string        `yaml:"region"`
	UseSSL          bool          `yaml:"useSSL"`
	DownloadTimeout time.Duration `yaml:"downloadTimeout"`
}

// PostgresConfig contains DSN and pooling settings. An empty DSN selects the
// in-memory repository.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// RedisConfig contains connection information for the usage counters.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// AuthConfig controls bearer token verification. When Issuer is set tokens
// are verified against the issuer's published keys, otherwise JWTSecret is used.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "1" || strings.EqualFold(v, "true")
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				*dst = parsed
			}
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil {
				*dst = parsed
			}
		}
	}

	setString("HTTP_ADDRESS", &cfg.HTTP.Address)
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	setInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	setInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)

	setString("GEMINI_API_KEY", &cfg.LLM.APIKey)
	setString("LLM_API_KEY", &cfg.LLM.APIKey)
	setString("LLM_MODEL", &cfg.LLM.Model)
	setString("LLM_FALLBACK_MODEL", &cfg.LLM.FallbackModel)
	setDuration("LLM_TIMEOUT", &cfg.LLM.Timeout)
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}

	setInt("COACH_DAILY_QUOTA", &cfg.Coach.DailyQuota)
	if v := os.Getenv("COACH_MAX_IMAGE_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Coach.MaxImageBytes = parsed
		}
	}

	setString("STORAGE_ENDPOINT", &cfg.Storage.Endpoint)
	setString("STORAGE_ACCESS_KEY_ID", &cfg.Storage.AccessKeyID)
	setString("STORAGE_SECRET_ACCESS_KEY", &cfg.Storage.SecretAccessKey)
	setString("STORAGE_BUCKET", &cfg.Storage.Bucket)
	setString("STORAGE_REGION", &cfg.Storage.Region)
	setBool("STORAGE_USE_SSL", &cfg.Storage.UseSSL)
	setDuration("STORAGE_DOWNLOAD_TIMEOUT", &cfg.Storage.DownloadTimeout)

	setString("POSTGRES_DSN", &cfg.Postgres.DSN)
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}

	setBool("REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("REDIS_ADDR", &cfg.Redis.Addr)

	setString("AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	setString("AUTH_ISSUER", &cfg.Auth.Issuer)
	setString("AUTH_AUDIENCE", &cfg.Auth.Audience)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   45 * time.Second,
			AllowedOrigins: []string{"http://localhost:5173"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		LLM: LLMConfig{
			Model:         "gemini-2.5-flash",
			FallbackModel: "gemini-2.0-flash",
			Temperature:   0.4,
			Timeout:       25 * time.Second,
			TokenEncoding: "cl100k_base",
		},
		Coach: CoachConfig{
			DailyQuota:    50,
			MaxImageBytes: 10 << 20,
		},
		Storage: StorageConfig{
			Bucket:          "body-scans",
			Region:          "auto",
			UseSSL:          true,
			DownloadTimeout: 12 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm.timeout must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.Coach.DailyQuota < 0 {
		return errors.New("coach.dailyQuota cannot be negative")
	}
	if c.Coach.MaxImageBytes <= 0 {
		return errors.New("coach.maxImageBytes must be positive")
	}
	if c.Storage.Endpoint != "" {
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return errors.New("storage.bucket cannot be empty when storage.endpoint is set")
		}
		if c.Storage.AccessKeyID == "" || c.Storage.SecretAccessKey == "" {
			return errors.New("storage credentials are required when storage.endpoint is set")
		}
	}
	if c.Storage.DownloadTimeout <= 0 {
		return errors.New("storage.downloadTimeout must be positive")
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis.addr cannot be empty when redis is enabled")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" && strings.TrimSpace(c.Auth.Issuer) == "" {
		return errors.New("auth.jwtSecret or auth.issuer must be set")
	}
	if c.Auth.Issuer != "" && strings.TrimSpace(c.Auth.Audience) == "" {
		return errors.New("auth.audience cannot be empty when auth.issuer is set")
	}
	return nil
}
