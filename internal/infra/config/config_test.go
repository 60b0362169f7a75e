package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  address: ":9090"
  allowedOrigins: ["https://app.example.com"]
llm:
  model: gemini-file
  timeout: 20s
coach:
  dailyQuota: 5
auth:
  jwtSecret: file-secret
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("LLM_FALLBACK_MODEL", "gemini-env-fallback")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("STORAGE_DOWNLOAD_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTP.Address)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.HTTP.AllowedOrigins)
	require.Equal(t, "gemini-file", cfg.LLM.Model)
	require.Equal(t, "gemini-env-fallback", cfg.LLM.FallbackModel)
	require.Equal(t, 20*time.Second, cfg.LLM.Timeout)
	require.Equal(t, 5, cfg.Coach.DailyQuota)
	require.Equal(t, 3*time.Second, cfg.Storage.DownloadTimeout)
	require.Equal(t, int64(10<<20), cfg.Coach.MaxImageBytes)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: "defaults with secret", mutate: func(*Config) {}, ok: true},
		{name: "no auth", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, ok: false},
		{name: "issuer without audience", mutate: func(c *Config) { c.Auth.Issuer = "https://issuer.example.com" }, ok: false},
		{name: "empty model", mutate: func(c *Config) { c.LLM.Model = " " }, ok: false},
		{name: "negative quota", mutate: func(c *Config) { c.Coach.DailyQuota = -1 }, ok: false},
		{name: "storage endpoint without keys", mutate: func(c *Config) { c.Storage.Endpoint = "s3.example.com" }, ok: false},
		{name: "redis without addr", mutate: func(c *Config) { c.Redis.Enabled = true }, ok: false},
		{name: "rate limit without burst", mutate: func(c *Config) { c.HTTP.RateLimit.Burst = 0 }, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Auth.JWTSecret = "secret"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
