package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		GeminiAPIKey:     "test-key",
		Addr:             ":8080",
		LogLevel:         "info",
		HTTPTimeout:      time.Minute,
		RequestTimeout:   time.Minute,
		RetryMaxAttempts: 3,
		RetryBackoff:     3 * time.Second,
		MaxUploadBytes:   25 << 20,
		SessionTTL:       time.Hour,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing api key", func(c *Config) { c.GeminiAPIKey = "" }, "GEMINI_API_KEY"},
		{"zero attempts", func(c *Config) { c.RetryMaxAttempts = 0 }, "RETRY_MAX_ATTEMPTS"},
		{"negative backoff", func(c *Config) { c.RetryBackoff = -time.Second }, "RETRY_BACKOFF"},
		{"no upload budget", func(c *Config) { c.MaxUploadBytes = 0 }, "MAX_UPLOAD_MB"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"no session ttl", func(c *Config) { c.SessionTTL = 0 }, "SESSION_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.edit(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"GEMINI_API_KEY", "TRYON_IMAGE_MODEL", "WEB_ADDR", "LOG_LEVEL", "RETRY_MAX_ATTEMPTS",
		"RETRY_BACKOFF", "MAX_UPLOAD_MB", "SESSION_TTL", "PREFER_IPV4",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.RetryBackoff)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.PreferIPv4)
	assert.Empty(t, cfg.ImageModel)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", " key ")
	t.Setenv("TRYON_IMAGE_MODEL", "gemini-3-pro-image-preview")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_BACKOFF", "500ms")
	t.Setenv("MAX_UPLOAD_MB", "not-a-number")
	t.Setenv("PREFER_IPV4", "false")

	cfg := FromEnv()

	assert.Equal(t, "key", cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-3-pro-image-preview", cfg.ImageModel)
	assert.Equal(t, 5, cfg.RetryMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes, "unparsable values fall back")
	assert.False(t, cfg.PreferIPv4)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	policy := cfg.RetryPolicy()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, policy.Backoff)
	assert.NotNil(t, policy.Retryable)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_API_KEY=from-dotenv\nWEB_ADDR=:9090\n"), 0o600))
	t.Chdir(dir)

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("WEB_ADDR", "")
	require.NoError(t, os.Unsetenv("GEMINI_API_KEY"))
	require.NoError(t, os.Unsetenv("WEB_ADDR"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.GeminiAPIKey)
	assert.Equal(t, ":9090", cfg.Addr)
}

func TestLoad_MissingKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}
