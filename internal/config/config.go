// Package config loads the try-on server settings from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mhpenta/tryon"
)

type Config struct {
	GeminiAPIKey  string
	ImageModel    string
	AnalysisModel string

	Addr     string
	LogLevel string

	PreferIPv4     bool
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration

	RetryMaxAttempts int
	RetryBackoff     time.Duration

	MaxUploadBytes int64
	OutputDir      string
	SessionTTL     time.Duration
}

// Load reads .env (if any) and the environment, then validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv reads the environment without validating.
func FromEnv() Config {
	return Config{
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		ImageModel:       getEnv("TRYON_IMAGE_MODEL", ""),
		AnalysisModel:    getEnv("TRYON_ANALYSIS_MODEL", ""),
		Addr:             getEnv("WEB_ADDR", ":8080"),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		PreferIPv4:       getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 240)) * time.Second,
		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", tryon.DefaultMaxAttempts),
		RetryBackoff:     getEnvDuration("RETRY_BACKOFF", tryon.DefaultRetryBackoff),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", 25)) << 20,
		OutputDir:        getEnv("OUTPUT_DIR", ""),
		SessionTTL:       getEnvDuration("SESSION_TTL", time.Hour),
	}
}

func (c Config) Validate() error {
	switch {
	case c.GeminiAPIKey == "":
		return errors.New("GEMINI_API_KEY is required")
	case c.Addr == "":
		return errors.New("WEB_ADDR must not be empty")
	case c.RetryMaxAttempts < 1:
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts)
	case c.RetryBackoff < 0:
		return fmt.Errorf("RETRY_BACKOFF must not be negative, got %s", c.RetryBackoff)
	case c.HTTPTimeout <= 0:
		return errors.New("HTTP_TIMEOUT_SECONDS must be positive")
	case c.RequestTimeout <= 0:
		return errors.New("REQUEST_TIMEOUT_SECONDS must be positive")
	case c.MaxUploadBytes <= 0:
		return errors.New("MAX_UPLOAD_MB must be positive")
	case c.SessionTTL <= 0:
		return errors.New("SESSION_TTL must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// RetryPolicy is the default policy with the configured budget and backoff.
func (c Config) RetryPolicy() tryon.RetryPolicy {
	p := tryon.DefaultRetryPolicy()
	p.MaxAttempts = c.RetryMaxAttempts
	p.Backoff = c.RetryBackoff
	return p
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
