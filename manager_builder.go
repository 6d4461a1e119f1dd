package tryon

import (
	"log/slog"

	"github.com/mhpenta/tryon/ratelimiter"
)

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLogger sets a structured logger for the manager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithStorage sets a storage backend for persisting generated images.
func WithStorage(storage Storage) ManagerOption {
	return func(m *Manager) {
		m.storage = storage
	}
}

// WithRetryPolicy replaces the default 3 attempts / 3 second policy.
func WithRetryPolicy(policy RetryPolicy) ManagerOption {
	return func(m *Manager) {
		m.retry = policy
	}
}

// WithImageModel overrides the model used for model generation and composites.
func WithImageModel(model Model) ManagerOption {
	return func(m *Manager) {
		m.imageModel = model
	}
}

// WithAnalysisModel overrides the model used for clothing analysis.
func WithAnalysisModel(model Model) ManagerOption {
	return func(m *Manager) {
		m.analysisModel = model
	}
}

// WithoutRateLimits disables the local per-model limiters.
func WithoutRateLimits() ManagerOption {
	return func(m *Manager) {
		m.rateLimiters = make(map[Model]ratelimiter.Limiter)
	}
}

// NewManager creates a Manager over a provider. The first model the provider
// lists for each role becomes the default for that role.
//
// Example:
//
//	gen, err := gemini.NewWithAPIKey(ctx, apiKey)
//	if err != nil {
//	    return err
//	}
//	manager := tryon.NewManager(gen, tryon.WithLogger(slog.Default()))
func NewManager(gen Generator, opts ...ManagerOption) *Manager {
	m := &Manager{
		generator:      gen,
		logger:         slog.Default(),
		rateLimiters:   make(map[Model]ratelimiter.Limiter),
		modelInfo:      make(map[Model]*ModelInfo),
		retry:          DefaultRetryPolicy(),
		tokenEstimator: NewSimpleTokenEstimator(),
	}

	models := gen.Models()
	for i := range models {
		info := &models[i]
		m.modelInfo[info.Name] = info

		switch {
		case info.Role == RoleImage && m.imageModel == "":
			m.imageModel = info.Name
		case info.Role == RoleAnalysis && m.analysisModel == "":
			m.analysisModel = info.Name
		}

		if info.RateLimits.TokensPerMinute > 0 || info.RateLimits.RequestsPerMinute > 0 {
			m.rateLimiters[info.Name] = ratelimiter.New(
				info.RateLimits.TokensPerMinute,
				info.RateLimits.RequestsPerMinute,
			)
		}
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}
