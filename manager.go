package tryon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mhpenta/tryon/ratelimiter"
)

var (
	// ErrNoModelForRole is returned when the provider offers no model for an operation.
	ErrNoModelForRole = errors.New("no model registered for role")
)

// Manager orchestrates the try-on steps against a Generator: clothing
// analysis, model generation and view composites. Image generations go
// through the retry policy; analysis is a single call.
type Manager struct {
	generator Generator

	imageModel    Model
	analysisModel Model

	// Rate limiting (per model)
	rateLimiters map[Model]ratelimiter.Limiter

	modelInfo map[Model]*ModelInfo

	retry RetryPolicy

	logger *slog.Logger

	// Storage for persisting generated images (optional)
	storage Storage

	tokenEstimator TokenEstimator

	mu sync.RWMutex
}

// AnalyzeClothing classifies a clothing image. It is not retried.
func (m *Manager) AnalyzeClothing(ctx context.Context, image InputImage, config *GenerateConfig) (*ClothingAnalysis, error) {
	if err := ValidateInputImage("clothingImage", image); err != nil {
		return nil, err
	}
	if config == nil {
		config = DefaultConfig()
	}

	model := m.resolveModel(config, RoleAnalysis)
	if model == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoModelForRole, RoleAnalysis)
	}
	start := time.Now()

	m.logger.Debug("starting clothing analysis",
		"model", string(model),
		"image_size", len(image.Data),
	)

	if err := m.checkRateLimit(ctx, model, config, AnalysisPrompt, 1); err != nil {
		m.logger.Warn("rate limit hit for analysis", "model", string(model), "error", err.Error())
		return nil, err
	}

	analysis, err := m.generator.Analyze(ctx, image, config.WithModel(model))
	duration := time.Since(start)
	if err != nil {
		m.logger.Error("analysis failed",
			"model", string(model),
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return nil, err
	}

	m.logger.Info("analysis completed",
		"model", string(model),
		"duration_ms", duration.Milliseconds(),
		"garment_type", analysis.GarmentType,
		"features", len(analysis.Features),
	)
	return analysis, nil
}

// GenerateModel creates the synthetic human model image from a description.
func (m *Manager) GenerateModel(ctx context.Context, req ModelRequest, config *GenerateConfig) (*GenerationResult, error) {
	if err := ValidateModelRequest(req); err != nil {
		return nil, err
	}
	if config == nil {
		config = DefaultConfig()
	}

	model := m.resolveModel(config, RoleImage)
	if model == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoModelForRole, RoleImage)
	}
	prompt := ModelPrompt(req.Description)
	log := m.logger.With("op", "generate_model", "model", string(model))

	return m.generate(ctx, log, func(ctx context.Context) (*GenerateResult, error) {
		if err := m.checkRateLimit(ctx, model, config, prompt, 0); err != nil {
			return nil, err
		}
		return m.generator.Generate(ctx, prompt, config.WithModel(model))
	})
}

// GenerateView composites the clothing onto the model from req.Angle.
// An invalid request fails before any upstream call.
func (m *Manager) GenerateView(ctx context.Context, req GenerationRequest, config *GenerateConfig) (*GenerationResult, error) {
	if err := ValidateGenerationRequest(req); err != nil {
		return nil, err
	}
	if config == nil {
		config = DefaultConfig()
	}

	model := m.resolveModel(config, RoleImage)
	if model == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoModelForRole, RoleImage)
	}
	instruction := CompositeInstruction(req)
	log := m.logger.With("op", "composite", "model", string(model), "angle", string(req.Angle))

	result, err := m.generate(ctx, log, func(ctx context.Context) (*GenerateResult, error) {
		if err := m.checkRateLimit(ctx, model, config, instruction, 2); err != nil {
			return nil, err
		}
		return m.generator.Composite(ctx, req.Model, req.Clothing, instruction, config.WithModel(model))
	})
	if err != nil {
		return nil, err
	}
	result.Angle = req.Angle
	return result, nil
}

// GenerateViews issues one composite per angle without waiting on each other
// and joins them. Results are in the order of angles; with no angles given,
// all three are generated. The first failure is returned.
func (m *Manager) GenerateViews(ctx context.Context, req GenerationRequest, angles []ViewAngle, config *GenerateConfig) ([]*GenerationResult, error) {
	if len(angles) == 0 {
		angles = AllViewAngles()
	}
	for _, a := range angles {
		if err := ValidateGenerationRequest(req.WithAngle(a)); err != nil {
			return nil, err
		}
	}

	results := make([]*GenerationResult, len(angles))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, a := range angles {
		eg.Go(func() error {
			res, err := m.GenerateView(egCtx, req.WithAngle(a), config)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// generate runs one image call under the retry policy and converts the result.
func (m *Manager) generate(ctx context.Context, log *slog.Logger, call func(ctx context.Context) (*GenerateResult, error)) (*GenerationResult, error) {
	m.mu.RLock()
	policy := m.retry
	m.mu.RUnlock()

	policy.OnRetry = func(state RetryState, wait time.Duration) {
		log.Warn("upstream overloaded, retrying",
			"attempt", state.Attempt,
			"max_attempts", policy.MaxAttempts,
			"backoff", wait.String(),
			"error", state.LastErr.Error(),
		)
	}

	start := time.Now()
	log.Debug("starting image generation")

	raw, attempts, err := Retry(ctx, policy, func(ctx context.Context, _ int) (*GenerateResult, error) {
		return call(ctx)
	})
	duration := time.Since(start)
	if err != nil {
		log.Error("image generation failed",
			"attempts", attempts,
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return nil, err
	}

	out := &GenerationResult{Image: raw.FirstImage(), Attempts: attempts}
	if raw != nil {
		out.Text = raw.Text
	}

	logAttrs := []any{
		"attempts", attempts,
		"duration_ms", duration.Milliseconds(),
	}
	if raw != nil && raw.UsageMetadata != nil {
		logAttrs = append(logAttrs,
			"prompt_tokens", raw.UsageMetadata.PromptTokens,
			"total_tokens", raw.UsageMetadata.TotalTokens,
		)
	}
	if out.Empty() {
		log.Warn("upstream returned no image", logAttrs...)
	} else {
		log.Info("image generation completed", logAttrs...)
	}
	return out, nil
}

// SetRateLimiter sets a custom rate limiter for a model.
// Use this to swap in a distributed rate limiter (e.g., Redis-based) for production.
func (m *Manager) SetRateLimiter(model Model, limiter ratelimiter.Limiter) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rateLimiters[model] = limiter
	return m
}

// Storage returns the configured storage backend, or nil if not set.
func (m *Manager) Storage() Storage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.storage
}

// SaveResult saves the image of a GenerationResult to the configured storage.
func (m *Manager) SaveResult(ctx context.Context, result *GenerationResult, name string) (*StorageResult, error) {
	m.mu.RLock()
	storage := m.storage
	m.mu.RUnlock()

	return SaveToStorage(ctx, storage, result, name)
}

// ImageModel returns the model used for generation and composites.
func (m *Manager) ImageModel() Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.imageModel
}

// AnalysisModel returns the model used for clothing analysis.
func (m *Manager) AnalysisModel() Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.analysisModel
}

// GetModelInfo returns model information for a specific model.
func (m *Manager) GetModelInfo(model Model) (*ModelInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.modelInfo[model]
	return info, ok
}

// Close releases provider resources.
func (m *Manager) Close() error {
	if err := m.generator.Close(); err != nil {
		return fmt.Errorf("closing generator: %w", err)
	}
	return nil
}

// checkRateLimit checks rate limits for a model and optionally waits.
func (m *Manager) checkRateLimit(ctx context.Context, model Model, config *GenerateConfig, prompt string, images int) error {
	const tokenBuffer = 100

	m.mu.RLock()
	limiter := m.rateLimiters[model]
	m.mu.RUnlock()

	if limiter == nil {
		return nil
	}

	estimatedTokens := m.tokenEstimator.EstimateTokens(prompt, images) + tokenBuffer

	if config.WaitOnRateLimit {
		if err := limiter.WaitAndConsume(ctx, estimatedTokens, config.MaxWaitDuration); err != nil {
			return &RateLimitError{
				RetryAfter: limiter.TimeUntilAvailable(estimatedTokens),
				LimitType:  "tokens",
				Model:      string(model),
				Err:        err,
			}
		}
		return nil
	}

	if !limiter.TryConsume(estimatedTokens) {
		return &RateLimitError{
			RetryAfter: limiter.TimeUntilAvailable(estimatedTokens),
			LimitType:  "tokens",
			Model:      string(model),
		}
	}

	return nil
}

// resolveModel picks config.Model or the manager default for the role.
func (m *Manager) resolveModel(config *GenerateConfig, role ModelRole) Model {
	if config != nil && config.Model != "" {
		return config.Model
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if role == RoleAnalysis {
		return m.analysisModel
	}
	return m.imageModel
}
