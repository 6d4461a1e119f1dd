// Package gemini provides a tryon.Generator implementation using Google's Gemini API.
//
// This provider uses the Gemini API backend via the official Go SDK:
// https://github.com/googleapis/go-genai
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/mhpenta/tryon"
)

// Generator implements tryon.Generator using Google's Gemini API.
type Generator struct {
	client         *genai.Client
	safetySettings []*genai.SafetySetting
	mu             sync.RWMutex
}

var _ tryon.Generator = (*Generator)(nil)

// Config configures the provider.
type Config struct {
	// APIKey for the Gemini API. Empty falls back to GOOGLE_API_KEY / GEMINI_API_KEY.
	APIKey string

	// HTTPClient is used for all upstream calls. Nil uses the SDK default.
	HTTPClient *http.Client
}

// New creates a new Generator.
func New(ctx context.Context, cfg *Config) (*Generator, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	clientCfg := &genai.ClientConfig{
		Backend:    genai.BackendGeminiAPI,
		APIKey:     cfg.APIKey,
		HTTPClient: cfg.HTTPClient,
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Generator{client: client}, nil
}

// NewWithAPIKey creates a generator with an API key for Gemini API.
func NewWithAPIKey(ctx context.Context, apiKey string) (*Generator, error) {
	return New(ctx, &Config{APIKey: apiKey})
}

// SetSafetySettings configures default safety settings for all requests.
// These can be overridden per-request via GenerateConfig.SafetySettings.
func (g *Generator) SetSafetySettings(settings []tryon.SafetySetting) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.safetySettings = convertSafetySettings(settings)
	return g
}

// Generate creates an image from a text prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, config *tryon.GenerateConfig) (*tryon.GenerateResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, &tryon.InputError{Field: "prompt", Err: tryon.ErrInputRequired}
	}
	if config == nil {
		config = tryon.DefaultConfig()
	}

	modelName := resolveModel(config, APIModelFlashImage)
	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: prompt}}},
	}

	result, err := g.client.Models.GenerateContent(ctx, modelName, contents, g.imageConfig(config))
	if err != nil {
		return nil, translateError(err, modelName, "generation")
	}
	return parseResult(result), nil
}

// Composite sends the model image, the clothing image and the instruction, in
// that order, and returns the rendered composite.
func (g *Generator) Composite(ctx context.Context, model, clothing tryon.InputImage, instruction string, config *tryon.GenerateConfig) (*tryon.GenerateResult, error) {
	if config == nil {
		config = tryon.DefaultConfig()
	}

	modelName := resolveModel(config, APIModelFlashImage)
	contents := []*genai.Content{
		{Parts: compositeParts(model, clothing, instruction)},
	}

	result, err := g.client.Models.GenerateContent(ctx, modelName, contents, g.imageConfig(config))
	if err != nil {
		return nil, translateError(err, modelName, "composite")
	}
	return parseResult(result), nil
}

// Analyze classifies a clothing image with a JSON-constrained text model.
func (g *Generator) Analyze(ctx context.Context, image tryon.InputImage, config *tryon.GenerateConfig) (*tryon.ClothingAnalysis, error) {
	if config == nil {
		config = tryon.DefaultConfig()
	}

	modelName := resolveModel(config, APIModelFlash)
	contents := []*genai.Content{
		{Parts: []*genai.Part{imagePart(image), {Text: tryon.AnalysisPrompt}}},
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema,
		SafetySettings:   g.resolveSafety(config),
	}

	result, err := g.client.Models.GenerateContent(ctx, modelName, contents, genConfig)
	if err != nil {
		return nil, translateError(err, modelName, "analysis")
	}
	return parseAnalysis(result)
}

// Models returns the model definitions supported by this provider.
// The first model of each role is the Manager's default.
func (g *Generator) Models() []tryon.ModelInfo {
	return []tryon.ModelInfo{
		FlashImageInfo,
		FlashInfo,
	}
}

// Close releases any resources held by the generator.
func (g *Generator) Close() error {
	// The genai.Client doesn't require explicit closing in the current SDK
	return nil
}

func resolveModel(config *tryon.GenerateConfig, fallback string) string {
	if config != nil && config.Model != "" {
		return string(config.Model)
	}
	return fallback
}

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"garmentType": {Type: genai.TypeString},
		"features": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"suggestedGender": {
			Type: genai.TypeString,
			Enum: []string{"male", "female", "unisex"},
		},
	},
	Required: []string{"garmentType", "features", "suggestedGender"},
}

func imagePart(img tryon.InputImage) *genai.Part {
	if len(img.Data) == 0 && img.URI != "" {
		return &genai.Part{
			FileData: &genai.FileData{
				FileURI:  img.URI,
				MIMEType: img.MIMEType,
			},
		}
	}
	return &genai.Part{
		InlineData: &genai.Blob{
			Data:     img.Data,
			MIMEType: img.MIMEType,
		},
	}
}

func compositeParts(model, clothing tryon.InputImage, instruction string) []*genai.Part {
	return []*genai.Part{
		imagePart(model),
		imagePart(clothing),
		{Text: instruction},
	}
}

// imageConfig converts our config to Gemini's GenerateContentConfig format for image output.
func (g *Generator) imageConfig(config *tryon.GenerateConfig) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	imageConfig := &genai.ImageConfig{}
	if config.Size != "" {
		imageConfig.ImageSize = config.Size.String()
	}
	if config.AspectRatio != "" {
		imageConfig.AspectRatio = config.AspectRatio.String()
	}
	genConfig.ImageConfig = imageConfig

	if config.Temperature != nil {
		genConfig.Temperature = genai.Ptr(*config.Temperature)
	}

	genConfig.SafetySettings = g.resolveSafety(config)
	return genConfig
}

// resolveSafety prefers per-request settings over provider defaults.
func (g *Generator) resolveSafety(config *tryon.GenerateConfig) []*genai.SafetySetting {
	if config != nil && len(config.SafetySettings) > 0 {
		return convertSafetySettings(config.SafetySettings)
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.safetySettings
}

func convertSafetySettings(settings []tryon.SafetySetting) []*genai.SafetySetting {
	result := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		result = append(result, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return result
}

// parseResult converts a Gemini response to our result type. A response with
// no candidates or no inline image is still a success; the result just has no images.
func parseResult(result *genai.GenerateContentResponse) *tryon.GenerateResult {
	genResult := &tryon.GenerateResult{
		Images: make([]tryon.GeneratedImage, 0),
	}
	if result == nil {
		return genResult
	}

	var text []string
	for _, candidate := range result.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			if part.Text != "" {
				text = append(text, part.Text)
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				genResult.Images = append(genResult.Images, tryon.GeneratedImage{
					Data:     part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
				})
			}
		}
	}
	genResult.Text = strings.Join(text, "\n")

	if result.UsageMetadata != nil {
		genResult.UsageMetadata = &tryon.UsageMetadata{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CandidatesTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}
	return genResult
}

// ErrEmptyAnalysis is returned when the classifier answers with no text.
var ErrEmptyAnalysis = errors.New("analysis returned no content")

func parseAnalysis(result *genai.GenerateContentResponse) (*tryon.ClothingAnalysis, error) {
	raw := strings.TrimSpace(parseResult(result).Text)
	if raw == "" {
		return nil, ErrEmptyAnalysis
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var analysis tryon.ClothingAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &analysis); err != nil {
		return nil, fmt.Errorf("decoding analysis: %w", err)
	}
	return &analysis, nil
}

// translateError maps SDK errors onto the tryon error taxonomy. Quota errors
// become a RateLimitError; every other API error keeps its status in a StatusError.
func translateError(err error, model, op string) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s failed: %w", op, err)
	}

	if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
		return &tryon.RateLimitError{
			RetryAfter: 60 * time.Second, // API doesn't reliably provide Retry-After
			LimitType:  "requests",
			Model:      model,
			Err:        err,
		}
	}

	return &tryon.StatusError{
		Code:    apiErr.Code,
		Status:  apiErr.Status,
		Message: apiErr.Message,
		Model:   model,
		Err:     err,
	}
}
