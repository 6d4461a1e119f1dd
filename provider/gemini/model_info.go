package gemini

import "github.com/mhpenta/tryon"

// API model names.
const (
	// APIModelFlashImage is Gemini 2.5 Flash Image, used for model generation and composites.
	APIModelFlashImage = "gemini-2.5-flash-image"

	// APIModelFlash is Gemini 2.5 Flash, used for clothing analysis.
	APIModelFlash = "gemini-2.5-flash"
)

// FlashImageInfo describes the image model.
var FlashImageInfo = tryon.ModelInfo{
	Name:           APIModelFlashImage,
	Provider:       tryon.ProviderGeminiAPI,
	Role:           tryon.RoleImage,
	MaxInputImages: 3,

	RateLimits: tryon.RateLimits{
		TokensPerMinute:   4000000,
		RequestsPerMinute: 500, // ~500 RPM for Tier 1
	},
}

// FlashInfo describes the analysis model.
var FlashInfo = tryon.ModelInfo{
	Name:           APIModelFlash,
	Provider:       tryon.ProviderGeminiAPI,
	Role:           tryon.RoleAnalysis,
	MaxInputImages: 1,

	RateLimits: tryon.RateLimits{
		TokensPerMinute:   1000000,
		RequestsPerMinute: 1000,
	},
}
