package tryon

// Provider represents a model provider/backend.
type Provider string

const (
	ProviderGeminiAPI Provider = "gemini"
)

// ModelRole is what the Manager uses a model for.
type ModelRole string

const (
	RoleImage    ModelRole = "image"    // text-to-image and composites
	RoleAnalysis ModelRole = "analysis" // clothing classification
)

// RateLimits defines rate limiting parameters for a model.
type RateLimits struct {
	TokensPerMinute   int
	RequestsPerMinute int
}

// ModelInfo contains metadata for a model.
type ModelInfo struct {
	Name     Model    // API model name (e.g., "gemini-2.5-flash-image")
	Provider Provider // Which provider serves this model
	Role     ModelRole

	MaxInputImages int

	RateLimits RateLimits
}
