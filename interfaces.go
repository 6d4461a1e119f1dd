package tryon

import "context"

// Generator is the upstream provider contract. One call on it is one network
// round trip; retries are the Manager's business.
type Generator interface {
	// Generate creates an image from a text prompt.
	Generate(ctx context.Context, prompt string, genConfig *GenerateConfig) (*GenerateResult, error)

	// Composite renders the clothing image onto the model image following the instruction.
	Composite(ctx context.Context, model, clothing InputImage, instruction string, genConfig *GenerateConfig) (*GenerateResult, error)

	// Analyze classifies a clothing image.
	Analyze(ctx context.Context, image InputImage, genConfig *GenerateConfig) (*ClothingAnalysis, error)

	// Models returns the model definitions supported by this provider.
	Models() []ModelInfo

	// Close releases any resources held by the generator.
	Close() error
}
