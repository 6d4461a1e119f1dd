package tryon

import (
	"time"
)

// Model represents a specific upstream model.
type Model string

// ImageSize represents the output resolution for generated images.
type ImageSize string

const (
	ImageSize1K ImageSize = "1K"
	ImageSize2K ImageSize = "2K"
)

// AspectRatio represents the aspect ratio for generated images.
type AspectRatio string

const (
	AspectRatio1x1  AspectRatio = "1:1"
	AspectRatio3x4  AspectRatio = "3:4" // Full-body portrait
	AspectRatio2x3  AspectRatio = "2:3"
	AspectRatio9x16 AspectRatio = "9:16"
	AspectRatioAuto AspectRatio = ""
)

// GenerateConfig holds per-call options passed down to the provider.
type GenerateConfig struct {
	// Model to use (if empty, uses the manager's default for the operation)
	Model Model

	// Size of the output image
	Size ImageSize

	// AspectRatio of the output image
	AspectRatio AspectRatio

	// Temperature controls randomness (0.0-2.0)
	Temperature *float32

	// SafetySettings for content filtering
	SafetySettings []SafetySetting

	// WaitOnRateLimit, if true, causes the Manager to wait for local rate limit capacity.
	// If false, a RateLimitError is returned immediately.
	WaitOnRateLimit bool

	// MaxWaitDuration is the maximum time to wait when WaitOnRateLimit is true.
	// Zero means no limit.
	MaxWaitDuration time.Duration
}

// WithModel returns a copy of the config with the specified model.
func (c *GenerateConfig) WithModel(model Model) *GenerateConfig {
	if c == nil {
		return &GenerateConfig{Model: model}
	}
	cX := *c
	cX.Model = model
	return &cX
}

// DefaultConfig returns a GenerateConfig tuned for full-body fashion shots.
func DefaultConfig() *GenerateConfig {
	temp := float32(0.8)
	return &GenerateConfig{
		Size:            ImageSize1K,
		AspectRatio:     AspectRatio3x4,
		Temperature:     &temp,
		WaitOnRateLimit: true,
		MaxWaitDuration: 30 * time.Second,
	}
}

// InputImage is an opaque image reference sent upstream.
type InputImage struct {
	// Data is the raw image bytes
	Data []byte

	// MIMEType of the image (e.g., "image/jpeg", "image/png")
	MIMEType string

	// URI is an optional URI reference (for cloud-stored images)
	URI string
}

// IsEmpty reports whether the image carries neither bytes nor a URI.
func (img InputImage) IsEmpty() bool {
	return len(img.Data) == 0 && img.URI == ""
}

func (s ImageSize) String() string {
	return string(s)
}

func (a AspectRatio) String() string {
	return string(a)
}

func (m Model) String() string {
	return string(m)
}
