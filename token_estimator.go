package tryon

import (
	"math"
)

// imageTokens is the flat token cost Gemini charges per input image up to 384px tiles.
const imageTokens = 258

// TokenEstimator estimates request size for local rate limiting.
type TokenEstimator interface {
	EstimateTokens(text string, images int) int
}

// SimpleTokenEstimator is a character-count approximation.
type SimpleTokenEstimator struct {
	SafetyMargin float64
}

func NewSimpleTokenEstimator() *SimpleTokenEstimator {
	return &SimpleTokenEstimator{
		SafetyMargin: 1.2,
	}
}

func (e *SimpleTokenEstimator) EstimateTokens(text string, images int) int {
	total := images * imageTokens
	if text == "" {
		return total
	}

	charCount := len([]rune(text))
	tokenEstimate := float64(charCount) / 4.0
	tokenEstimate *= e.SafetyMargin

	return total + int(math.Ceil(tokenEstimate)) + 3
}
