package tryon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleTokenEstimator(t *testing.T) {
	e := NewSimpleTokenEstimator()

	assert.Zero(t, e.EstimateTokens("", 0))
	assert.Equal(t, 2*imageTokens, e.EstimateTokens("", 2))

	// 40 chars / 4 * 1.2 = 12, plus 3 overhead
	assert.Equal(t, 15, e.EstimateTokens(strings.Repeat("a", 40), 0))
	assert.Equal(t, imageTokens+15, e.EstimateTokens(strings.Repeat("a", 40), 1))
}
