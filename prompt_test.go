package tryon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewInstruction(t *testing.T) {
	assert.Contains(t, ViewInstruction(ViewFront), "forward-facing")
	assert.Contains(t, ViewInstruction(ViewSide), "90-degree profile view")
	assert.Contains(t, ViewInstruction(ViewBack), "180-degree rear view")

	seen := map[string]bool{}
	for _, a := range AllViewAngles() {
		seen[ViewInstruction(a)] = true
	}
	assert.Len(t, seen, 3, "every angle has its own instruction")
}

func TestCompositeInstruction(t *testing.T) {
	req := validRequest(ViewBack)
	got := CompositeInstruction(req)

	assert.Contains(t, got, "Model: a tall female model in a neutral pose")
	assert.Contains(t, got, "Clothing: red floral summer dress")
	assert.True(t, strings.Index(got, "first image is a fashion model") < strings.Index(got, "Clothing:"))
	assert.Contains(t, got, ViewInstruction(ViewBack))
	assert.NotContains(t, got, ViewInstruction(ViewFront))
}

func TestModelPrompt(t *testing.T) {
	got := ModelPrompt("  a male model in his 40s  ")
	assert.Contains(t, got, "of a male model in his 40s.")
}
