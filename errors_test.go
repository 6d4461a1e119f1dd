package tryon

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsOverloaded(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status 503", &StatusError{Code: 503}, true},
		{"status UNAVAILABLE", &StatusError{Status: "UNAVAILABLE"}, true},
		{"wrapped 503", fmt.Errorf("composite: %w", &StatusError{Code: 503}), true},
		{"status 500", &StatusError{Code: 500, Status: "INTERNAL"}, false},
		{"status 400 mentioning 503 in message", &StatusError{Code: 400, Message: "image 503.png unreadable"}, false},
		{"plain text 503", errors.New("Error 503, Message: model overloaded"), true},
		{"plain text other", errors.New("connection reset by peer"), false},
		{"rate limit", &RateLimitError{RetryAfter: time.Minute, LimitType: "requests"}, false},
		{"input error", &InputError{Field: "clothingImage", Err: ErrInputRequired}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOverloaded(tt.err))
		})
	}
}

func TestInputError(t *testing.T) {
	err := error(&InputError{Field: "modelImage", Err: ErrInputRequired})

	assert.True(t, IsInputError(err))
	assert.True(t, IsInputError(fmt.Errorf("step: %w", err)))
	assert.ErrorIs(t, err, ErrInputRequired)
	assert.Equal(t, "invalid modelImage: value is required", err.Error())
	assert.False(t, IsInputError(errors.New("other")))
}

func TestStatusError(t *testing.T) {
	base := errors.New("sdk error")
	err := &StatusError{Code: 503, Status: "UNAVAILABLE", Message: "overloaded", Model: "image-model", Err: base}

	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "image-model")
}

func TestRateLimitError(t *testing.T) {
	base := errors.New("quota")
	err := fmt.Errorf("wrapped: %w", &RateLimitError{RetryAfter: time.Second, LimitType: "tokens", Model: "m", Err: base})

	assert.True(t, IsRateLimitError(err))
	assert.ErrorIs(t, err, base)
}
