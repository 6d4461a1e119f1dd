package tryon

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RateLimitError is returned when a rate limit is hit.
type RateLimitError struct {
	RetryAfter time.Duration
	LimitType  string
	Model      string
	Err        error // Underlying error from the provider
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %s limit, retry after %v",
		e.Model, e.LimitType, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimitError checks if an error is a RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// StatusError carries the status reported by the upstream service for a failed call.
type StatusError struct {
	Code    int    // HTTP-style status code, e.g. 503
	Status  string // Provider status name, e.g. "UNAVAILABLE"
	Message string
	Model   string
	Err     error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned %d %s: %s", e.Model, e.Code, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// IsOverloaded reports whether err signals a temporary upstream overload
// (503 / UNAVAILABLE). It is the only place the retry classification lives.
//
// Structured status codes win; for errors that lost their structure on the
// way here, the "503" fragment in the message text is accepted as well.
func IsOverloaded(err error) bool {
	if err == nil || IsRateLimitError(err) || IsInputError(err) {
		return false
	}

	var stErr *StatusError
	if errors.As(err, &stErr) {
		return stErr.Code == http.StatusServiceUnavailable || stErr.Status == "UNAVAILABLE"
	}

	return strings.Contains(err.Error(), "503")
}

// InputError is a caller-input error: a required field was missing or malformed.
// It is detected before any upstream call and is never retried.
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError checks if an error is a caller-input error.
func IsInputError(err error) bool {
	var inErr *InputError
	return errors.As(err, &inErr)
}

// ErrStorageNotConfigured is returned when storage operations are attempted
// without a configured storage backend.
var ErrStorageNotConfigured = errors.New("storage not configured")

// ErrBusy is returned when a session step is started while another one is outstanding.
var ErrBusy = errors.New("another step is in progress")
