package tryon

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(rec *timerRecorder) RetryPolicy {
	p := DefaultRetryPolicy()
	p.NewTimer = rec.NewTimer
	return p
}

func TestRetry_AlwaysOverloaded(t *testing.T) {
	rec := &timerRecorder{}
	var errs []error

	_, attempts, err := Retry(context.Background(), testPolicy(rec), func(_ context.Context, attempt int) (*GenerateResult, error) {
		e := fmt.Errorf("attempt %d: %w", attempt, overloaded())
		errs = append(errs, e)
		return nil, e
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	require.Len(t, errs, 3)
	assert.Same(t, errs[2], err, "last observed error is returned unmodified")
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, rec.Waits())
}

func TestRetry_NonRetryableFailsFast(t *testing.T) {
	rec := &timerRecorder{}
	want := &StatusError{Code: 400, Status: "INVALID_ARGUMENT", Message: "bad image"}

	_, attempts, err := Retry(context.Background(), testPolicy(rec), func(context.Context, int) (*GenerateResult, error) {
		return nil, want
	})

	assert.Same(t, want, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.Waits())
}

func TestRetry_RecoversOnSecondAttempt(t *testing.T) {
	rec := &timerRecorder{}

	got, attempts, err := Retry(context.Background(), testPolicy(rec), func(_ context.Context, attempt int) (*GenerateResult, error) {
		if attempt == 1 {
			return nil, overloaded()
		}
		return imageResult(fmt.Sprintf("attempt-%d", attempt)), nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []byte("attempt-2"), got.FirstImage().Data)
	assert.Equal(t, []time.Duration{3 * time.Second}, rec.Waits())
}

func TestRetry_EmptyPayloadIsSuccess(t *testing.T) {
	rec := &timerRecorder{}

	got, attempts, err := Retry(context.Background(), testPolicy(rec), func(context.Context, int) (*GenerateResult, error) {
		return &GenerateResult{Text: "no image today"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Nil(t, got.FirstImage())
	assert.Empty(t, rec.Waits())
}

func TestRetry_PlainTextOverload(t *testing.T) {
	rec := &timerRecorder{}

	_, attempts, err := Retry(context.Background(), testPolicy(rec), func(context.Context, int) (int, error) {
		return 0, errors.New("upstream said: 503 Service Unavailable")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, rec.Waits(), 2)
}

func TestRetry_RateLimitNotRetried(t *testing.T) {
	rec := &timerRecorder{}
	rlErr := &RateLimitError{LimitType: "tokens", Model: "image-model"}

	_, attempts, err := Retry(context.Background(), testPolicy(rec), func(context.Context, int) (int, error) {
		return 0, rlErr
	})

	assert.Same(t, rlErr, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy := DefaultRetryPolicy()
	policy.NewTimer = func() backoff.Timer { return &neverTimer{c: make(chan time.Time)} }
	policy.OnRetry = func(RetryState, time.Duration) { cancel() }

	_, attempts, err := Retry(ctx, policy, func(context.Context, int) (int, error) {
		return 0, overloaded()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ContextCanceledDuringLastAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &timerRecorder{}
	var last error

	_, attempts, err := Retry(ctx, testPolicy(rec), func(_ context.Context, attempt int) (int, error) {
		if attempt == 3 {
			cancel()
			last = fmt.Errorf("final attempt: %w", overloaded())
			return 0, last
		}
		return 0, overloaded()
	})

	assert.Equal(t, 3, attempts)
	assert.Same(t, last, err, "a spent budget reports the upstream error, not the cancellation")
	assert.NotErrorIs(t, err, context.Canceled)
}

func TestRetry_OnRetryState(t *testing.T) {
	rec := &timerRecorder{}
	policy := testPolicy(rec)

	var states []RetryState
	policy.OnRetry = func(s RetryState, wait time.Duration) {
		assert.Equal(t, 3*time.Second, wait)
		states = append(states, s)
	}

	_, _, _ = Retry(context.Background(), policy, func(context.Context, int) (int, error) {
		return 0, overloaded()
	})

	require.Len(t, states, 2)
	assert.Equal(t, 1, states[0].Attempt)
	assert.Equal(t, 2, states[1].Attempt)
	assert.True(t, IsOverloaded(states[1].LastErr))
}

func TestRetryPolicy_Normalized(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 0, Backoff: -time.Second}.normalized()

	assert.Equal(t, 1, p.MaxAttempts)
	assert.Zero(t, p.Backoff)
	require.NotNil(t, p.Retryable)
	assert.True(t, p.Retryable(overloaded()))
}

func TestRetry_SingleAttemptBudget(t *testing.T) {
	rec := &timerRecorder{}
	policy := testPolicy(rec)
	policy.MaxAttempts = 1

	_, attempts, err := Retry(context.Background(), policy, func(context.Context, int) (int, error) {
		return 0, overloaded()
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.Waits())
}

type neverTimer struct {
	c chan time.Time
}

func (t *neverTimer) Start(time.Duration) {}
func (t *neverTimer) Stop()               {}
func (t *neverTimer) C() <-chan time.Time { return t.c }
