package tryon

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxAttempts is the attempt budget for one logical request.
	DefaultMaxAttempts = 3

	// DefaultRetryBackoff is the flat wait between attempts.
	DefaultRetryBackoff = 3 * time.Second
)

// RetryPolicy configures Retry.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int

	// Backoff is the fixed wait between a retryable failure and the next attempt.
	Backoff time.Duration

	// Retryable classifies an error. Nil means IsOverloaded.
	Retryable func(error) bool

	// NewTimer builds the timer used for backoff waits. Nil uses a real timer.
	NewTimer func() backoff.Timer

	// OnRetry is called before each backoff wait.
	OnRetry func(state RetryState, wait time.Duration)
}

// RetryState is the bookkeeping of one Retry call.
type RetryState struct {
	Attempt int
	LastErr error
}

// DefaultRetryPolicy returns 3 attempts with a 3 second flat backoff, retrying only on overload.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultRetryBackoff,
		Retryable:   IsOverloaded,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsOverloaded
	}
	return p
}

// Retry runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget runs out. Attempts are strictly sequential. Errors are
// returned exactly as op produced them; on exhaustion the last one wins.
// The number of attempts made is returned alongside.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	policy = policy.normalized()

	var (
		result T
		state  RetryState
	)

	operation := func() error {
		state.Attempt++
		v, err := op(ctx, state.Attempt)
		if err != nil {
			state.LastErr = err
			if !policy.Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(policy.Backoff)
	b = backoff.WithMaxRetries(b, uint64(policy.MaxAttempts-1))
	b = backoff.WithContext(b, ctx)

	notify := func(_ error, wait time.Duration) {
		if policy.OnRetry != nil {
			policy.OnRetry(state, wait)
		}
	}

	var timer backoff.Timer
	if policy.NewTimer != nil {
		timer = policy.NewTimer()
	}

	if err := backoff.RetryNotifyWithTimer(operation, b, notify, timer); err != nil {
		var zero T
		// backoff reports ctx.Err() whenever the context is done, even when the
		// budget was already spent; the final attempt's own error wins then.
		if state.Attempt >= policy.MaxAttempts && state.LastErr != nil {
			return zero, state.Attempt, state.LastErr
		}
		return zero, state.Attempt, err
	}
	return result, state.Attempt, nil
}
