// Package ratelimiter keeps local request and token budgets per upstream model,
// so bursts of try-on traffic are smoothed before they reach the provider.
package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiters.
// Implementations can be local (in-memory) or distributed (Redis, etc.).
type Limiter interface {
	// TryConsume atomically checks capacity and consumes tokens if available.
	// Returns true if tokens were consumed, false if insufficient capacity.
	TryConsume(numTokens int) bool

	// TimeUntilAvailable returns how long until tokens would be available (read-only).
	TimeUntilAvailable(tokens int) time.Duration

	// WaitAndConsume waits until tokens are available, then consumes them.
	// Returns error if context is cancelled or maxWait is exceeded.
	WaitAndConsume(ctx context.Context, tokens int, maxWait time.Duration) error
}

// RateLimiter pairs a per-minute token budget with a per-minute request budget.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   *rate.Limiter
	requests *rate.Limiter
}

// Ensure RateLimiter implements Limiter.
var _ Limiter = (*RateLimiter)(nil)

// New creates a limiter refilled continuously over one minute.
// A non-positive budget disables that dimension.
func New(tokensPerMinute, requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		tokens:   perMinute(tokensPerMinute),
		requests: perMinute(requestsPerMinute),
	}
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(n)/time.Minute.Seconds()), n)
}

// TryConsume takes numTokens and one request if both are available right now.
func (rl *RateLimiter) TryConsume(numTokens int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	tr := rl.tokens.ReserveN(now, numTokens)
	if !tr.OK() || tr.DelayFrom(now) > 0 {
		tr.CancelAt(now)
		return false
	}
	rr := rl.requests.ReserveN(now, 1)
	if !rr.OK() || rr.DelayFrom(now) > 0 {
		rr.CancelAt(now)
		tr.CancelAt(now)
		return false
	}
	return true
}

// TimeUntilAvailable returns how long until the specified tokens would be available.
// It returns rate.InfDuration when the request can never fit the budget.
func (rl *RateLimiter) TimeUntilAvailable(tokens int) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	tr := rl.tokens.ReserveN(now, tokens)
	defer tr.CancelAt(now)
	rr := rl.requests.ReserveN(now, 1)
	defer rr.CancelAt(now)

	if !tr.OK() || !rr.OK() {
		return rate.InfDuration
	}
	return max(tr.DelayFrom(now), rr.DelayFrom(now))
}

// WaitAndConsume waits until tokens are available (up to maxWait), then consumes them.
// If maxWait is 0, there is no limit on how long to wait. Tokens and the request
// slot are reserved together; on any failure both are handed back.
func (rl *RateLimiter) WaitAndConsume(ctx context.Context, tokens int, maxWait time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rate limit wait for %d tokens: %w", tokens, err)
	}

	rl.mu.Lock()
	now := time.Now()
	tr := rl.tokens.ReserveN(now, tokens)
	if !tr.OK() {
		rl.mu.Unlock()
		return fmt.Errorf("rate limit: %d tokens exceed the burst", tokens)
	}
	rr := rl.requests.ReserveN(now, 1)
	if !rr.OK() {
		tr.CancelAt(now)
		rl.mu.Unlock()
		return errors.New("rate limit: no request slot available")
	}
	delay := max(tr.DelayFrom(now), rr.DelayFrom(now))
	if maxWait > 0 && delay > maxWait {
		rr.CancelAt(now)
		tr.CancelAt(now)
		rl.mu.Unlock()
		return fmt.Errorf("rate limit wait for %d tokens: %s exceeds max wait %s", tokens, delay, maxWait)
	}
	rl.mu.Unlock()

	if delay == 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		rl.mu.Lock()
		now := time.Now()
		rr.CancelAt(now)
		tr.CancelAt(now)
		rl.mu.Unlock()
		return fmt.Errorf("rate limit wait for %d tokens: %w", tokens, ctx.Err())
	}
}
