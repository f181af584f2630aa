package planner

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Defaults for fetching a road network.
const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second
)

// RetryPolicy bounds how often an operation is attempted and how long to wait
// between attempts. The delay is fixed.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	Clock       clockwork.Clock
}

// RetryResult reports how an attempt loop ended. Err is the last attempt's
// error, or the context error if waiting was cancelled; nil on success.
type RetryResult struct {
	Attempts int
	Err      error
}

// OK reports whether an attempt succeeded.
func (r RetryResult) OK() bool { return r.Err == nil }

// DefaultRetryPolicy returns three attempts one second apart on the real clock.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
		Clock:       clockwork.NewRealClock(),
	}
}

// Retry calls fn until it succeeds or the policy is exhausted. onFailure, if
// set, is called after every failed attempt with its 1-based number. There is
// no wait after the final attempt.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context, attempt int) (T, error), onFailure func(attempt int, err error)) (T, RetryResult) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, RetryResult{Attempts: attempt - 1, Err: err}
		}

		v, err := fn(ctx, attempt)
		if err == nil {
			return v, RetryResult{Attempts: attempt}
		}
		lastErr = err
		if onFailure != nil {
			onFailure(attempt, err)
		}

		if attempt < p.MaxAttempts && !sleepWithContext(ctx, p.Clock, p.Backoff) {
			return zero, RetryResult{Attempts: attempt, Err: ctx.Err()}
		}
	}
	return zero, RetryResult{Attempts: p.MaxAttempts, Err: lastErr}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.Clock == nil {
		p.Clock = clockwork.NewRealClock()
	}
	return p
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
