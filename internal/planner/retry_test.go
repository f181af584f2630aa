package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnavailable = errors.New("overpass unavailable")

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	v, res := Retry(context.Background(), RetryPolicy{MaxAttempts: 3}, func(_ context.Context, _ int) (string, error) {
		calls++
		return "graph", nil
	}, nil)

	assert.True(t, res.OK())
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "graph", v)
	assert.Equal(t, 1, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	var failures []int
	_, res := Retry(context.Background(), RetryPolicy{MaxAttempts: 3}, func(_ context.Context, _ int) (int, error) {
		return 0, errUnavailable
	}, func(attempt int, err error) {
		assert.ErrorIs(t, err, errUnavailable)
		failures = append(failures, attempt)
	})

	assert.False(t, res.OK())
	assert.Equal(t, 3, res.Attempts)
	assert.ErrorIs(t, res.Err, errUnavailable)
	assert.Equal(t, []int{1, 2, 3}, failures)
}

func TestRetryPolicy_WithDefaults(t *testing.T) {
	p := RetryPolicy{Backoff: -time.Second}.withDefaults()

	assert.Equal(t, DefaultMaxAttempts, p.MaxAttempts)
	assert.Zero(t, p.Backoff)
	assert.NotNil(t, p.Clock)

	d := DefaultRetryPolicy()
	assert.Equal(t, 3, d.MaxAttempts)
	assert.Equal(t, time.Second, d.Backoff)
}

func TestRetry_WaitsBackoffBetweenAttempts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	policy := RetryPolicy{MaxAttempts: 3, Backoff: time.Second, Clock: clock}

	type result struct {
		v   int
		res RetryResult
	}
	done := make(chan result, 1)
	go func() {
		v, res := Retry(context.Background(), policy, func(_ context.Context, attempt int) (int, error) {
			if attempt < 2 {
				return 0, errUnavailable
			}
			return attempt, nil
		}, nil)
		done <- result{v, res}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	select {
	case <-done:
		t.Fatal("retry finished before the backoff elapsed")
	default:
	}

	clock.Advance(time.Second)

	select {
	case r := <-done:
		assert.True(t, r.res.OK())
		assert.Equal(t, 2, r.res.Attempts)
		assert.Equal(t, 2, r.v)
	case <-ctx.Done():
		t.Fatal("retry did not resume after the backoff")
	}
}

func TestRetry_CancelDuringBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	policy := RetryPolicy{MaxAttempts: 3, Backoff: time.Second, Clock: clock}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan RetryResult, 1)
	go func() {
		_, res := Retry(ctx, policy, func(_ context.Context, _ int) (int, error) {
			return 0, errUnavailable
		}, nil)
		done <- res
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()

	select {
	case res := <-done:
		assert.Equal(t, 1, res.Attempts)
		assert.ErrorIs(t, res.Err, context.Canceled)
	case <-waitCtx.Done():
		t.Fatal("retry did not stop on cancellation")
	}
}

func TestRetry_CancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, res := Retry(ctx, RetryPolicy{MaxAttempts: 3}, func(_ context.Context, _ int) (int, error) {
		calls++
		return 0, nil
	}, nil)

	assert.Zero(t, calls)
	assert.Zero(t, res.Attempts)
	assert.ErrorIs(t, res.Err, context.Canceled)
}
