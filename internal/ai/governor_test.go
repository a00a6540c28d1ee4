package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGovernorSpacing(t *testing.T) {
	base := time.Unix(1700000000, 0)
	var slept []time.Duration
	g := NewGovernor(4, 500*time.Millisecond)
	g.now = func() time.Time { return base }
	g.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		release, err := g.Acquire(ctx)
		require.NoError(t, err)
		release()
	}
	require.Equal(t, []time.Duration{0, 500 * time.Millisecond, time.Second}, slept)
}

func TestGovernorSpacingAfterIdle(t *testing.T) {
	now := time.Unix(1700000000, 0)
	var slept []time.Duration
	g := NewGovernor(1, 500*time.Millisecond)
	g.now = func() time.Time { return now }
	g.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	ctx := context.Background()
	release, err := g.Acquire(ctx)
	require.NoError(t, err)
	release()

	// After an idle gap longer than the minimum delay the next call starts
	// immediately.
	now = now.Add(2 * time.Second)
	release, err = g.Acquire(ctx)
	require.NoError(t, err)
	release()
	require.Equal(t, []time.Duration{0, 0}, slept)
}

func TestGovernorConcurrencyCap(t *testing.T) {
	g := NewGovernor(2, 0)
	ctx := context.Background()

	r1, err := g.Acquire(ctx)
	require.NoError(t, err)
	r2, err := g.Acquire(ctx)
	require.NoError(t, err)

	blocked, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Acquire(blocked)
	require.ErrorIs(t, err, context.Canceled)

	r1()
	r3, err := g.Acquire(ctx)
	require.NoError(t, err)
	r3()
	r2()
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := NewRetryPolicy(4, time.Second, 30*time.Second)
	var slept []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &ThrottledError{}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
}

func TestRetryPolicyHonorsServerHint(t *testing.T) {
	p := NewRetryPolicy(2, time.Second, 30*time.Second)
	var slept []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &ThrottledError{RetryAfter: 5 * time.Second}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []time.Duration{5 * time.Second}, slept)
}

func TestRetryPolicyExhausted(t *testing.T) {
	p := NewRetryPolicy(3, time.Second, 30*time.Second)
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &ThrottledError{}
	})
	require.Equal(t, 3, calls)
	_, ok := AsThrottled(err)
	require.True(t, ok)
}

func TestRetryPolicyStopsOnHardError(t *testing.T) {
	p := NewRetryPolicy(3, time.Second, 30*time.Second)
	p.sleep = func(ctx context.Context, d time.Duration) error {
		t.Fatalf("should not sleep on non-throttle error")
		return nil
	}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return ErrUnavailable
	})
	require.ErrorIs(t, err, ErrUnavailable)
	require.Equal(t, 1, calls)
}
