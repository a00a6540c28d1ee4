package ai

import (
	"context"
	"time"
)

// RetryPolicy retries throttled calls with exponential backoff. Only
// throttling is retried; every other error is returned to the caller on
// the first occurrence.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryPolicy(maxAttempts int, baseDelay time.Duration, maxDelay time.Duration) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		sleep:       sleepWithContext,
	}
}

// backoffDelay returns the wait before attempt n (1-based attempt that just
// failed). A server retry hint overrides the computed backoff when it is
// longer.
func (p *RetryPolicy) backoffDelay(attempt int, hint time.Duration) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if hint > d {
		d = hint
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, fails with a non-throttle error, or the
// attempt budget is spent. On exhaustion the last throttle error is
// returned. Callers capture their result in the closure; completion and
// embedding calls share the same policy.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		te, ok := AsThrottled(err)
		if !ok {
			return err
		}
		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}
		if err := p.sleep(ctx, p.backoffDelay(attempt, te.RetryAfter)); err != nil {
			return err
		}
	}
	return lastErr
}
