package ai

import (
	"context"
	"sync"
	"time"
)

// Governor enforces the two process-wide limits on calls to the completion
// service: at most maxConcurrent calls in flight, and at least minDelay
// between the start of any two calls, regardless of which component issued
// them.
type Governor struct {
	slots    chan struct{}
	minDelay time.Duration

	mu        sync.Mutex
	nextStart time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewGovernor(maxConcurrent int, minDelay time.Duration) *Governor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if minDelay < 0 {
		minDelay = 0
	}
	return &Governor{
		slots:    make(chan struct{}, maxConcurrent),
		minDelay: minDelay,
		now:      time.Now,
		sleep:    sleepWithContext,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Acquire blocks until a call may start, then returns a release function
// that must be called when the call finishes. The spacing slot is consumed
// even if the caller's context is later canceled.
func (g *Governor) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	release := func() { <-g.slots }

	g.mu.Lock()
	now := g.now()
	start := now
	if g.nextStart.After(start) {
		start = g.nextStart
	}
	g.nextStart = start.Add(g.minDelay)
	g.mu.Unlock()

	if err := g.sleep(ctx, start.Sub(now)); err != nil {
		release()
		return nil, err
	}
	return release, nil
}
