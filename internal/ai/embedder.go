package ai

import (
	"context"
	"time"
)

// NewGovernedEmbedder puts embedding calls under the same process-wide gate
// as completion calls: a governor slot with call spacing, throttle retries
// and a per-call timeout. Caches wrap outside this so a cache hit never
// touches the gate.
func NewGovernedEmbedder(next IEmbedder, governor *Governor, retry *RetryPolicy, callTimeout time.Duration) IEmbedder {
	if next == nil {
		return nil
	}
	return &governedEmbedder{next: next, governor: governor, retry: retry, callTimeout: callTimeout}
}

type governedEmbedder struct {
	next        IEmbedder
	governor    *Governor
	retry       *RetryPolicy
	callTimeout time.Duration
}

func (e *governedEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	var values []float32
	fn := func(ctx context.Context) error {
		if e.governor != nil {
			release, err := e.governor.Acquire(ctx)
			if err != nil {
				return err
			}
			defer release()
		}
		if e.callTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.callTimeout)
			defer cancel()
		}
		res, err := e.next.Embed(ctx, text, taskType)
		if err != nil {
			return err
		}
		values = res
		return nil
	}
	if e.retry == nil {
		if err := fn(ctx); err != nil {
			return nil, err
		}
		return values, nil
	}
	if err := e.retry.Do(ctx, fn); err != nil {
		return nil, err
	}
	return values, nil
}

func (e *governedEmbedder) ModelName() string {
	return e.next.ModelName()
}
