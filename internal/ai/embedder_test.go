package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flakyEmbedder struct {
	failures int
	calls    int
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, &ThrottledError{}
	}
	return []float32{1, 2, 3}, nil
}

func (f *flakyEmbedder) ModelName() string { return "flaky" }

func TestGovernedEmbedderRetriesThrottle(t *testing.T) {
	p := NewRetryPolicy(3, time.Second, 30*time.Second)
	var slept []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	next := &flakyEmbedder{failures: 2}
	e := NewGovernedEmbedder(next, nil, p, 0)
	values, err := e.Embed(context.Background(), "sample text", TaskTypeQuery)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, values)
	require.Equal(t, 3, next.calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
}

func TestGovernedEmbedderSpacesCalls(t *testing.T) {
	base := time.Unix(1700000000, 0)
	var slept []time.Duration
	g := NewGovernor(2, 500*time.Millisecond)
	g.now = func() time.Time { return base }
	g.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	e := NewGovernedEmbedder(&flakyEmbedder{}, g, nil, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := e.Embed(ctx, "spacing", TaskTypeDocument)
		require.NoError(t, err)
	}
	require.Equal(t, []time.Duration{0, 500 * time.Millisecond, time.Second}, slept)
}

func TestGovernedEmbedderStopsOnHardError(t *testing.T) {
	p := NewRetryPolicy(3, time.Second, 30*time.Second)
	p.sleep = func(ctx context.Context, d time.Duration) error {
		t.Fatalf("should not sleep on non-throttle error")
		return nil
	}

	calls := 0
	e := NewGovernedEmbedder(embedFunc(func(ctx context.Context, text, taskType string) ([]float32, error) {
		calls++
		return nil, ErrUnavailable
	}), nil, p, 0)
	_, err := e.Embed(context.Background(), "x", TaskTypeQuery)
	require.ErrorIs(t, err, ErrUnavailable)
	require.Equal(t, 1, calls)
}

type embedFunc func(ctx context.Context, text, taskType string) ([]float32, error)

func (f embedFunc) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return f(ctx, text, taskType)
}

func (embedFunc) ModelName() string { return "fn" }
