package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hajime-dev/devicekb/internal/ai"
	"github.com/hajime-dev/devicekb/internal/model"
)

type selectiveEmbedder struct {
	failOn map[string]bool
	calls  int
}

func (e *selectiveEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.calls++
	if e.failOn[text] {
		return nil, ai.ErrUnavailable
	}
	return []float32{1, 0}, nil
}

func (e *selectiveEmbedder) ModelName() string { return "selective" }

func testChunks() []*model.Chunk {
	return []*model.Chunk{
		{ID: "d1_0", Content: "operating temperature range"},
		{ID: "d1_1", Content: "calibration interval"},
		{ID: "d1_2", Content: "storage humidity limits"},
	}
}

func TestBuildEntriesSkipsFailedChunks(t *testing.T) {
	embedder := &selectiveEmbedder{failOn: map[string]bool{"calibration interval": true}}
	entries, failed := buildEntries(context.Background(), embedder, testChunks(), "manual.txt")

	require.Equal(t, 1, failed)
	require.Len(t, entries, 2)
	require.Equal(t, "d1_0", entries[0].Chunk.ID)
	require.Equal(t, "d1_2", entries[1].Chunk.ID)
	require.Equal(t, 3, embedder.calls)
	for _, entry := range entries {
		require.Equal(t, "manual.txt", entry.Filename)
		require.NotEmpty(t, entry.Embedding)
	}
}

func TestBuildEntriesAllFailuresYieldNoEntries(t *testing.T) {
	embedder := &selectiveEmbedder{failOn: map[string]bool{
		"operating temperature range": true,
		"calibration interval":        true,
		"storage humidity limits":     true,
	}}
	entries, failed := buildEntries(context.Background(), embedder, testChunks(), "manual.txt")

	require.Equal(t, 3, failed)
	require.Empty(t, entries)
}
