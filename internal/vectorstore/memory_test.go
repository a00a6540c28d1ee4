package vectorstore

import (
	"context"
	"testing"

	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/stretchr/testify/require"
)

func entry(chunkID, documentID string, vec []float32) Entry {
	return Entry{
		Chunk:     &model.Chunk{ID: chunkID, DocumentID: documentID, Content: "content of " + chunkID},
		Filename:  documentID + ".pdf",
		Embedding: vec,
	}
}

func TestMemoryStoreNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, "device_a", []Entry{entry("a1", "doc1", []float32{1, 0})}))
	require.NoError(t, s.Upsert(ctx, "device_b", []Entry{entry("b1", "doc2", []float32{1, 0})}))

	matches, err := s.Query(ctx, "device_a", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "a1", matches[0].Chunk.ID)

	matches, err = s.Query(ctx, "device_c", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestMemoryStoreRanking(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, "device_a", []Entry{
		entry("c2", "doc1", []float32{1, 0}),
		entry("c1", "doc1", []float32{1, 0}),
		entry("c3", "doc1", []float32{0, 1}),
	}))
	matches, err := s.Query(ctx, "device_a", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	// Equal similarity ties break by chunk id ascending.
	require.Equal(t, "c1", matches[0].Chunk.ID)
	require.Equal(t, "c2", matches[1].Chunk.ID)
	require.Equal(t, "c3", matches[2].Chunk.ID)
	require.Greater(t, matches[0].Similarity, matches[2].Similarity)
}

func TestMemoryStoreTopK(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, "device_a", []Entry{
		entry("c1", "doc1", []float32{1, 0}),
		entry("c2", "doc1", []float32{0.9, 0.1}),
		entry("c3", "doc1", []float32{0.5, 0.5}),
	}))
	matches, err := s.Query(ctx, "device_a", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
}

func TestMemoryStoreUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, "device_a", []Entry{entry("c1", "doc1", []float32{1, 0})}))
	require.NoError(t, s.Upsert(ctx, "device_a", []Entry{entry("c1", "doc1", []float32{0, 1})}))
	matches, err := s.Query(ctx, "device_a", []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
}

func TestMemoryStoreDeleteDocument(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, "device_a", []Entry{
		entry("c1", "doc1", []float32{1, 0}),
		entry("c2", "doc2", []float32{1, 0}),
	}))
	require.NoError(t, s.DeleteDocument(ctx, "device_a", "doc1"))

	ids, err := s.ListDocumentIDs(ctx, "device_a")
	require.NoError(t, err)
	require.Equal(t, []string{"doc2"}, ids)
}

func TestMemoryStoreDeleteNamespace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, "device_a", []Entry{entry("c1", "doc1", []float32{1, 0})}))
	require.NoError(t, s.DeleteNamespace(ctx, "device_a"))
	matches, err := s.Query(ctx, "device_a", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Empty(t, matches)
}
