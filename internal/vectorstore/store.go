// Package vectorstore holds the chunk embedding index. Namespaces are a
// strict partition boundary: every read and write is scoped to one
// namespace and no call may cross it.
package vectorstore

import (
	"context"

	"github.com/hajime-dev/devicekb/internal/model"
)

// Entry is one chunk plus its embedding, ready for indexing.
type Entry struct {
	Chunk     *model.Chunk
	Filename  string
	Embedding []float32
}

// Match is one query hit. Similarity is cosine similarity in [0,1]
// territory for normalized embeddings.
type Match struct {
	Chunk      *model.Chunk
	Filename   string
	Similarity float64
}

type IStore interface {
	Upsert(ctx context.Context, namespace string, entries []Entry) error
	Query(ctx context.Context, namespace string, embedding []float32, topK int) ([]Match, error)
	DeleteDocument(ctx context.Context, namespace string, documentID string) error
	ListDocumentIDs(ctx context.Context, namespace string) ([]string, error)
	DeleteNamespace(ctx context.Context, namespace string) error
}
