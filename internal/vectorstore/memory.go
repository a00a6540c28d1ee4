package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// memoryStore is an in-process index used by tests and single-node setups
// without postgres. Ranking matches the pg implementation: cosine
// similarity descending, chunk id ascending on ties.
type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]Entry
}

func NewMemoryStore() IStore {
	return &memoryStore{data: map[string][]Entry{}}
}

func (s *memoryStore) Upsert(ctx context.Context, namespace string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.data[namespace]
	for _, entry := range entries {
		replaced := false
		for i := range existing {
			if existing[i].Chunk.ID == entry.Chunk.ID {
				existing[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, entry)
		}
	}
	s.data[namespace] = existing
	return nil
}

func (s *memoryStore) Query(ctx context.Context, namespace string, embedding []float32, topK int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.data[namespace]
	matches := make([]Match, 0, len(entries))
	for _, entry := range entries {
		matches = append(matches, Match{
			Chunk:      entry.Chunk,
			Filename:   entry.Filename,
			Similarity: cosineSimilarity(embedding, entry.Embedding),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Chunk.ID < matches[j].Chunk.ID
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *memoryStore) DeleteDocument(ctx context.Context, namespace string, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.data[namespace]
	kept := entries[:0]
	for _, entry := range entries {
		if entry.Chunk.DocumentID != documentID {
			kept = append(kept, entry)
		}
	}
	s.data[namespace] = kept
	return nil
}

func (s *memoryStore) ListDocumentIDs(ctx context.Context, namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	var ids []string
	for _, entry := range s.data[namespace] {
		if _, ok := seen[entry.Chunk.DocumentID]; ok {
			continue
		}
		seen[entry.Chunk.DocumentID] = struct{}{}
		ids = append(ids, entry.Chunk.DocumentID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memoryStore) DeleteNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, namespace)
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
