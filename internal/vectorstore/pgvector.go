package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/pgvector/pgvector-go"
)

// pgStore indexes chunk embeddings in postgres with the pgvector
// extension. The namespace column partitions rows per device; cosine
// distance drives ranking.
type pgStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) IStore {
	return &pgStore{db: db}
}

func (s *pgStore) Upsert(ctx context.Context, namespace string, entries []Entry) error {
	const query = `
		INSERT INTO chunk_vectors (
			namespace, chunk_id, document_id, filename, chunk_index, content,
			start_offset, end_offset, quality_score, importance_score,
			semantic_keywords, entity_density, content_type, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (namespace, chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			filename = EXCLUDED.filename,
			chunk_index = EXCLUDED.chunk_index,
			content = EXCLUDED.content,
			start_offset = EXCLUDED.start_offset,
			end_offset = EXCLUDED.end_offset,
			quality_score = EXCLUDED.quality_score,
			importance_score = EXCLUDED.importance_score,
			semantic_keywords = EXCLUDED.semantic_keywords,
			entity_density = EXCLUDED.entity_density,
			content_type = EXCLUDED.content_type,
			embedding = EXCLUDED.embedding
	`
	for _, entry := range entries {
		ch := entry.Chunk
		keywords, err := json.Marshal(ch.SemanticKeywords)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, query,
			namespace, ch.ID, ch.DocumentID, entry.Filename, ch.Index, ch.Content,
			ch.StartOffset, ch.EndOffset, ch.QualityScore, ch.ImportanceScore,
			keywords, ch.EntityDensity, string(ch.ContentType),
			pgvector.NewVector(entry.Embedding),
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *pgStore) Query(ctx context.Context, namespace string, embedding []float32, topK int) ([]Match, error) {
	const query = `
		SELECT chunk_id, document_id, filename, chunk_index, content,
			start_offset, end_offset, quality_score, importance_score,
			semantic_keywords, entity_density, content_type,
			1 - (embedding <=> $1) AS similarity
		FROM chunk_vectors
		WHERE namespace = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(embedding), namespace, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var matches []Match
	for rows.Next() {
		ch := &model.Chunk{DeviceID: namespace}
		var keywords []byte
		var contentType string
		var m Match
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &m.Filename, &ch.Index, &ch.Content,
			&ch.StartOffset, &ch.EndOffset, &ch.QualityScore, &ch.ImportanceScore,
			&keywords, &ch.EntityDensity, &contentType, &m.Similarity); err != nil {
			return nil, err
		}
		if len(keywords) > 0 {
			if err := json.Unmarshal(keywords, &ch.SemanticKeywords); err != nil {
				return nil, err
			}
		}
		ch.ContentType = model.ContentType(contentType)
		m.Chunk = ch
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *pgStore) DeleteDocument(ctx context.Context, namespace string, documentID string) error {
	const query = `DELETE FROM chunk_vectors WHERE namespace = $1 AND document_id = $2`
	_, err := s.db.ExecContext(ctx, query, namespace, documentID)
	return err
}

func (s *pgStore) ListDocumentIDs(ctx context.Context, namespace string) ([]string, error) {
	const query = `SELECT DISTINCT document_id FROM chunk_vectors WHERE namespace = $1`
	rows, err := s.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *pgStore) DeleteNamespace(ctx context.Context, namespace string) error {
	const query = `DELETE FROM chunk_vectors WHERE namespace = $1`
	_, err := s.db.ExecContext(ctx, query, namespace)
	return err
}
