package model

type ContentType string

const (
	ContentTypeText       ContentType = "text"
	ContentTypeForm       ContentType = "form"
	ContentTypeStructured ContentType = "structured"
	ContentTypeList       ContentType = "list"
)

// Chunk is one retrieval unit cut from an ingested document. Chunks are
// created once per ingestion and never mutated; re-ingesting a document
// replaces its chunks wholesale.
type Chunk struct {
	ID               string      `json:"id"`
	DocumentID       string      `json:"document_id"`
	DeviceID         string      `json:"device_id"`
	Index            int         `json:"index"`
	Content          string      `json:"content"`
	StartOffset      int         `json:"start_offset"`
	EndOffset        int         `json:"end_offset"`
	QualityScore     float64     `json:"quality_score"`
	ImportanceScore  float64     `json:"importance_score"`
	SemanticKeywords []string    `json:"semantic_keywords"`
	EntityDensity    float64     `json:"entity_density"`
	ContentType      ContentType `json:"content_type"`
}
