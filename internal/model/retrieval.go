package model

type ConfidenceTier string

const (
	TierCritical   ConfidenceTier = "CRITICAL"
	TierHigh       ConfidenceTier = "HIGH"
	TierAcceptable ConfidenceTier = "ACCEPTABLE"
	TierRejected   ConfidenceTier = "REJECTED"
)

// RetrievalResult is one ranked evidence item. It is built fresh for every
// query and never persisted.
type RetrievalResult struct {
	Chunk           Chunk          `json:"chunk"`
	Filename        string         `json:"filename"`
	SimilarityScore float64        `json:"similarity_score"`
	CompositeScore  float64        `json:"composite_score"`
	Tier            ConfidenceTier `json:"tier"`
}

type Citation struct {
	DocumentNumber int     `json:"document_number"`
	Filename       string  `json:"filename"`
	ChunkID        string  `json:"chunk_id"`
	Score          float64 `json:"score"`
	ContentPreview string  `json:"content_preview"`
}

type QualityLabel string

const (
	QualityExcellent QualityLabel = "EXCELLENT"
	QualityGood      QualityLabel = "GOOD"
	QualityPoor      QualityLabel = "POOR"
)

type QualityMetrics struct {
	EvidenceCount     int          `json:"evidence_count"`
	AverageConfidence float64      `json:"average_confidence"`
	CriticalCount     int          `json:"critical_count"`
	HighCount         int          `json:"high_count"`
	AcceptableCount   int          `json:"acceptable_count"`
	Label             QualityLabel `json:"label"`
	DegradedMode      bool         `json:"degraded_mode"`
}

type Answer struct {
	Text      string         `json:"text"`
	Citations []Citation     `json:"citations"`
	Metrics   QualityMetrics `json:"metrics"`
}
