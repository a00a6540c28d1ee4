package ai

// Embedding task types. Providers that distinguish query and document
// embeddings (gemini does) receive these verbatim; others ignore them.
const (
	TaskTypeQuery    = "RETRIEVAL_QUERY"
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
)
