package model

// PatternKind tells how a template field placeholder appears in the source
// text; reconstruction splices the value back according to the kind.
type PatternKind string

const (
	PatternMissingMarker PatternKind = "missing_marker"
	PatternBracket       PatternKind = "bracket"
	PatternColonLabel    PatternKind = "colon_label"
	PatternUnderline     PatternKind = "underline"
	PatternSignatureLine PatternKind = "signature_line"
	PatternDotLeader     PatternKind = "dot_leader"
	PatternDateToken     PatternKind = "date_token"
)

type FieldType string

const (
	FieldProductName    FieldType = "product_name"
	FieldManufacturer   FieldType = "manufacturer"
	FieldDocumentNumber FieldType = "document_number"
	FieldModelNumber    FieldType = "model_number"
	FieldDate           FieldType = "date"
	FieldSignature      FieldType = "signature"
	FieldGeneric        FieldType = "generic"
)

// Field is a detected placeholder inside a template document. It lives for
// the duration of one fill job and is mutated through the job states.
type Field struct {
	Name        string      `json:"name"`
	Pattern     PatternKind `json:"pattern"`
	Type        FieldType   `json:"type"`
	Line        int         `json:"line"`
	SpanStart   int         `json:"span_start"`
	SpanEnd     int         `json:"span_end"`
	Context     string      `json:"context"`
	Questions   []string    `json:"questions"`
	Evidence    []RetrievalResult `json:"-"`
	Value       string      `json:"value"`
	Filled      bool        `json:"filled"`
	Confidence  float64     `json:"confidence"`
	SourceCount int         `json:"source_count"`
}
