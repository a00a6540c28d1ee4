package template

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hajime-dev/devicekb/internal/ai"
	"github.com/hajime-dev/devicekb/internal/config"
	"github.com/hajime-dev/devicekb/internal/model"
	appErr "github.com/hajime-dev/devicekb/internal/pkg/errors"
	"github.com/hajime-dev/devicekb/internal/rag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type State string

const (
	StateRaw              State = "RAW"
	StateFiltered         State = "FILTERED"
	StateFieldsDetected   State = "FIELDS_DETECTED"
	StateFieldsClassified State = "FIELDS_CLASSIFIED"
	StateQuestionsReady   State = "QUESTIONS_GENERATED"
	StateRetrieved        State = "RETRIEVED"
	StateFilled           State = "FILLED"
	StateReconstructed    State = "RECONSTRUCTED"
	StateDone             State = "DONE"
	StateError            State = "ERROR"
)

// evidence pulled per field; kept small, a field value lives in one or two
// chunks.
const perFieldEvidence = 5

// Job tracks one template fill from raw text to reconstructed output. It
// is discarded once the response is produced.
type Job struct {
	Namespace        string
	Source           string
	State            State
	ContentStartLine int
	Fields           []*model.Field
	Output           string
	FilledFields     map[string]string
	MissingFields    []string
	Err              error
}

// FieldAnalysis is the dry-run answer for one field: whether evidence
// exists to fill it and how strong that evidence is.
type FieldAnalysis struct {
	CanFill     bool    `json:"can_fill"`
	Confidence  float64 `json:"confidence"`
	SourceCount int     `json:"source_count"`
}

type Filler struct {
	invoker   *ai.Invoker
	retriever *rag.Retriever
	cfg       config.TemplateConfig
}

func NewFiller(invoker *ai.Invoker, retriever *rag.Retriever, cfg config.TemplateConfig) *Filler {
	return &Filler{invoker: invoker, retriever: retriever, cfg: cfg}
}

// Fill runs the whole state machine. Generation-service trouble degrades
// individual steps; only a structurally unusable document fails the job.
func (f *Filler) Fill(ctx context.Context, namespace string, source string) (*Job, error) {
	job := &Job{Namespace: namespace, Source: source, State: StateRaw, FilledFields: map[string]string{}}
	if err := validateSource(source); err != nil {
		job.State = StateError
		job.Err = err
		return job, err
	}

	_, start := filterContent(source)
	job.ContentStartLine = start
	job.State = StateFiltered

	det := &detector{signatureRunLength: f.cfg.SignatureRunLength}
	job.Fields = det.detectFields(source, start)
	job.State = StateFieldsDetected
	if len(job.Fields) == 0 {
		job.Output = source
		job.State = StateDone
		return job, nil
	}

	classifyFields(job.Fields)
	job.State = StateFieldsClassified

	f.generateQuestions(ctx, job.Fields)
	job.State = StateQuestionsReady

	f.retrieveEvidence(ctx, job)
	job.State = StateRetrieved

	f.fillFields(ctx, job.Fields)
	job.State = StateFilled
	collectFillOutcome(job)

	job.Output = reconstruct(source, job.Fields)
	job.State = StateReconstructed

	job.State = StateDone
	return job, nil
}

// Analyze runs detection through retrieval but fills nothing, reporting
// per field whether a later fill would succeed.
func (f *Filler) Analyze(ctx context.Context, namespace string, source string) (map[string]FieldAnalysis, error) {
	if err := validateSource(source); err != nil {
		return nil, err
	}
	_, start := filterContent(source)
	det := &detector{signatureRunLength: f.cfg.SignatureRunLength}
	fields := det.detectFields(source, start)
	classifyFields(fields)
	f.generateQuestions(ctx, fields)
	job := &Job{Namespace: namespace, Fields: fields}
	f.retrieveEvidence(ctx, job)

	analysis := make(map[string]FieldAnalysis, len(fields))
	for _, field := range fields {
		name := analysisName(field)
		entry := FieldAnalysis{
			CanFill:     len(field.Evidence) > 0,
			Confidence:  bestEvidenceScore(field),
			SourceCount: len(field.Evidence),
		}
		if prev, ok := analysis[name]; !ok || entry.Confidence > prev.Confidence {
			analysis[name] = entry
		}
	}
	return analysis, nil
}

func (f *Filler) retrieveEvidence(ctx context.Context, job *Job) {
	for _, field := range job.Fields {
		evidence, err := f.retriever.RetrieveWithVariations(ctx, field.Questions, job.Namespace, perFieldEvidence)
		if err != nil {
			logutil.GetLogger(ctx).Warn("evidence retrieval failed for field",
				zap.String("field", field.Name), zap.Error(err))
			continue
		}
		field.Evidence = evidence
	}
}

func collectFillOutcome(job *Job) {
	seen := map[string]bool{}
	for _, field := range job.Fields {
		name := analysisName(field)
		if field.Filled {
			job.FilledFields[name] = field.Value
			seen[name] = true
		}
	}
	missing := map[string]bool{}
	for _, field := range job.Fields {
		name := analysisName(field)
		if !field.Filled && !seen[name] && !missing[name] {
			missing[name] = true
			job.MissingFields = append(job.MissingFields, name)
		}
	}
}

func analysisName(field *model.Field) string {
	if field.Name != "" {
		return field.Name
	}
	return fmt.Sprintf("%s@line%d", field.Pattern, field.Line+1)
}

func validateSource(source string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("%w: template document is empty", appErr.ErrTemplateParse)
	}
	if !utf8.ValidString(source) {
		return fmt.Errorf("%w: template document is not valid utf-8 text", appErr.ErrTemplateParse)
	}
	return nil
}
