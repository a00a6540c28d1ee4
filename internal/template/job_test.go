package template

import (
	"context"
	"strings"
	"testing"

	"github.com/hajime-dev/devicekb/internal/ai"
	"github.com/hajime-dev/devicekb/internal/config"
	"github.com/hajime-dev/devicekb/internal/model"
	appErr "github.com/hajime-dev/devicekb/internal/pkg/errors"
	"github.com/hajime-dev/devicekb/internal/rag"
	"github.com/hajime-dev/devicekb/internal/vectorstore"
	"github.com/stretchr/testify/require"
)

type constEmbedder struct{}

func (constEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (constEmbedder) ModelName() string { return "const" }

type downGenerator struct{}

func (downGenerator) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	return "", ai.ErrUnavailable
}

func templateConfig() config.TemplateConfig {
	return config.TemplateConfig{QuestionsPerField: 2, SignatureRunLength: 8}
}

func evidenceChunk(id, content string) vectorstore.Entry {
	return vectorstore.Entry{
		Chunk: &model.Chunk{
			ID:              id,
			DocumentID:      "doc1",
			Content:         content,
			QualityScore:    0.9,
			ImportanceScore: 0.9,
		},
		Filename:  "manual.pdf",
		Embedding: []float32{1, 0},
	}
}

func newTestFiller(t *testing.T, gen ai.IGenerator, entries ...vectorstore.Entry) *Filler {
	t.Helper()
	iv, err := ai.NewInvoker(gen, nil, nil, 5, 64, 0)
	require.NoError(t, err)
	store := vectorstore.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), "device_x", entries))
	retriever := rag.NewRetriever(iv, constEmbedder{}, store, config.RetrievalConfig{
		QueryVariations:  2,
		PerQueryTopK:     10,
		FinalCount:       5,
		SimilarityWeight: 0.70,
		QualityWeight:    0.15,
		ImportanceWeight: 0.15,
		TierCritical:     0.80,
		TierHigh:         0.70,
		TierAcceptable:   0.55,
	})
	return NewFiller(iv, retriever, templateConfig())
}

// The service being down must not stop a fill: questions come from the
// static templates, values from pattern extraction over the evidence.
func TestFillDegradedPipeline(t *testing.T) {
	source := strings.Join([]string{
		"Generic name:",
		"Model:",
		"_________",
	}, "\n")
	filler := newTestFiller(t, downGenerator{},
		evidenceChunk("c1", "Generic name: Pulse Oximeter"),
		evidenceChunk("c2", "Signed by Dr. Smith"),
	)

	job, err := filler.Fill(context.Background(), "device_x", source)
	require.NoError(t, err)
	require.Equal(t, StateDone, job.State)

	require.Equal(t, "Pulse Oximeter", job.FilledFields["Generic name"])
	require.Contains(t, job.MissingFields, "Model")

	var signatureValue string
	for _, f := range job.Fields {
		if f.Type == model.FieldSignature {
			require.True(t, f.Filled)
			signatureValue = f.Value
		}
	}
	require.Equal(t, "Dr. Smith", signatureValue)

	require.Contains(t, job.Output, "Generic name: Pulse Oximeter")
	require.Contains(t, job.Output, "Dr. Smith")
	// The unfilled model line stays untouched.
	require.Contains(t, job.Output, "Model:")
}

func TestFillNoFieldsPassesThrough(t *testing.T) {
	source := "Just a narrative document with no placeholders at all. Full sentences only."
	filler := newTestFiller(t, downGenerator{})
	job, err := filler.Fill(context.Background(), "device_x", source)
	require.NoError(t, err)
	require.Equal(t, StateDone, job.State)
	require.Equal(t, source, job.Output)
	require.Empty(t, job.MissingFields)
}

func TestFillEmptyDocumentIsParseError(t *testing.T) {
	filler := newTestFiller(t, downGenerator{})
	job, err := filler.Fill(context.Background(), "device_x", "   \n ")
	require.ErrorIs(t, err, appErr.ErrTemplateParse)
	require.Equal(t, StateError, job.State)
	require.Empty(t, job.Output)
}

func TestFillInvalidEncodingIsParseError(t *testing.T) {
	filler := newTestFiller(t, downGenerator{})
	_, err := filler.Fill(context.Background(), "device_x", "Name: \xff\xfe___")
	require.ErrorIs(t, err, appErr.ErrTemplateParse)
}

func TestAnalyzeReportsFillability(t *testing.T) {
	source := "Generic name:\nModel:\n"
	filler := newTestFiller(t, downGenerator{},
		evidenceChunk("c1", "Generic name: Pulse Oximeter"),
	)
	analysis, err := filler.Analyze(context.Background(), "device_x", source)
	require.NoError(t, err)

	generic := analysis["Generic name"]
	require.True(t, generic.CanFill)
	require.Greater(t, generic.Confidence, 0.0)
	require.Greater(t, generic.SourceCount, 0)
}

func TestAnalyzeEmptyNamespaceNothingFillable(t *testing.T) {
	filler := newTestFiller(t, downGenerator{})
	analysis, err := filler.Analyze(context.Background(), "device_x", "Generic name:\n")
	require.NoError(t, err)
	require.False(t, analysis["Generic name"].CanFill)
}
