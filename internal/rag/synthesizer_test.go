package rag

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/hajime-dev/devicekb/internal/ai"
	"github.com/hajime-dev/devicekb/internal/config"
	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/stretchr/testify/require"
)

func synthConfig() config.SynthesisConfig {
	return config.SynthesisConfig{Temperature: 0.02, MaxTokens: 2500, PreviewChars: 50}
}

func evidenceItem(chunkID string, score float64, tier model.ConfidenceTier) model.RetrievalResult {
	return model.RetrievalResult{
		Chunk: model.Chunk{
			ID:               chunkID,
			Content:          "The device operates between 0 and 40 degrees celsius.",
			SemanticKeywords: []string{"temperature", "operating range"},
		},
		Filename:       "manual.pdf",
		CompositeScore: score,
		Tier:           tier,
	}
}

func newTestSynthesizer(t *testing.T, gen ai.IGenerator) *Synthesizer {
	t.Helper()
	iv, err := ai.NewInvoker(gen, nil, nil, 5, 64, 0)
	require.NoError(t, err)
	return NewSynthesizer(iv, synthConfig())
}

func TestSynthesizeCitationsFollowEvidenceOrder(t *testing.T) {
	gen := &cannedGenerator{response: "Answer text [1]."}
	s := newTestSynthesizer(t, gen)

	evidence := []model.RetrievalResult{
		evidenceItem("c1", 0.9, model.TierCritical),
		evidenceItem("c2", 0.75, model.TierHigh),
		evidenceItem("c3", 0.6, model.TierAcceptable),
	}
	ans, err := s.Synthesize(context.Background(), "operating range?", evidence)
	require.NoError(t, err)
	require.Equal(t, "Answer text [1].", ans.Text)
	require.Len(t, ans.Citations, 3)
	for i, c := range ans.Citations {
		require.Equal(t, i+1, c.DocumentNumber)
		require.Equal(t, evidence[i].Chunk.ID, c.ChunkID)
		require.Equal(t, "manual.pdf", c.Filename)
		require.NotEmpty(t, c.ContentPreview)
	}
	require.Equal(t, 1, gen.calls)
	require.Equal(t, model.QualityGood, ans.Metrics.Label)
	require.Equal(t, 1, ans.Metrics.CriticalCount)
	require.Equal(t, 1, ans.Metrics.HighCount)
	require.Equal(t, 1, ans.Metrics.AcceptableCount)
}

func TestSynthesizeEmptyEvidenceSkipsGeneration(t *testing.T) {
	gen := &cannedGenerator{response: "should never be used"}
	s := newTestSynthesizer(t, gen)

	ans, err := s.Synthesize(context.Background(), "warranty period?", nil)
	require.NoError(t, err)
	require.Zero(t, gen.calls)
	require.Empty(t, ans.Citations)
	require.Contains(t, ans.Text, "No relevant information")
	require.Equal(t, model.QualityPoor, ans.Metrics.Label)
}

func TestSynthesizeRejectedOnlyEvidenceSkipsGeneration(t *testing.T) {
	gen := &cannedGenerator{response: "should never be used"}
	s := newTestSynthesizer(t, gen)

	evidence := []model.RetrievalResult{evidenceItem("c1", 0.2, model.TierRejected)}
	ans, err := s.Synthesize(context.Background(), "warranty period?", evidence)
	require.NoError(t, err)
	require.Zero(t, gen.calls)
	require.Empty(t, ans.Citations)
	// The not-found answer names the topics the documents do cover.
	require.Contains(t, ans.Text, "temperature")
}

func TestSynthesizeDegradesWhenServiceDown(t *testing.T) {
	gen := &cannedGenerator{err: ai.ErrUnavailable}
	s := newTestSynthesizer(t, gen)

	evidence := []model.RetrievalResult{evidenceItem("c1", 0.9, model.TierCritical)}
	ans, err := s.Synthesize(context.Background(), "operating range?", evidence)
	require.NoError(t, err)
	require.True(t, ans.Metrics.DegradedMode)
	require.Contains(t, ans.Text, "unavailable")
	require.Len(t, ans.Citations, 1)
}

func TestSynthesizePromptIsExtractive(t *testing.T) {
	s := newTestSynthesizer(t, &cannedGenerator{response: "x"})
	evidence := []model.RetrievalResult{evidenceItem("c1", 0.9, model.TierCritical)}
	prompt := s.buildPrompt("operating range?", evidence)
	require.Contains(t, prompt, "[Document 1]")
	require.Contains(t, prompt, "ONLY the numbered documents")
	require.Contains(t, prompt, "operating range?")
}

func TestPreviewCutsOnRuneBoundaries(t *testing.T) {
	require.Equal(t, "short text", preview("short  text", 50))
	require.Equal(t, "abcde...", preview("abcdefgh", 5))

	got := preview("温度範囲は0〜40度です", 4)
	require.Equal(t, "温度範囲...", got)
	require.True(t, utf8.ValidString(got))
}

func TestComputeQualityMetricsLabels(t *testing.T) {
	excellent := []model.RetrievalResult{
		evidenceItem("c1", 0.9, model.TierCritical),
		evidenceItem("c2", 0.85, model.TierCritical),
		evidenceItem("c3", 0.82, model.TierCritical),
	}
	require.Equal(t, model.QualityExcellent, computeQualityMetrics(excellent).Label)

	poor := []model.RetrievalResult{evidenceItem("c1", 0.56, model.TierAcceptable)}
	require.Equal(t, model.QualityPoor, computeQualityMetrics(poor).Label)
}
