package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hajime-dev/devicekb/internal/ai"
	"github.com/hajime-dev/devicekb/internal/config"
	"github.com/hajime-dev/devicekb/internal/model"
)

type Synthesizer struct {
	invoker *ai.Invoker
	cfg     config.SynthesisConfig
}

func NewSynthesizer(invoker *ai.Invoker, cfg config.SynthesisConfig) *Synthesizer {
	return &Synthesizer{invoker: invoker, cfg: cfg}
}

// Synthesize produces a citation-bound answer from the evidence list.
// Evidence below the acceptable tier is discarded first; if nothing
// survives, a fixed not-found answer is returned without any call to the
// generative service.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, evidence []model.RetrievalResult) (*model.Answer, error) {
	usable := make([]model.RetrievalResult, 0, len(evidence))
	for _, ev := range evidence {
		if ev.Tier == model.TierRejected {
			continue
		}
		usable = append(usable, ev)
	}
	if len(usable) == 0 {
		return s.notFoundAnswer(evidence), nil
	}

	text, err := s.invoker.Generate(ctx, s.buildPrompt(query, usable), ai.GenerateOptions{
		Temperature: float32(s.cfg.Temperature),
		MaxTokens:   int32(s.cfg.MaxTokens),
	})
	degraded := false
	if err != nil {
		// The service being down must not kill the answer path: fall back
		// to quoting the strongest evidence verbatim.
		text = s.extractiveFallback(usable)
		degraded = true
	}

	citations := make([]model.Citation, 0, len(usable))
	for i, ev := range usable {
		citations = append(citations, model.Citation{
			DocumentNumber: i + 1,
			Filename:       ev.Filename,
			ChunkID:        ev.Chunk.ID,
			Score:          ev.CompositeScore,
			ContentPreview: preview(ev.Chunk.Content, s.cfg.PreviewChars),
		})
	}
	metrics := computeQualityMetrics(usable)
	metrics.DegradedMode = degraded
	return &model.Answer{Text: text, Citations: citations, Metrics: metrics}, nil
}

func (s *Synthesizer) buildPrompt(query string, evidence []model.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using ONLY the numbered documents below.\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Every factual claim must cite its document as [document_number].\n")
	sb.WriteString("- Do not use outside knowledge or fill gaps by inference.\n")
	sb.WriteString("- If the documents do not answer the question, say so explicitly.\n\n")
	for i, ev := range evidence {
		fmt.Fprintf(&sb, "[Document %d] (source: %s)\n%s\n\n", i+1, ev.Filename, ev.Chunk.Content)
	}
	fmt.Fprintf(&sb, "Question: %s\n", query)
	return sb.String()
}

func (s *Synthesizer) extractiveFallback(evidence []model.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString("The answer service is currently unavailable. Most relevant excerpts:\n\n")
	limit := len(evidence)
	if limit > 3 {
		limit = 3
	}
	for i := 0; i < limit; i++ {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, preview(evidence[i].Chunk.Content, s.cfg.PreviewChars*2))
	}
	return strings.TrimSpace(sb.String())
}

// notFoundAnswer enumerates what the rejected evidence did talk about so
// the user can rephrase, but cites nothing and asserts nothing.
func (s *Synthesizer) notFoundAnswer(evidence []model.RetrievalResult) *model.Answer {
	topics := map[string]struct{}{}
	for _, ev := range evidence {
		for _, kw := range ev.Chunk.SemanticKeywords {
			topics[kw] = struct{}{}
		}
	}
	text := "No relevant information was found in the uploaded documents for this question."
	if len(topics) > 0 {
		names := make([]string, 0, len(topics))
		for t := range topics {
			names = append(names, t)
		}
		sort.Strings(names)
		if len(names) > 8 {
			names = names[:8]
		}
		text += " The available documents cover: " + strings.Join(names, ", ") + "."
	}
	return &model.Answer{
		Text:      text,
		Citations: []model.Citation{},
		Metrics:   model.QualityMetrics{Label: model.QualityPoor},
	}
}

func preview(content string, limit int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if limit <= 0 || len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}
