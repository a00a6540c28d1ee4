package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hajime-dev/devicekb/internal/ai"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var numberedLineRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s*(.+?)\s*$`)

// expandQuery asks the completion service for alternative phrasings of the
// query in one call. Prior user turns, when present, let the rewrites
// resolve follow-up references. The original query always leads the
// returned list; on any failure the heuristic variations stand in so
// retrieval still runs.
func (r *Retriever) expandQuery(ctx context.Context, query string, priorTurns []string) []string {
	count := r.cfg.QueryVariations
	if count < 1 {
		return []string{query}
	}
	prompt := buildVariationPrompt(query, count, priorTurns)
	resp, err := r.invoker.Generate(ctx, prompt, ai.GenerateOptions{Temperature: 0.4, MaxTokens: 512})
	if err != nil {
		logutil.GetLogger(ctx).Warn("query expansion unavailable, using heuristic variations", zap.Error(err))
		return heuristicVariations(query, count)
	}
	variations := parseVariations(resp, count)
	if len(variations) == 0 {
		logutil.GetLogger(ctx).Warn("query expansion returned no usable lines, using heuristic variations")
		return heuristicVariations(query, count)
	}
	return append([]string{query}, variations...)
}

func buildVariationPrompt(query string, count int, priorTurns []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rewrite the following question about a device in %d different ways.\n", count)
	sb.WriteString("Mix paraphrases, synonym substitutions and one broader phrasing. ")
	sb.WriteString("Output only the rewritten questions, one per line, numbered 1. to ")
	fmt.Fprintf(&sb, "%d.\n", count)
	if len(priorTurns) > 0 {
		sb.WriteString("\nEarlier questions in this conversation, oldest first:\n")
		for _, turn := range priorTurns {
			sb.WriteString("- " + turn + "\n")
		}
	}
	fmt.Fprintf(&sb, "\nQuestion: %s\n", query)
	return sb.String()
}

func parseVariations(resp string, limit int) []string {
	matches := numberedLineRe.FindAllStringSubmatch(resp, -1)
	variations := make([]string, 0, limit)
	for _, m := range matches {
		v := strings.TrimSpace(m[1])
		if v == "" {
			continue
		}
		variations = append(variations, v)
		if len(variations) == limit {
			break
		}
	}
	return variations
}

// heuristicVariations keeps multi-query retrieval alive when the generative
// service is down. The rewrites are crude but widen the embedding space
// enough to help recall.
func heuristicVariations(query string, count int) []string {
	candidates := []string{
		query,
		"information about " + strings.TrimRight(query, "?"),
		strings.TrimRight(query, "?") + " specification",
		"details on " + strings.TrimRight(query, "?"),
	}
	if count+1 < len(candidates) {
		candidates = candidates[:count+1]
	}
	return candidates
}
