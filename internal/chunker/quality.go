package chunker

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/hajime-dev/devicekb/internal/model"
)

var (
	identifierRe = regexp.MustCompile(`\b[A-Z]{1,4}[-_]?\d{2,}[A-Z0-9-]*\b`)
	artifactRe   = regexp.MustCompile(`[^\w\s.,;:()\[\]{}|/%&+'"-]{3,}|\x{FFFD}`)
	colonLabelRe = regexp.MustCompile(`(?m)^\s*[A-Za-z][\w /()-]{1,60}:\s*\S?`)
	bulletRe     = regexp.MustCompile(`(?m)^\s*([-*•]|\d+[.)])\s+`)
	tableRowRe   = regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`)
)

// scoreQuality rates a span in [0,1]. Penalties target the artifacts bad
// extraction produces: unprintable bytes, symbol runs, degenerate word
// lengths and text with no sentence shape at all.
func scoreQuality(content string) float64 {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0
	}
	score := 1.0

	printable := 0
	for _, r := range trimmed {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			printable++
		}
	}
	printableRatio := float64(printable) / float64(len([]rune(trimmed)))
	if printableRatio < 0.95 {
		score -= (0.95 - printableRatio) * 4
	}

	artifactHits := len(artifactRe.FindAllString(trimmed, -1))
	if artifactHits > 0 {
		score -= float64(artifactHits) * 0.08
	}

	words := strings.Fields(trimmed)
	if len(words) < 2 {
		return clamp01(score - 0.5)
	}
	total := 0
	for _, w := range words {
		total += len([]rune(w))
	}
	avgLen := float64(total) / float64(len(words))
	if avgLen < 2.0 || avgLen > 14.0 {
		score -= 0.3
	}

	hasSentence := strings.ContainsAny(trimmed, ".!?") || colonLabelRe.MatchString(trimmed) || bulletRe.MatchString(trimmed)
	if !hasSentence {
		score -= 0.2
	}
	return clamp01(score)
}

// scoreImportance rewards spans that look like the parts of a manual users
// actually ask about: domain keywords, model-number style identifiers,
// proper nouns.
func scoreImportance(content string, domainKeywords []string) float64 {
	lower := strings.ToLower(content)
	score := 0.3

	hits := 0
	for _, kw := range domainKeywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	if hits > 4 {
		hits = 4
	}
	score += float64(hits) * 0.10

	if identifierRe.MatchString(content) {
		score += 0.15
	}
	if countProperNouns(content) >= 3 {
		score += 0.10
	}
	return clamp01(score)
}

// extractKeywords returns the matched domain keywords plus identifier-like
// tokens, sorted for determinism, together with the entity density of the
// span.
func extractKeywords(content string, domainKeywords []string) ([]string, float64) {
	lower := strings.ToLower(content)
	seen := map[string]struct{}{}
	for _, kw := range domainKeywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			seen[strings.ToLower(kw)] = struct{}{}
		}
	}
	ids := identifierRe.FindAllString(content, -1)
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	keywords := make([]string, 0, len(seen))
	for k := range seen {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)

	words := strings.Fields(content)
	if len(words) == 0 {
		return keywords, 0
	}
	entities := len(ids) + countProperNouns(content)
	return keywords, float64(entities) / float64(len(words))
}

// countProperNouns counts capitalized words that do not start a sentence.
func countProperNouns(content string) int {
	words := strings.Fields(content)
	count := 0
	prevEnd := true
	for _, w := range words {
		runes := []rune(w)
		if len(runes) >= 2 && unicode.IsUpper(runes[0]) && unicode.IsLower(runes[1]) && !prevEnd {
			count++
		}
		prevEnd = strings.HasSuffix(w, ".") || strings.HasSuffix(w, "!") || strings.HasSuffix(w, "?") || strings.HasSuffix(w, ":")
	}
	return count
}

// classifyContent picks the span's content type. Table hints and pipe rows
// mean structured, bullet or numbered lines mean list, a run of colon
// labels means form, everything else is prose.
func classifyContent(content string, start int, end int, hints *Hints) model.ContentType {
	if hints != nil && hints.overlapsTable(start, end) {
		return model.ContentTypeStructured
	}
	if len(tableRowRe.FindAllString(content, -1)) >= 2 {
		return model.ContentTypeStructured
	}
	lines := strings.Split(content, "\n")
	nonEmpty, bullets, labels := 0, 0, 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		nonEmpty++
		if bulletRe.MatchString(line) {
			bullets++
		}
		if colonLabelRe.MatchString(line) {
			labels++
		}
	}
	if nonEmpty == 0 {
		return model.ContentTypeText
	}
	if float64(bullets)/float64(nonEmpty) >= 0.4 {
		return model.ContentTypeList
	}
	if labels >= 2 && float64(labels)/float64(nonEmpty) >= 0.3 {
		return model.ContentTypeForm
	}
	return model.ContentTypeText
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
