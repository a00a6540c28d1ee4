package template

import (
	"regexp"
	"strings"

	"github.com/hajime-dev/devicekb/internal/model"
)

// Detection rules in priority order. Within a line the first rule to claim
// a span wins; later rules never override a claimed span. Date tokens sit
// ahead of underline runs so "__/__/____" is one date field instead of a
// split underline run.
var detectRules = []struct {
	kind model.PatternKind
	re   *regexp.Regexp
}{
	{model.PatternMissingMarker, regexp.MustCompile(`(?i)\[\s*(missing|to be filled|tbd|enter\b)[^\]]*\]`)},
	{model.PatternBracket, regexp.MustCompile(`\[[^\]]*\]|\{[^}]*\}|<[^>]*>`)},
	{model.PatternDateToken, regexp.MustCompile(`_{1,2}/_{1,2}/_{2,4}`)},
	{model.PatternUnderline, regexp.MustCompile(`_{3,}`)},
	{model.PatternDotLeader, regexp.MustCompile(`\.{3,}`)},
}

var colonLabelLineRe = regexp.MustCompile(`^\s*([A-Za-z][\w .,/()&'-]{1,60})\s*:\s*$`)

var fieldNameBeforeRe = regexp.MustCompile(`([A-Za-z][A-Za-z .'/&-]*?)\s*:?\s*$`)

type detector struct {
	signatureRunLength int
}

// detectFields scans original lines from startLine and returns fields with
// byte spans into the original text, in source order.
func (d *detector) detectFields(text string, startLine int) []*model.Field {
	lines := strings.Split(text, "\n")
	offsets := lineOffsets(text)
	var fields []*model.Field
	for i := startLine; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields = append(fields, d.detectInLine(lines, offsets, i)...)
	}
	return fields
}

func (d *detector) detectInLine(lines []string, offsets []int, lineNo int) []*model.Field {
	line := lines[lineNo]
	var fields []*model.Field
	var claimed [][2]int

	overlaps := func(start, end int) bool {
		for _, c := range claimed {
			if start < c[1] && end > c[0] {
				return true
			}
		}
		return false
	}

	for _, rule := range detectRules {
		for _, loc := range rule.re.FindAllStringIndex(line, -1) {
			if overlaps(loc[0], loc[1]) {
				continue
			}
			claimed = append(claimed, [2]int{loc[0], loc[1]})
			kind := rule.kind
			if kind == model.PatternUnderline && loc[1]-loc[0] >= d.signatureRunLength {
				kind = model.PatternSignatureLine
			}
			fields = append(fields, &model.Field{
				Name:      fieldNameFromContext(line, loc[0], line[loc[0]:loc[1]]),
				Pattern:   kind,
				Line:      lineNo,
				SpanStart: offsets[lineNo] + loc[0],
				SpanEnd:   offsets[lineNo] + loc[1],
				Context:   surroundingContext(lines, lineNo),
			})
		}
	}

	// Bare colon labels ("Document No.:") carry no placeholder span; the
	// field is the zero-width insertion point after the colon.
	if len(fields) == 0 {
		if m := colonLabelLineRe.FindStringSubmatch(line); m != nil {
			colon := strings.LastIndex(line, ":")
			fields = append(fields, &model.Field{
				Name:      strings.TrimSpace(m[1]),
				Pattern:   model.PatternColonLabel,
				Line:      lineNo,
				SpanStart: offsets[lineNo] + colon + 1,
				SpanEnd:   offsets[lineNo] + colon + 1,
				Context:   surroundingContext(lines, lineNo),
			})
		}
	}

	// Emit in span order regardless of which rule found them.
	for i := 1; i < len(fields); i++ {
		for j := i; j > 0 && fields[j-1].SpanStart > fields[j].SpanStart; j-- {
			fields[j-1], fields[j] = fields[j], fields[j-1]
		}
	}
	return fields
}

// fieldNameFromContext derives a field name from the text preceding the
// placeholder on the same line, falling back to the placeholder body.
func fieldNameFromContext(line string, matchPos int, matched string) string {
	before := strings.TrimSpace(line[:matchPos])
	if m := fieldNameBeforeRe.FindStringSubmatch(before); m != nil {
		name := strings.TrimSpace(m[1])
		if name != "" {
			return trailingWords(name, 3)
		}
	}
	if words := strings.Fields(before); len(words) > 0 {
		return trailingWords(strings.TrimRight(strings.Join(words, " "), ":"), 3)
	}
	return strings.Trim(matched, "[]{}<>_./ ")
}

func trailingWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

func surroundingContext(lines []string, lineNo int) string {
	start := lineNo - 2
	if start < 0 {
		start = 0
	}
	end := lineNo + 3
	if end > len(lines) {
		end = len(lines)
	}
	parts := make([]string, 0, end-start)
	for _, line := range lines[start:end] {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

func lineOffsets(text string) []int {
	lines := strings.Split(text, "\n")
	offsets := make([]int, len(lines))
	pos := 0
	for i, line := range lines {
		offsets[i] = pos
		pos += len(line) + 1
	}
	return offsets
}
