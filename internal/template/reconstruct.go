package template

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hajime-dev/devicekb/internal/model"
)

// reconstruct splices filled values back into the source text. Every byte
// outside a filled field's span is preserved; unfilled fields keep their
// original placeholder untouched.
func reconstruct(source string, fields []*model.Field) string {
	ordered := make([]*model.Field, len(fields))
	copy(ordered, fields)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SpanStart < ordered[j].SpanStart })

	var sb strings.Builder
	sb.Grow(len(source))
	pos := 0
	for _, field := range ordered {
		if !field.Filled || field.SpanStart < pos || field.SpanEnd > len(source) {
			continue
		}
		sb.WriteString(source[pos:field.SpanStart])
		sb.WriteString(renderValue(field, source[field.SpanStart:field.SpanEnd]))
		pos = field.SpanEnd
	}
	sb.WriteString(source[pos:])
	return sb.String()
}

func renderValue(field *model.Field, original string) string {
	switch field.Pattern {
	case model.PatternColonLabel:
		// Zero-width span just after the colon; insert the value.
		return " " + field.Value
	case model.PatternSignatureLine:
		return centerIn(field.Value, len(original))
	default:
		// Markers, brackets, short underlines, dot leaders and date tokens
		// are replaced in place.
		return field.Value
	}
}

// centerIn pads the value with spaces to the width of the run it replaces,
// so a filled signature keeps the visual position of the line it replaced.
func centerIn(value string, width int) string {
	n := utf8.RuneCountInString(value)
	if n >= width {
		return value
	}
	left := (width - n) / 2
	right := width - n - left
	return strings.Repeat(" ", left) + value + strings.Repeat(" ", right)
}
