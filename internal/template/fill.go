package template

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hajime-dev/devicekb/internal/ai"
	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// notFoundSentinel is what the fill prompt tells the model to emit when
// the evidence does not contain the value.
const notFoundSentinel = "NOT_FOUND"

var typeInstructions = map[model.FieldType]string{
	model.FieldProductName:    "Return only the device's generic or product name.",
	model.FieldManufacturer:   "Return only the company name, no address, no label prefix.",
	model.FieldDocumentNumber: "Return only the document number exactly as written.",
	model.FieldModelNumber:    "Return only the model number exactly as written.",
	model.FieldDate:           "Return only the date.",
	model.FieldSignature:      "Return only the name of the person who signed or is authorized to sign.",
	model.FieldGeneric:        "Return only the value, with no label prefix or explanation.",
}

// fillFields answers every field with evidence from its retrieval step.
// Fields whose evidence is empty are left unfilled immediately; the rest
// go through batched fill calls, falling back to pattern extraction when
// the service cannot answer.
func (f *Filler) fillFields(ctx context.Context, fields []*model.Field) {
	var fillable []*model.Field
	for _, field := range fields {
		if len(field.Evidence) == 0 {
			field.Filled = false
			continue
		}
		fillable = append(fillable, field)
	}
	if len(fillable) == 0 {
		return
	}
	items := make([]ai.Item, 0, len(fillable))
	for i, field := range fillable {
		items = append(items, ai.Item{
			Key:    fmt.Sprintf("fill-%d", i),
			Prompt: buildFillPrompt(field),
		})
	}
	results := f.invoker.InvokeBatch(ctx, items, ai.GenerateOptions{Temperature: 0.02, MaxTokens: 128})
	for i, field := range fillable {
		if results[i].Err != nil {
			logutil.GetLogger(ctx).Warn("generative fill failed, trying pattern extraction",
				zap.String("field", field.Name), zap.Error(results[i].Err))
			f.patternFill(field)
			continue
		}
		value := cleanFillValue(field.Name, results[i].Text)
		if value == "" || strings.EqualFold(value, notFoundSentinel) {
			f.patternFill(field)
			continue
		}
		field.Value = value
		field.Filled = true
		field.Confidence = bestEvidenceScore(field)
		field.SourceCount = len(field.Evidence)
	}
}

func buildFillPrompt(field *model.Field) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Extract the value for the field %q (type: %s) from the evidence below.\n", field.Name, field.Type)
	sb.WriteString(typeInstructions[field.Type])
	fmt.Fprintf(&sb, " If the evidence does not contain the value, answer exactly %s.\n\n", notFoundSentinel)
	for i, ev := range field.Evidence {
		fmt.Fprintf(&sb, "Evidence %d:\n%s\n\n", i+1, ev.Chunk.Content)
	}
	return sb.String()
}

// cleanFillValue strips residual label prefixes and wrapping the model
// tends to echo back ("Manufacturer: Acme" -> "Acme").
func cleanFillValue(fieldName string, raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.Trim(value, "\"'")
	for _, prefix := range []string{fieldName, "answer", "value"} {
		if prefix == "" {
			continue
		}
		lower := strings.ToLower(value)
		p := strings.ToLower(prefix)
		if strings.HasPrefix(lower, p) {
			rest := strings.TrimSpace(value[len(prefix):])
			if strings.HasPrefix(rest, ":") || strings.HasPrefix(rest, "-") || strings.HasPrefix(rest, "=") {
				value = strings.TrimSpace(rest[1:])
			}
		}
	}
	// A one-line value only; discard trailing commentary.
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value
}

// patternFill scans the field's evidence for a "label: value" line
// matching the field name. Lower confidence than a generative fill, but it
// keeps jobs productive while the service is down.
func (f *Filler) patternFill(field *model.Field) {
	if field.Name != "" {
		re, err := regexp.Compile(`(?im)^\s*` + regexp.QuoteMeta(field.Name) + `\s*[.:]+\s*(.+)$`)
		if err != nil {
			return
		}
		for _, ev := range field.Evidence {
			if m := re.FindStringSubmatch(ev.Chunk.Content); m != nil {
				value := strings.TrimSpace(m[1])
				if value == "" {
					continue
				}
				field.Value = value
				field.Filled = true
				field.Confidence = bestEvidenceScore(field) * 0.8
				field.SourceCount = 1
				return
			}
		}
	}
	// Signature fields often appear as "Signed by <name>" rather than a
	// labelled line.
	if field.Type == model.FieldSignature {
		signedRe := regexp.MustCompile(`(?i)\b(?:signed by|authorized by|approved by)[:\s]+([A-Z][\w.]*(?:\s+[A-Z][\w.]*)*)`)
		for _, ev := range field.Evidence {
			if m := signedRe.FindStringSubmatch(ev.Chunk.Content); m != nil {
				field.Value = strings.TrimSpace(m[1])
				field.Filled = true
				field.Confidence = bestEvidenceScore(field) * 0.8
				field.SourceCount = 1
				return
			}
		}
	}
}

func bestEvidenceScore(field *model.Field) float64 {
	best := 0.0
	for _, ev := range field.Evidence {
		if ev.CompositeScore > best {
			best = ev.CompositeScore
		}
	}
	return best
}
