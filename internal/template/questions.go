package template

import (
	"context"
	"fmt"
	"strings"

	"github.com/hajime-dev/devicekb/internal/ai"
	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Static question templates per field type, used both as fallback when the
// generative service is down and as seed instructions for the batched
// question call.
var typeQuestions = map[model.FieldType][]string{
	model.FieldProductName:    {"what is the generic name of the device?", "what is the product called?"},
	model.FieldManufacturer:   {"who is the manufacturer of the device?", "what company makes this device?"},
	model.FieldDocumentNumber: {"what is the document number?", "what is the document control number?"},
	model.FieldModelNumber:    {"what is the model number of the device?", "which model is this device?"},
	model.FieldDate:           {"what is the date of the document?", "when was the document issued?"},
	model.FieldSignature:      {"who signed the document?", "who is the authorized signatory?"},
	model.FieldGeneric:        {"what is the value of %s?"},
}

// generateQuestions fills every field's Questions slice using exactly one
// batched call covering the whole job. Any failure degrades to the static
// templates; question generation never fails a job.
func (f *Filler) generateQuestions(ctx context.Context, fields []*model.Field) {
	items := make([]ai.Item, 0, len(fields))
	for i, field := range fields {
		items = append(items, ai.Item{
			Key:    fmt.Sprintf("field-%d", i),
			Prompt: buildQuestionPrompt(field, f.cfg.QuestionsPerField),
		})
	}
	results := f.invoker.InvokeBatch(ctx, items, ai.GenerateOptions{Temperature: 0.3, MaxTokens: 256})
	for i, field := range fields {
		if results[i].Err != nil {
			logutil.GetLogger(ctx).Warn("question generation failed, using template questions",
				zap.String("field", field.Name), zap.Error(results[i].Err))
			field.Questions = fallbackQuestions(field, f.cfg.QuestionsPerField)
			continue
		}
		questions := parseNumberedLines(results[i].Text, f.cfg.QuestionsPerField)
		if len(questions) == 0 {
			field.Questions = fallbackQuestions(field, f.cfg.QuestionsPerField)
			continue
		}
		field.Questions = questions
	}
}

func buildQuestionPrompt(field *model.Field, count int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write up to %d short search questions to find the value of the template field %q", count, field.Name)
	fmt.Fprintf(&sb, " (type: %s) in a device's documentation.\n", field.Type)
	if field.Context != "" {
		fmt.Fprintf(&sb, "Field context: %s\n", field.Context)
	}
	if seeds := typeQuestions[field.Type]; field.Type != model.FieldGeneric && len(seeds) > 0 {
		fmt.Fprintf(&sb, "Questions like: %s\n", strings.Join(seeds, " / "))
	}
	sb.WriteString("Output only the questions, numbered one per line.")
	return sb.String()
}

func fallbackQuestions(field *model.Field, limit int) []string {
	seeds := typeQuestions[field.Type]
	questions := make([]string, 0, limit)
	for _, seed := range seeds {
		if strings.Contains(seed, "%s") {
			seed = fmt.Sprintf(seed, field.Name)
		}
		questions = append(questions, seed)
		if len(questions) == limit {
			break
		}
	}
	if len(questions) == 0 {
		questions = append(questions, fmt.Sprintf("what is the value of %s?", field.Name))
	}
	return questions
}

func parseNumberedLines(resp string, limit int) []string {
	var out []string
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.) -")
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}
