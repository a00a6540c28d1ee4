package template

import (
	"strings"

	"github.com/hajime-dev/devicekb/internal/model"
)

// Classification vocabularies in priority order; the first vocabulary with
// a hit in the field name (or, failing that, its context) wins. Document
// number sits ahead of model number so "Document No." never lands on the
// model vocabulary.
var classifyRules = []struct {
	fieldType model.FieldType
	keywords  []string
}{
	{model.FieldProductName, []string{"generic name", "product name", "device name", "common name", "trade name"}},
	{model.FieldManufacturer, []string{"manufacturer", "manufactured by", "made by", "company name", "producer"}},
	{model.FieldDocumentNumber, []string{"document no", "document number", "doc no", "control no", "reference no"}},
	{model.FieldModelNumber, []string{"model no", "model number", "model"}},
	{model.FieldDate, []string{"date", "dated", "valid until", "expiry"}},
	{model.FieldSignature, []string{"signature", "signed by", "signed", "authorized by", "approved by"}},
}

func classifyField(f *model.Field) model.FieldType {
	name := strings.ToLower(f.Name)
	for _, rule := range classifyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.fieldType
			}
		}
	}
	// Pattern kinds that imply a type on their own outrank fuzzy context
	// matching: a bare signature-length run is a signature even when the
	// surrounding lines mention other labels.
	switch f.Pattern {
	case model.PatternSignatureLine:
		return model.FieldSignature
	case model.PatternDateToken:
		return model.FieldDate
	}
	context := strings.ToLower(f.Context)
	for _, rule := range classifyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(context, kw) {
				return rule.fieldType
			}
		}
	}
	return model.FieldGeneric
}

func classifyFields(fields []*model.Field) {
	for _, f := range fields {
		f.Type = classifyField(f)
	}
}
