package template

import (
	"strings"
	"testing"

	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/stretchr/testify/require"
)

func detectAll(t *testing.T, text string, signatureRun int) []*model.Field {
	t.Helper()
	det := &detector{signatureRunLength: signatureRun}
	return det.detectFields(text, 0)
}

func TestDetectMissingMarkers(t *testing.T) {
	fields := detectAll(t, "Manufacturer: [MISSING]\nVersion: [Enter version]\n", 12)
	require.Len(t, fields, 2)
	require.Equal(t, model.PatternMissingMarker, fields[0].Pattern)
	require.Equal(t, "Manufacturer", fields[0].Name)
	require.Equal(t, model.PatternMissingMarker, fields[1].Pattern)
}

func TestDetectBracketPlaceholders(t *testing.T) {
	fields := detectAll(t, "Serial Number: {serial_number}\nType: <device_type>\nClass: [IIb]\n", 12)
	require.Len(t, fields, 3)
	for _, f := range fields {
		require.Equal(t, model.PatternBracket, f.Pattern)
	}
	require.Equal(t, "Serial Number", fields[0].Name)
}

func TestDetectColonLabel(t *testing.T) {
	text := "Document No.:\nSome prose line.\n"
	fields := detectAll(t, text, 12)
	require.Len(t, fields, 1)
	f := fields[0]
	require.Equal(t, model.PatternColonLabel, f.Pattern)
	require.Equal(t, "Document No.", f.Name)
	// Zero-width span right after the colon.
	require.Equal(t, f.SpanStart, f.SpanEnd)
	require.Equal(t, ":", text[f.SpanStart-1:f.SpanStart])
}

func TestDetectUnderlineLengthSplit(t *testing.T) {
	fields := detectAll(t, "Model No.: ______\nSignature: ________________\n", 12)
	require.Len(t, fields, 2)
	require.Equal(t, model.PatternUnderline, fields[0].Pattern)
	require.Equal(t, model.PatternSignatureLine, fields[1].Pattern)
}

func TestDetectDateTokenBeatsUnderline(t *testing.T) {
	fields := detectAll(t, "Date: __/__/____\n", 12)
	require.Len(t, fields, 1)
	require.Equal(t, model.PatternDateToken, fields[0].Pattern)
	require.Equal(t, "Date", fields[0].Name)
}

func TestDetectDotLeader(t *testing.T) {
	fields := detectAll(t, "Approved by ........\n", 12)
	require.Len(t, fields, 1)
	require.Equal(t, model.PatternDotLeader, fields[0].Pattern)
}

func TestDetectSpansPointIntoSource(t *testing.T) {
	text := "Intro line.\nManufacturer: [MISSING]\nDate: __/__/____\n"
	fields := detectAll(t, text, 12)
	require.Len(t, fields, 2)
	require.Equal(t, "[MISSING]", text[fields[0].SpanStart:fields[0].SpanEnd])
	require.Equal(t, "__/__/____", text[fields[1].SpanStart:fields[1].SpanEnd])
}

func TestDetectStartsAtContentLine(t *testing.T) {
	text := "1. Device Info ........ 3\nSection 1\nModel No.: ______\n"
	det := &detector{signatureRunLength: 12}
	fields := det.detectFields(text, 1)
	require.Len(t, fields, 1)
	require.Equal(t, 2, fields[0].Line)
}

func TestClassifyFieldTypes(t *testing.T) {
	cases := []struct {
		name    string
		pattern model.PatternKind
		want    model.FieldType
	}{
		{"Generic name", model.PatternColonLabel, model.FieldProductName},
		{"Manufacturer", model.PatternMissingMarker, model.FieldManufacturer},
		{"Document No.", model.PatternColonLabel, model.FieldDocumentNumber},
		{"Model", model.PatternColonLabel, model.FieldModelNumber},
		{"Date", model.PatternDateToken, model.FieldDate},
		{"Signature", model.PatternSignatureLine, model.FieldSignature},
		{"Risk Category", model.PatternBracket, model.FieldGeneric},
	}
	for _, tc := range cases {
		f := &model.Field{Name: tc.name, Pattern: tc.pattern}
		require.Equal(t, tc.want, classifyField(f), "field %s", tc.name)
	}
}

func TestClassifyBareSignatureRunIgnoresContext(t *testing.T) {
	f := &model.Field{
		Name:    "",
		Pattern: model.PatternSignatureLine,
		Context: "Generic name: Model: _________",
	}
	require.Equal(t, model.FieldSignature, classifyField(f))
}

func TestFindContentStartSkipsTOC(t *testing.T) {
	text := strings.Join([]string{
		"ABC Medical Devices Inc.",
		"Page 1 of 10",
		"",
		"Table of Contents",
		"1. Introduction ........................ 3",
		"2. Device Information .................. 4",
		"",
		"Section 1: Introduction",
		"Generic name: [To be filled]",
	}, "\n")
	lines := strings.Split(text, "\n")
	start := findContentStart(lines)
	require.Equal(t, "Section 1: Introduction", lines[start])
}

func TestFindContentStartWithoutHeadings(t *testing.T) {
	lines := []string{"Acme Corp", "Generic name: [MISSING]", "Model: ___"}
	require.Equal(t, 1, findContentStart(lines))
}

func TestFilterContentDropsBoilerplate(t *testing.T) {
	text := strings.Join([]string{
		"CONFIDENTIAL",
		"Page 1 of 10",
		"Table of Contents",
		"1. Introduction ........................ 3",
		"Section 1: Introduction",
		"Generic name: [To be filled]",
	}, "\n")
	filtered, start := filterContent(text)
	require.NotContains(t, filtered, "Table of Contents")
	require.NotContains(t, filtered, "Page 1 of 10")
	require.Contains(t, filtered, "Generic name: [To be filled]")
	require.Equal(t, 4, start)
}
