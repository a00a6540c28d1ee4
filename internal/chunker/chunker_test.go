package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/hajime-dev/devicekb/internal/config"
	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/stretchr/testify/require"
)

func testConfig() config.ChunkingConfig {
	return config.ChunkingConfig{
		ChunkSize:         200,
		ChunkOverlap:      50,
		MinChunkSize:      60,
		BoundaryTolerance: 40,
		QualityFloor:      0.30,
		DomainKeywords:    []string{"oximeter", "sensor", "battery"},
	}
}

func sentencePara(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString("The device measures oxygen saturation continuously. ")
	}
	return strings.TrimSpace(sb.String())
}

func TestChunkDeterministic(t *testing.T) {
	c := New(testConfig())
	text := sentencePara(30)
	a := c.Chunk(context.Background(), "doc1", "dev1", text, nil)
	b := c.Chunk(context.Background(), "doc1", "dev1", text, nil)
	require.Equal(t, a, b)
	require.NotEmpty(t, a.Chunks)
}

func TestChunkSpansCoverSource(t *testing.T) {
	c := New(testConfig())
	text := sentencePara(40)
	res := c.Chunk(context.Background(), "doc1", "dev1", text, nil)
	require.Zero(t, res.Dropped)
	require.True(t, len(res.Chunks) > 1)

	// De-overlapped spans tile the source exactly.
	require.Equal(t, 0, res.Chunks[0].StartOffset)
	for i := 1; i < len(res.Chunks); i++ {
		prev, cur := res.Chunks[i-1], res.Chunks[i]
		require.True(t, cur.StartOffset < prev.EndOffset, "consecutive chunks must overlap")
		require.Equal(t, prev.Content[cur.StartOffset-prev.StartOffset:], cur.Content[:prev.EndOffset-cur.StartOffset])
	}
	require.Equal(t, len(text), res.Chunks[len(res.Chunks)-1].EndOffset)
	for i, ch := range res.Chunks {
		require.Equal(t, text[ch.StartOffset:ch.EndOffset], ch.Content)
		require.Equal(t, i, ch.Index)
	}
}

func TestChunkMinSizeInvariant(t *testing.T) {
	c := New(testConfig())
	res := c.Chunk(context.Background(), "doc1", "dev1", sentencePara(40), nil)
	for i, ch := range res.Chunks {
		if i == len(res.Chunks)-1 {
			continue
		}
		require.GreaterOrEqual(t, len(ch.Content), 60, "only the last chunk may be short")
	}
}

func TestChunkBoundaryPrefersParagraphBreak(t *testing.T) {
	cfg := testConfig()
	c := New(cfg)
	first := sentencePara(3) + " It also logs trends."
	text := first + "\n\n" + sentencePara(10)
	res := c.Chunk(context.Background(), "doc1", "dev1", text, nil)
	require.True(t, len(res.Chunks) > 1)
	// The paragraph break falls inside the first window's tolerance, so the
	// first chunk ends right after it.
	require.Equal(t, len(first)+2, res.Chunks[0].EndOffset)
}

func TestChunkDropsGarbage(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkSize = 100
	cfg.ChunkOverlap = 10
	cfg.MinChunkSize = 20
	c := New(cfg)
	garbage := strings.Repeat("��#@!$%^� ", 30)
	res := c.Chunk(context.Background(), "doc1", "dev1", garbage, nil)
	require.Empty(t, res.Chunks)
	require.Greater(t, res.Dropped, 0)
}

func TestChunkEmptyInput(t *testing.T) {
	c := New(testConfig())
	res := c.Chunk(context.Background(), "doc1", "dev1", "   \n  ", nil)
	require.Empty(t, res.Chunks)
	require.Zero(t, res.Dropped)
}

func TestClassifyContent(t *testing.T) {
	form := "Product name: Pulse Oximeter\nManufacturer: Acme Medical\nModel number: PO-100\nSerial: 12345\n"
	require.Equal(t, model.ContentTypeForm, classifyContent(form, 0, len(form), nil))

	list := "- check the battery\n- clean the sensor\n- verify the display\n"
	require.Equal(t, model.ContentTypeList, classifyContent(list, 0, len(list), nil))

	structured := "| Parameter | Range |\n| SpO2 | 70-100% |\n| Pulse | 30-250 bpm |\n"
	require.Equal(t, model.ContentTypeStructured, classifyContent(structured, 0, len(structured), nil))

	prose := "The device continuously measures oxygen saturation. Readings update every second."
	require.Equal(t, model.ContentTypeText, classifyContent(prose, 0, len(prose), nil))
}

func TestQualityScoring(t *testing.T) {
	clean := sentencePara(5)
	garbled := strings.Repeat("�@#$%^&*� ", 20)
	require.Greater(t, scoreQuality(clean), 0.8)
	require.Less(t, scoreQuality(garbled), 0.3)
	require.Zero(t, scoreQuality("   "))
}

func TestImportanceScoring(t *testing.T) {
	keywords := []string{"oximeter", "sensor"}
	rich := "The Acme Medical oximeter model PO-100 uses an infrared sensor made by Acme Devices Inc."
	plain := "this section intentionally says nothing of note at all."
	require.Greater(t, scoreImportance(rich, keywords), scoreImportance(plain, keywords))
}

func TestExtractKeywords(t *testing.T) {
	keywords, density := extractKeywords("The oximeter model PO-100 has a red sensor.", []string{"oximeter", "sensor", "battery"})
	require.Contains(t, keywords, "oximeter")
	require.Contains(t, keywords, "sensor")
	require.Contains(t, keywords, "PO-100")
	require.NotContains(t, keywords, "battery")
	require.Greater(t, density, 0.0)
}

func TestExtractHintsTables(t *testing.T) {
	text := "Intro paragraph.\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\nOutro paragraph.\n"
	hints := ExtractHints(text)
	tableStart := strings.Index(text, "| a |")
	require.True(t, hints.overlapsTable(tableStart, tableStart+5))
	require.False(t, hints.overlapsTable(0, 5))
}

func TestExtractHintsHeadings(t *testing.T) {
	text := "# Maintenance\n\nClean the sensor weekly.\n"
	hints := ExtractHints(text)
	require.True(t, hints.IsHeadingLine(strings.Index(text, "Maintenance")))
	require.False(t, hints.IsHeadingLine(strings.Index(text, "Clean")))
}
