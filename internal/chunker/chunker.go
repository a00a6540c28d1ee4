// Package chunker turns extracted document text into overlapping, scored
// retrieval units. Chunking is deterministic: identical input and config
// produce identical chunks.
package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/hajime-dev/devicekb/internal/config"
	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Chunker struct {
	cfg config.ChunkingConfig
}

// Result carries the emitted chunks in source order plus the count of
// spans rejected by the quality floor.
type Result struct {
	Chunks  []*model.Chunk
	Dropped int
}

func New(cfg config.ChunkingConfig) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1500
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = 300
	}
	if cfg.BoundaryTolerance <= 0 {
		cfg.BoundaryTolerance = 200
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits text into windows of about ChunkSize bytes with ChunkOverlap
// carried between neighbours. Window ends are pulled backward to the nearest
// paragraph, sentence or label boundary so structured content is not split
// mid-row. The final window may be shorter than MinChunkSize.
func (c *Chunker) Chunk(ctx context.Context, documentID string, deviceID string, text string, hints *Hints) *Result {
	res := &Result{}
	if strings.TrimSpace(text) == "" {
		return res
	}
	start := 0
	for start < len(text) {
		end := start + c.cfg.ChunkSize
		last := false
		if end >= len(text) {
			end = len(text)
			last = true
		} else {
			end = c.adjustBoundary(text, start, end, hints)
		}
		content := text[start:end]
		if !last && len(content) < c.cfg.MinChunkSize {
			// Boundary adjustment over-shrank the window; fall back to the
			// raw cut so forward progress is kept.
			end = start + c.cfg.ChunkSize
			content = text[start:end]
		}
		quality := scoreQuality(content)
		if quality < c.cfg.QualityFloor {
			res.Dropped++
			logutil.GetLogger(ctx).Debug("dropped low quality chunk",
				zap.String("document_id", documentID),
				zap.Int("offset", start),
				zap.Float64("quality", quality))
		} else {
			keywords, density := extractKeywords(content, c.cfg.DomainKeywords)
			res.Chunks = append(res.Chunks, &model.Chunk{
				ID:               fmt.Sprintf("%s_%d", documentID, len(res.Chunks)),
				DocumentID:       documentID,
				DeviceID:         deviceID,
				Index:            len(res.Chunks),
				Content:          content,
				StartOffset:      start,
				EndOffset:        end,
				QualityScore:     quality,
				ImportanceScore:  scoreImportance(content, c.cfg.DomainKeywords),
				SemanticKeywords: keywords,
				EntityDensity:    density,
				ContentType:      classifyContent(content, start, end, hints),
			})
		}
		if last {
			break
		}
		next := end - c.cfg.ChunkOverlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return res
}

// adjustBoundary searches backward from end, at most BoundaryTolerance
// bytes, for a cleaner cut point. Paragraph breaks win over sentence ends,
// sentence ends over line breaks, line breaks over plain spaces. A cut that
// would land inside a hinted table block is moved to the block start.
func (c *Chunker) adjustBoundary(text string, start int, end int, hints *Hints) int {
	floor := end - c.cfg.BoundaryTolerance
	if floor < start+1 {
		floor = start + 1
	}
	if hints != nil {
		if tableStart, in := hints.tableSpanAt(end); in && tableStart >= floor {
			return tableStart
		}
	}
	window := text[floor:end]
	if idx := strings.LastIndex(window, "\n\n"); idx >= 0 {
		return floor + idx + 2
	}
	for _, mark := range []string{". ", ".\n", "? ", "! "} {
		if idx := strings.LastIndex(window, mark); idx >= 0 {
			return floor + idx + len(mark)
		}
	}
	if idx := strings.LastIndex(window, "\n"); idx >= 0 {
		return floor + idx + 1
	}
	if idx := strings.LastIndex(window, " "); idx >= 0 {
		return floor + idx + 1
	}
	return end
}
