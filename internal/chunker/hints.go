package chunker

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

type span struct {
	start int
	end   int
}

// Hints carries the structural information the text-extraction step knows
// about a document: which byte ranges are tables and which are headings.
// The chunker uses them to avoid cutting through table blocks and to tag
// structured content.
type Hints struct {
	tables   []span
	headings []span
}

var hintsParser = goldmark.New(goldmark.WithExtensions(extension.Table))

// ExtractHints parses markdown-flavoured extracted text and records table
// and heading spans. Plain text without markup yields empty hints, which
// every consumer treats as "no structure known".
func ExtractHints(source string) *Hints {
	src := []byte(source)
	doc := hintsParser.Parser().Parse(text.NewReader(src))
	hints := &Hints{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case extast.KindTable:
			if sp, ok := nodeSpan(n); ok {
				hints.tables = append(hints.tables, sp)
			}
			return ast.WalkSkipChildren, nil
		case ast.KindHeading:
			if sp, ok := nodeSpan(n); ok {
				hints.headings = append(hints.headings, sp)
			}
		}
		return ast.WalkContinue, nil
	})
	return hints
}

// nodeSpan computes the byte range a node covers by collecting the source
// segments of its subtree.
func nodeSpan(root ast.Node) (span, bool) {
	start, end := -1, -1
	grow := func(s, e int) {
		if start == -1 || s < start {
			start = s
		}
		if e > end {
			end = e
		}
	}
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			grow(t.Segment.Start, t.Segment.Stop)
			return ast.WalkContinue, nil
		}
		if n.Type() == ast.TypeBlock {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				grow(seg.Start, seg.Stop)
			}
		}
		return ast.WalkContinue, nil
	})
	if start == -1 {
		return span{}, false
	}
	return span{start: start, end: end}, true
}

// tableSpanAt reports whether offset falls strictly inside a table block,
// returning the block start so the caller can cut before it.
func (h *Hints) tableSpanAt(offset int) (int, bool) {
	for _, sp := range h.tables {
		if offset > sp.start && offset < sp.end {
			return sp.start, true
		}
	}
	return 0, false
}

func (h *Hints) overlapsTable(start int, end int) bool {
	for _, sp := range h.tables {
		if start < sp.end && end > sp.start {
			return true
		}
	}
	return false
}

// IsHeadingLine reports whether the byte offset lies inside a heading.
func (h *Hints) IsHeadingLine(offset int) bool {
	for _, sp := range h.headings {
		if offset >= sp.start && offset < sp.end {
			return true
		}
	}
	return false
}
