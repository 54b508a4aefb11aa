package pdfdoc

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/platinummonkey/folio/internal/document"
)

// glyph is a positioned piece of text in PDF user space (origin bottom-left,
// Y at the baseline)
type glyph struct {
	X, Y, W float64
	Size    float64
	Font    string
	S       string
}

// Ascent and descent as fractions of the font size, used to turn baselines
// into boxes
const (
	ascent  = 0.8
	descent = 0.2
)

func readGlyphs(r *pdf.Reader, pageNum int) (glyphs []glyph, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to parse content of page %d: %v", pageNum, rec)
		}
	}()

	page := r.Page(pageNum)
	if page.V.IsNull() {
		return nil, nil
	}
	if page.V.Key("Contents").Kind() == pdf.Null {
		return nil, nil
	}

	return placeGlyphs(page.Content().Text), nil
}

// advance is the estimated glyph width, as a fraction of the font size, for
// fonts whose widths the reader cannot resolve
const advance = 0.5

// placeGlyphs converts reader output into glyphs. Embedded CID fonts come back
// with zero widths and every glyph of a run at the run's start X, so those
// widths are estimated and the positions accumulated along the run.
func placeGlyphs(items []pdf.Text) []glyph {
	var (
		glyphs []glyph
		prev   *glyph
		prevX  float64
	)
	for _, t := range items {
		if t.S == "" {
			continue
		}
		g := glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, Font: t.Font, S: t.S}
		if g.W <= 0 {
			g.W = advance * g.Size * float64(utf8.RuneCountInString(g.S))
			stuck := prev != nil && math.Abs(t.Y-prev.Y) < 0.01 && math.Abs(t.X-prevX) < 0.01
			if stuck {
				g.X = prev.X + prev.W
			}
		}
		prevX = t.X
		glyphs = append(glyphs, g)
		prev = &glyphs[len(glyphs)-1]
	}
	return glyphs
}

type lineBuilder struct {
	spans    []document.Span
	x0, x1   float64
	baseline float64
	size     float64
}

func (l *lineBuilder) add(g glyph, space bool) {
	text := g.S
	if space {
		text = " " + text
	}
	if n := len(l.spans); n > 0 && l.spans[n-1].Font == g.Font && l.spans[n-1].Size == g.Size {
		l.spans[n-1].Text += text
	} else {
		l.spans = append(l.spans, document.Span{Text: text, Size: g.Size, Font: g.Font})
	}
	l.x0 = math.Min(l.x0, g.X)
	l.x1 = math.Max(l.x1, g.X+g.W)
	l.size = math.Max(l.size, g.Size)
}

func (l *lineBuilder) line(pageHeight float64) document.Line {
	return document.Line{
		Spans: l.spans,
		Rect: document.Rect{
			X0: l.x0,
			Y0: pageHeight - (l.baseline + ascent*l.size),
			X1: l.x1,
			Y1: pageHeight - l.baseline + descent*l.size,
		},
	}
}

// groupLines joins consecutive glyphs sharing a baseline into lines. A large
// horizontal jump starts a new line so side-by-side columns stay apart.
func groupLines(glyphs []glyph, pageHeight float64) []document.Line {
	var (
		lines []document.Line
		cur   *lineBuilder
	)
	flush := func() {
		if cur != nil && len(cur.spans) > 0 {
			lines = append(lines, cur.line(pageHeight))
		}
		cur = nil
	}

	for _, g := range glyphs {
		size := g.Size
		if size <= 0 {
			size = 1
		}
		if cur != nil {
			sameBaseline := math.Abs(g.Y-cur.baseline) <= 0.3*math.Max(size, cur.size)
			gap := g.X - cur.x1
			if sameBaseline && gap >= -size && gap <= 3*size {
				space := gap > 0.25*size && !strings.HasSuffix(lastText(cur), " ") && strings.TrimSpace(g.S) != ""
				cur.add(g, space)
				continue
			}
			flush()
		}
		cur = &lineBuilder{x0: g.X, x1: g.X, baseline: g.Y, size: g.Size}
		cur.add(g, false)
	}
	flush()
	return lines
}

func lastText(l *lineBuilder) string {
	if len(l.spans) == 0 {
		return ""
	}
	return l.spans[len(l.spans)-1].Text
}

func lineSize(l document.Line) float64 {
	var s float64
	for _, sp := range l.Spans {
		s = math.Max(s, sp.Size)
	}
	return s
}

// groupBlocks merges vertically adjacent, horizontally overlapping lines of
// similar size into blocks
func groupBlocks(lines []document.Line) []document.RawBlock {
	var blocks []document.RawBlock
	for _, line := range lines {
		if n := len(blocks); n > 0 && continues(blocks[n-1], line) {
			b := &blocks[n-1]
			b.Lines = append(b.Lines, line)
			b.Rect = b.Rect.Union(line.Rect)
			continue
		}
		blocks = append(blocks, document.RawBlock{
			Kind:  document.KindText,
			Rect:  line.Rect,
			Lines: []document.Line{line},
		})
	}
	return blocks
}

func continues(b document.RawBlock, line document.Line) bool {
	prev := b.Lines[len(b.Lines)-1]
	ps, ls := lineSize(prev), lineSize(line)
	if ps <= 0 || ls <= 0 {
		return false
	}
	if math.Max(ps, ls)/math.Min(ps, ls) > 1.25 {
		return false
	}
	gap := line.Rect.Y0 - prev.Rect.Y1
	if gap < -0.5*ls || gap > 0.8*ls {
		return false
	}
	return line.Rect.X0 < b.Rect.X1 && line.Rect.X1 > b.Rect.X0
}
