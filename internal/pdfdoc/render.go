package pdfdoc

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/platinummonkey/folio/internal/document"
	"github.com/signintech/gopdf"
)

// lineSpacing is the line height as a multiple of the font size
const lineSpacing = 1.2

type op struct {
	redact bool
	rect   document.Rect
	fill   document.Color
	lines  []string
	opts   document.TextOptions
}

// Page is a page of an open PDF. Edits are kept in order and drawn over the
// original page at save time.
type Page struct {
	doc    *Document
	index  int
	width  float64
	height float64
	fonts  map[string]bool
	ops    []op
}

func (p *Page) Index() int { return p.index }

func (p *Page) Size() (float64, float64) { return p.width, p.height }

// RawBlocks extracts the page's text regions
func (p *Page) RawBlocks() ([]document.RawBlock, error) {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()

	if p.doc.closed {
		return nil, ErrClosed
	}
	glyphs, err := readGlyphs(p.doc.reader, p.index+1)
	if err != nil {
		return nil, err
	}
	return groupBlocks(groupLines(glyphs, p.height)), nil
}

// Redact covers rect with fill
func (p *Page) Redact(rect document.Rect, fill document.Color) error {
	if rect.Empty() {
		return fmt.Errorf("cannot redact empty rectangle %+v", rect)
	}
	p.ops = append(p.ops, op{redact: true, rect: rect, fill: fill})
	return nil
}

// RegisterFont loads font into the document and enables it on this page
func (p *Page) RegisterFont(font document.Font) error {
	if err := p.doc.registerFont(font); err != nil {
		return err
	}
	p.fonts[font.Name] = true
	return nil
}

// InsertText wraps text to rect's width and reports the height left over.
// Nothing is recorded when the text is taller than rect unless opts.Overflow
// is set.
func (p *Page) InsertText(rect document.Rect, text string, opts document.TextOptions) (float64, error) {
	if !p.fonts[opts.Font] {
		return 0, fmt.Errorf("font %q is not registered on page %d", opts.Font, p.index)
	}
	if opts.Size <= 0 {
		return 0, fmt.Errorf("invalid font size %v", opts.Size)
	}

	p.doc.mu.Lock()
	lines, err := p.doc.meter.wrap(opts.Font, opts.Size, rect.Width(), text)
	p.doc.mu.Unlock()
	if err != nil {
		return 0, err
	}

	left := rect.Height() - float64(len(lines))*opts.Size*lineSpacing
	if left < 0 && !opts.Overflow {
		return left, nil
	}

	p.ops = append(p.ops, op{rect: rect, lines: lines, opts: opts})
	return left, nil
}

func (p *Page) render(out *gopdf.GoPdf) error {
	for _, o := range p.ops {
		if o.redact {
			out.SetFillColor(o.fill.R, o.fill.G, o.fill.B)
			out.RectFromUpperLeftWithStyle(o.rect.X0, o.rect.Y0, o.rect.Width(), o.rect.Height(), "F")
			continue
		}

		if err := out.SetFont(o.opts.Font, "", o.opts.Size); err != nil {
			return err
		}
		out.SetTextColor(o.opts.Color.R, o.opts.Color.G, o.opts.Color.B)

		lineHeight := o.opts.Size * lineSpacing
		for i, line := range o.lines {
			x := o.rect.X0
			if o.opts.Align != document.AlignLeft {
				w, err := out.MeasureTextWidth(line)
				if err != nil {
					return err
				}
				switch o.opts.Align {
				case document.AlignCenter:
					x += (o.rect.Width() - w) / 2
				case document.AlignRight:
					x += o.rect.Width() - w
				}
			}
			out.SetXY(x, o.rect.Y0+float64(i)*lineHeight)
			if err := out.Cell(nil, line); err != nil {
				return fmt.Errorf("failed to write text: %w", err)
			}
		}
	}
	return nil
}

// measurer holds a scratch gopdf instance used only for text metrics
type measurer struct {
	pdf *gopdf.GoPdf
}

func newMeasurer() *measurer {
	m := &gopdf.GoPdf{}
	m.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	m.AddPage()
	return &measurer{pdf: m}
}

// wrap breaks text into lines no wider than width. Explicit newlines are kept.
// Words are kept whole where possible; scripts written without spaces break
// between characters.
func (m *measurer) wrap(font string, size, width float64, text string) ([]string, error) {
	if m == nil {
		return nil, fmt.Errorf("no font registered")
	}
	if err := m.pdf.SetFont(font, "", size); err != nil {
		return nil, err
	}
	measure := func(s string) (float64, error) {
		return m.pdf.MeasureTextWidth(strings.TrimRight(s, " "))
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		var cur string
		for _, tok := range tokenize(para) {
			w, err := measure(cur + tok)
			if err != nil {
				return nil, err
			}
			if w <= width {
				cur += tok
				continue
			}
			if strings.TrimSpace(cur) != "" {
				lines = append(lines, strings.TrimRight(cur, " "))
			}
			cur = strings.TrimLeft(tok, " ")

			w, err = measure(cur)
			if err != nil {
				return nil, err
			}
			if w <= width {
				continue
			}

			// a single word wider than the box
			word := cur
			cur = ""
			for _, r := range word {
				w, err := measure(cur + string(r))
				if err != nil {
					return nil, err
				}
				if w > width && cur != "" {
					lines = append(lines, cur)
					cur = ""
				}
				cur += string(r)
			}
		}
		lines = append(lines, strings.TrimRight(cur, " "))
	}
	return lines, nil
}

// tokenize splits s into words with their trailing spaces, with every
// character of an unspaced script as its own token
func tokenize(s string) []string {
	var (
		toks      []string
		b         strings.Builder
		lastSpace bool
	)
	flush := func() {
		if b.Len() > 0 {
			toks = append(toks, b.String())
			b.Reset()
		}
	}

	for _, r := range s {
		switch {
		case isUnspaced(r):
			flush()
			toks = append(toks, string(r))
			lastSpace = false
		case unicode.IsSpace(r):
			b.WriteRune(' ')
			lastSpace = true
		default:
			if lastSpace {
				flush()
			}
			b.WriteRune(r)
			lastSpace = false
		}
	}
	flush()
	return toks
}

func isUnspaced(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Thai) ||
		(r >= 0x3000 && r <= 0x303f) ||
		(r >= 0xff00 && r <= 0xffef)
}
