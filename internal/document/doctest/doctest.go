// Package doctest provides an in-memory document for tests.
package doctest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/platinummonkey/folio/internal/document"
)

// Op is one recorded page mutation
type Op struct {
	Kind string // "redact", "font", "text"
	Rect document.Rect
	Text string
	Opts document.TextOptions
	Font document.Font
}

// FitFunc decides whether text fits rect at size, returning the space left
// (negative for overflow)
type FitFunc func(rect document.Rect, text string, size float64) float64

// CharFit models text as size*0.5 wide glyphs and 1.2*size lines
func CharFit(rect document.Rect, text string, size float64) float64 {
	perLine := int(rect.Width() / (size * 0.5))
	if perLine < 1 {
		return -1
	}
	lines := 0
	for _, l := range strings.Split(text, "\n") {
		n := len([]rune(l))
		lines += max(1, (n+perLine-1)/perLine)
	}
	return rect.Height() - float64(lines)*size*1.2
}

// Page is an in-memory page
type Page struct {
	mu     sync.Mutex
	index  int
	width  float64
	height float64
	blocks []document.RawBlock
	fit    FitFunc
	fonts  map[string]bool

	// Ops records every mutation in order
	Ops []Op

	// RedactErr and InsertErr inject failures
	RedactErr error
	InsertErr func(text string) error

	// BlocksErr fails RawBlocks
	BlocksErr error

	// PanicOnBlocks makes RawBlocks panic
	PanicOnBlocks bool
}

// NewPage creates a Letter-sized page with the given blocks
func NewPage(blocks ...document.RawBlock) *Page {
	return &Page{width: 612, height: 792, blocks: blocks, fit: CharFit, fonts: map[string]bool{}}
}

// WithFit replaces the fit function
func (p *Page) WithFit(fit FitFunc) *Page {
	p.fit = fit
	return p
}

func (p *Page) Index() int { return p.index }

func (p *Page) Size() (float64, float64) { return p.width, p.height }

func (p *Page) RawBlocks() ([]document.RawBlock, error) {
	if p.PanicOnBlocks {
		panic("corrupt page content")
	}
	if p.BlocksErr != nil {
		return nil, p.BlocksErr
	}
	return p.blocks, nil
}

func (p *Page) Redact(rect document.Rect, fill document.Color) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RedactErr != nil {
		return p.RedactErr
	}
	p.Ops = append(p.Ops, Op{Kind: "redact", Rect: rect})
	return nil
}

func (p *Page) RegisterFont(font document.Font) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fonts[font.Name] = true
	p.Ops = append(p.Ops, Op{Kind: "font", Font: font})
	return nil
}

func (p *Page) InsertText(rect document.Rect, text string, opts document.TextOptions) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if opts.Font != "" && !p.fonts[opts.Font] {
		return 0, fmt.Errorf("font %q not registered", opts.Font)
	}
	if p.InsertErr != nil {
		if err := p.InsertErr(text); err != nil {
			return 0, err
		}
	}
	left := p.fit(rect, text, opts.Size)
	if left < 0 && !opts.Overflow {
		return left, nil
	}
	p.Ops = append(p.Ops, Op{Kind: "text", Rect: rect, Text: text, Opts: opts})
	return left, nil
}

// Texts returns the inserted texts in order
func (p *Page) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, op := range p.Ops {
		if op.Kind == "text" {
			out = append(out, op.Text)
		}
	}
	return out
}

// Count returns the number of ops of a kind
func (p *Page) Count(kind string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, op := range p.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Document is an in-memory document
type Document struct {
	path   string
	pages  []*Page
	closed int

	// SaveErr fails Save after writing a partial file
	SaveErr error

	// Saved records the paths written
	Saved []string
}

// New creates a document with the given pages
func New(path string, pages ...*Page) *Document {
	for i, p := range pages {
		p.index = i
	}
	return &Document{path: path, pages: pages}
}

func (d *Document) Path() string { return d.path }

func (d *Document) PageCount() int { return len(d.pages) }

func (d *Document) Page(i int) (document.Page, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("page %d out of range", i)
	}
	return d.pages[i], nil
}

// Save writes a JSON summary of every page's texts to path
func (d *Document) Save(path string) error {
	if d.closed > 0 {
		return errors.New("document is closed")
	}
	summary := make([][]string, len(d.pages))
	for i, p := range d.pages {
		summary[i] = p.Texts()
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	if d.SaveErr != nil {
		_ = os.WriteFile(path, data[:len(data)/2], 0644)
		return d.SaveErr
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	d.Saved = append(d.Saved, path)
	return nil
}

func (d *Document) Close() error {
	d.closed++
	return nil
}

// Closed reports whether Close was called
func (d *Document) Closed() bool { return d.closed > 0 }

// ReadSaved decodes a file written by Save
func ReadSaved(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out [][]string
	err = json.Unmarshal(data, &out)
	return out, err
}

// TextBlock builds a one-line raw text block
func TextBlock(rect document.Rect, size float64, lines ...string) document.RawBlock {
	b := document.RawBlock{Kind: document.KindText, Rect: rect}
	for _, l := range lines {
		b.Lines = append(b.Lines, document.Line{Spans: []document.Span{{Text: l, Size: size}}})
	}
	return b
}

// ImageBlock builds a non-text block
func ImageBlock(rect document.Rect) document.RawBlock {
	return document.RawBlock{Kind: document.KindImage, Rect: rect}
}
