// Package document defines the page model the translation pipeline works on.
//
// Coordinates are PDF points with the origin at the top-left corner of the
// page and y growing downwards.
package document

import "io"

// Rect is an axis-aligned rectangle
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns the horizontal extent
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Empty reports whether the rectangle has no area
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Union returns the smallest rectangle containing both
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// BlockKind distinguishes text from non-text regions
type BlockKind int

const (
	// KindText is a region of text lines
	KindText BlockKind = iota
	// KindImage is an image or vector region
	KindImage
)

// Span is a run of text in a single font and size
type Span struct {
	Text string
	Size float64
	Font string
}

// Line is a sequence of spans on one baseline
type Line struct {
	Spans []Span
	Rect  Rect
}

// Text concatenates the span texts
func (l Line) Text() string {
	n := 0
	for _, s := range l.Spans {
		n += len(s.Text)
	}
	b := make([]byte, 0, n)
	for _, s := range l.Spans {
		b = append(b, s.Text...)
	}
	return string(b)
}

// RawBlock is a region as reported by the document backend
type RawBlock struct {
	Kind  BlockKind
	Rect  Rect
	Lines []Line
}

// TextBlock is a text region ready for translation
type TextBlock struct {
	Rect Rect

	// Text is the block's lines joined with newlines
	Text string

	// Sizes lists the span font sizes in reading order
	Sizes []float64
}

// Color is an RGB colour with components in 0..255
type Color struct {
	R, G, B uint8
}

var (
	// Black is the default text colour
	Black = Color{}
	// White is the redaction fill
	White = Color{R: 255, G: 255, B: 255}
)

// Align is the horizontal alignment of inserted text
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Font is a font resource that can be registered on a page
type Font struct {
	// Name is the resource name used in TextOptions
	Name string

	// Path is a TrueType file on disk, or empty when Data is set
	Path string

	// Data is an in-memory TrueType font
	Data []byte
}

// TextOptions control InsertText
type TextOptions struct {
	Font  string
	Size  float64
	Color Color
	Align Align

	// Overflow writes the text even when it does not fit the rectangle
	Overflow bool
}

// Page is one page of an open document
type Page interface {
	// Index is the 0-based page number
	Index() int

	// Size returns the page width and height in points
	Size() (width, height float64)

	// RawBlocks returns the page's regions as currently extracted
	RawBlocks() ([]RawBlock, error)

	// Redact fills rect with an opaque colour, hiding what was there
	Redact(rect Rect, fill Color) error

	// RegisterFont makes a font available to InsertText on this page
	RegisterFont(font Font) error

	// InsertText lays text out inside rect. It returns the vertical space left
	// below the text; a negative value means the text did not fit, in which
	// case nothing is written unless opts.Overflow is set.
	InsertText(rect Rect, text string, opts TextOptions) (float64, error)
}

// Document is an open, mutable document
type Document interface {
	io.Closer

	// Path is the file the document was opened from
	Path() string

	// PageCount returns the number of pages
	PageCount() int

	// Page returns the page at a 0-based index
	Page(index int) (Page, error)

	// Save writes the document, with unused objects removed, to path
	Save(path string) error
}

// Opener opens documents by path
type Opener interface {
	Open(path string) (Document, error)
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(path string) (Document, error)

// Open calls f
func (f OpenerFunc) Open(path string) (Document, error) { return f(path) }
