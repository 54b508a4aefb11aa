// Package pdfdoc implements the document model on PDF files.
//
// Text is read with ledongthuc/pdf. Mutations are recorded per page and
// applied at Save, which re-renders every page from its imported original with
// gopdf and then lets pdfcpu drop unreferenced objects. Redaction paints an
// opaque rectangle over the original content; the original glyphs remain in
// the imported page underneath it.
package pdfdoc

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/platinummonkey/folio/internal/document"
	"github.com/platinummonkey/folio/internal/logger"
	"github.com/signintech/gopdf"
)

// ErrClosed is returned when a closed document is used
var ErrClosed = errors.New("document is closed")

// Document is an open PDF file
type Document struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	reader *pdf.Reader
	pages  []*Page
	fonts  map[string]document.Font
	meter  *measurer
	closed bool
	logger *logger.Logger
}

// Option configures Open
type Option func(*Document)

// WithLogger sets the document's logger
func WithLogger(log *logger.Logger) Option {
	return func(d *Document) {
		d.logger = log
	}
}

// Open opens the PDF at path
func Open(path string, opts ...Option) (*Document, error) {
	d := &Document{
		path:   path,
		fonts:  make(map[string]document.Font),
		logger: logger.Get(),
	}
	for _, opt := range opts {
		opt(d)
	}

	info, err := ReadInfo(path)
	if err != nil {
		return nil, err
	}
	if info.Encrypted {
		return nil, fmt.Errorf("encrypted PDFs are not supported: %s", path)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	d.file = f
	d.reader = r

	d.pages = make([]*Page, len(info.Pages))
	for i, box := range info.Pages {
		d.pages[i] = &Page{
			doc:    d,
			index:  i,
			width:  box.Width,
			height: box.Height,
			fonts:  make(map[string]bool),
		}
	}

	d.logger.WithFields("pdf_path", path, "page_count", len(d.pages), "version", info.PDFVersion).
		Debug("Opened PDF")
	return d, nil
}

// Opener opens documents with the given options
func Opener(opts ...Option) document.Opener {
	return document.OpenerFunc(func(path string) (document.Document, error) {
		return Open(path, opts...)
	})
}

// Path returns the file the document was opened from
func (d *Document) Path() string {
	return d.path
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return len(d.pages)
}

// Page returns the page at a 0-based index
func (d *Document) Page(index int) (document.Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", index, len(d.pages))
	}
	return d.pages[index], nil
}

func (d *Document) registerFont(font document.Font) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if _, ok := d.fonts[font.Name]; ok {
		return nil
	}
	if d.meter == nil {
		d.meter = newMeasurer()
	}
	if err := addFont(d.meter.pdf, font); err != nil {
		return err
	}
	d.fonts[font.Name] = font
	return nil
}

// Save renders the document with all page edits to path
func (d *Document) Save(path string) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if len(d.pages) == 0 {
		return fmt.Errorf("document has no pages")
	}

	// gofpdi panics on PDF structures it cannot import
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to render %s: %v", d.path, r)
		}
	}()

	out := &gopdf.GoPdf{}
	out.Start(gopdf.Config{PageSize: gopdf.Rect{W: d.pages[0].width, H: d.pages[0].height}})

	names := make([]string, 0, len(d.fonts))
	for name := range d.fonts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := addFont(out, d.fonts[name]); err != nil {
			return err
		}
	}

	for _, p := range d.pages {
		out.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: p.width, H: p.height}})
		tpl := out.ImportPage(d.path, p.index+1, "/MediaBox")
		out.UseImportedTemplate(tpl, 0, 0, p.width, p.height)

		if err := p.render(out); err != nil {
			return fmt.Errorf("failed to render page %d: %w", p.index, err)
		}
	}

	raw := path + ".raw"
	defer os.Remove(raw)
	if err := out.WritePdf(raw); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	return optimize(raw, path)
}

// Close releases the underlying file. It is safe to call more than once.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

func addFont(p *gopdf.GoPdf, font document.Font) error {
	var err error
	if len(font.Data) > 0 {
		err = p.AddTTFFontData(font.Name, font.Data)
	} else {
		err = p.AddTTFFont(font.Name, font.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to load font %s: %w", font.Name, err)
	}
	return nil
}
