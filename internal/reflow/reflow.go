// Package reflow writes translated text back into the region its source text
// occupied, shrinking the font until it fits.
package reflow

import (
	"errors"
	"fmt"

	"github.com/platinummonkey/folio/internal/document"
	"github.com/platinummonkey/folio/internal/extract"
	"github.com/platinummonkey/folio/internal/logger"
)

// State is the progress of one block through the engine. States only move
// forward.
type State int

const (
	Extracted State = iota
	Redacted
	Sized
	Inserted
)

func (s State) String() string {
	switch s {
	case Extracted:
		return "extracted"
	case Redacted:
		return "redacted"
	case Sized:
		return "sized"
	case Inserted:
		return "inserted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Policy holds the font size heuristics
type Policy struct {
	// PreserveLayout derives the starting size from the block's own text.
	// When false every block starts at DefaultSize.
	PreserveLayout bool

	DefaultSize float64

	// HeadingThreshold is the size at or above which text is treated as a
	// heading and not shrunk
	HeadingThreshold float64

	// FloorSize is the smallest size tried
	FloorSize float64

	// Shrink is subtracted from body text sizes and between attempts
	Shrink float64
}

// DefaultPolicy returns the standard heuristics
func DefaultPolicy(preserveLayout bool) Policy {
	return Policy{
		PreserveLayout:   preserveLayout,
		DefaultSize:      10,
		HeadingThreshold: 14,
		FloorSize:        6,
		Shrink:           1,
	}
}

// StartSize returns the first size to try for a block whose dominant size is
// dominant. A zero dominant size means the block reported none.
func (p Policy) StartSize(dominant float64) float64 {
	if !p.PreserveLayout {
		return p.DefaultSize
	}
	size := dominant
	if size <= 0 {
		size = p.DefaultSize
	}
	if size < p.HeadingThreshold {
		size = max(p.FloorSize, size-p.Shrink)
	}
	return float64(int(size))
}

// sizes lists the sizes to try from start down to the floor. A start below
// the floor is tried alone.
func (p Policy) sizes(start float64) []float64 {
	step := p.Shrink
	if step <= 0 {
		step = 1
	}
	if start < p.FloorSize {
		return []float64{start}
	}
	var out []float64
	for s := start; s >= p.FloorSize; s -= step {
		out = append(out, s)
	}
	return out
}

// Outcome describes how a block was written
type Outcome struct {
	State State

	// Size is the font size the text was written at
	Size float64

	// Attempts counts sizes tried before the text fitted or was forced
	Attempts int

	// Forced is set when no size fitted and the text overflows its box
	Forced bool

	// Fallback is set when the source text was written instead of the
	// translation
	Fallback bool
}

// Engine reflows blocks on pages
type Engine struct {
	policy Policy
	font   document.Font
	color  document.Color
	log    *logger.Logger
}

// Config configures an Engine
type Config struct {
	Policy Policy
	Font   document.Font

	// Logger is optional
	Logger *logger.Logger
}

// New creates an Engine
func New(cfg *Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	return &Engine{
		policy: cfg.Policy,
		font:   cfg.Font,
		color:  document.Black,
		log:    log,
	}
}

// Policy returns the engine's size policy
func (e *Engine) Policy() Policy {
	return e.policy
}

// PrepareFont registers the engine's font on page. Call it once per page
// before the first Reflow on that page.
func (e *Engine) PrepareFont(page document.Page) error {
	if err := page.RegisterFont(e.font); err != nil {
		return fmt.Errorf("failed to register font %s on page %d: %w", e.font.Name, page.Index(), err)
	}
	return nil
}

// Reflow blanks block's rectangle and writes text into it. If writing text
// fails, fallback is written instead so the region is not left empty.
func (e *Engine) Reflow(page document.Page, block document.TextBlock, text, fallback string) (Outcome, error) {
	out := Outcome{State: Extracted}

	if err := page.Redact(block.Rect, document.White); err != nil {
		return out, fmt.Errorf("failed to redact block: %w", err)
	}
	out.State = Redacted

	start := e.policy.StartSize(extract.DominantSize(block.Sizes))
	out.State = Sized

	err := e.fit(page, block.Rect, text, start, &out)
	if err == nil {
		return out, nil
	}
	if fallback == "" || fallback == text {
		return out, err
	}

	e.log.WithPage(page.Index()).WithError(err).Warn("Writing translated text failed, restoring source text")
	out.Fallback = true
	out.Attempts = 0
	if ferr := e.fit(page, block.Rect, fallback, start, &out); ferr != nil {
		return out, errors.Join(err, ferr)
	}
	return out, nil
}

// fit places text, turning a panic in the page backend into an error so the
// caller can still restore the source text.
func (e *Engine) fit(page document.Page, rect document.Rect, text string, start float64, out *Outcome) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while inserting text: %v", r)
		}
	}()
	return e.place(page, rect, text, start, out)
}

func (e *Engine) place(page document.Page, rect document.Rect, text string, start float64, out *Outcome) error {
	opts := document.TextOptions{
		Font:  e.font.Name,
		Color: e.color,
		Align: document.AlignLeft,
	}

	for _, size := range e.policy.sizes(start) {
		opts.Size = size
		out.Attempts++
		left, err := page.InsertText(rect, text, opts)
		if err != nil {
			return fmt.Errorf("failed to insert text at size %.0f: %w", size, err)
		}
		if left >= 0 {
			out.Size = size
			out.State = Inserted
			return nil
		}
	}

	// Overflowing text is better than a blank region.
	opts.Size = min(start, e.policy.FloorSize)
	opts.Overflow = true
	if _, err := page.InsertText(rect, text, opts); err != nil {
		return fmt.Errorf("failed to force insert text: %w", err)
	}
	out.Size = opts.Size
	out.Forced = true
	out.State = Inserted

	e.log.WithPage(page.Index()).Warnw("Text does not fit its box, inserted at floor size",
		"size", opts.Size,
		"text", preview(text, 20),
	)
	return nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
