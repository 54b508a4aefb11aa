package reflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/platinummonkey/folio/internal/document"
	"github.com/platinummonkey/folio/internal/document/doctest"
	"github.com/platinummonkey/folio/internal/fonts"
	"github.com/platinummonkey/folio/internal/logger"
)

func newEngine(preserve bool) *Engine {
	return New(&Config{
		Policy: DefaultPolicy(preserve),
		Font:   fonts.Builtin(),
		Logger: logger.Nop(),
	})
}

func block(size float64, w, h float64) document.TextBlock {
	return document.TextBlock{
		Rect:  document.Rect{X0: 50, Y0: 50, X1: 50 + w, Y1: 50 + h},
		Text:  "source",
		Sizes: []float64{size},
	}
}

func preparedPage(t *testing.T, e *Engine) *doctest.Page {
	t.Helper()
	page := doctest.NewPage()
	if err := e.PrepareFont(page); err != nil {
		t.Fatalf("PrepareFont() error = %v", err)
	}
	return page
}

func TestStartSize(t *testing.T) {
	on := DefaultPolicy(true)
	off := DefaultPolicy(false)

	tests := []struct {
		name     string
		policy   Policy
		dominant float64
		want     float64
	}{
		{"heading kept", on, 18, 18},
		{"threshold kept", on, 14, 14},
		{"body shrunk", on, 10, 9},
		{"fractional body", on, 11.5, 10},
		{"fractional heading truncated", on, 16.8, 16},
		{"floor", on, 6.5, 6},
		{"below floor", on, 4, 6},
		{"no sizes", on, 0, 9},
		{"preserve off", off, 18, 10},
		{"preserve off small", off, 6, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.StartSize(tt.dominant); got != tt.want {
				t.Errorf("StartSize(%v) = %v, want %v", tt.dominant, got, tt.want)
			}
		})
	}
}

func TestReflow_FitsAtStartSize(t *testing.T) {
	e := newEngine(true)
	page := preparedPage(t, e)

	out, err := e.Reflow(page, block(18, 400, 100), "Translated heading", "source")
	if err != nil {
		t.Fatalf("Reflow() error = %v", err)
	}
	if out.Size != 18 || out.Attempts != 1 || out.Forced || out.State != Inserted {
		t.Errorf("unexpected outcome %+v", out)
	}

	if page.Count("redact") != 1 {
		t.Errorf("expected one redaction, got %d", page.Count("redact"))
	}
	// redaction must precede insertion
	if page.Ops[1].Kind != "redact" || page.Ops[2].Kind != "text" {
		t.Errorf("unexpected op order: %+v", page.Ops)
	}
	if page.Ops[2].Opts.Font != fonts.ResourceName {
		t.Errorf("inserted with font %q", page.Ops[2].Opts.Font)
	}
}

func TestReflow_ShrinksUntilFit(t *testing.T) {
	e := newEngine(true)
	page := preparedPage(t, e).WithFit(func(_ document.Rect, _ string, size float64) float64 {
		if size > 7 {
			return -1
		}
		return 1
	})

	out, err := e.Reflow(page, block(10, 100, 20), "text", "source")
	if err != nil {
		t.Fatalf("Reflow() error = %v", err)
	}
	// 9, 8, 7
	if out.Size != 7 || out.Attempts != 3 || out.Forced {
		t.Errorf("unexpected outcome %+v", out)
	}
	if page.Count("text") != 1 {
		t.Errorf("expected exactly one written text, got %d", page.Count("text"))
	}
}

func TestReflow_ForcedAtFloor(t *testing.T) {
	e := newEngine(true)
	page := preparedPage(t, e).WithFit(func(document.Rect, string, float64) float64 { return -5 })

	long := strings.Repeat("word ", 200)
	out, err := e.Reflow(page, block(18, 50, 10), long, "source")
	if err != nil {
		t.Fatalf("Reflow() error = %v", err)
	}
	if !out.Forced || out.Size != 6 {
		t.Errorf("expected forced insertion at 6, got %+v", out)
	}
	// sizes 18 down to 6
	if want := 18 - 6 + 1; out.Attempts != want {
		t.Errorf("Attempts = %d, want %d", out.Attempts, want)
	}
	texts := page.Texts()
	if len(texts) != 1 || texts[0] != long {
		t.Errorf("expected the full text to be force inserted, got %d texts", len(texts))
	}
	if !page.Ops[len(page.Ops)-1].Opts.Overflow {
		t.Error("forced insertion should set Overflow")
	}
}

func TestReflow_AttemptsBounded(t *testing.T) {
	e := newEngine(true)
	for _, size := range []float64{6, 9, 10, 13, 14, 24, 36} {
		page := preparedPage(t, e).WithFit(func(document.Rect, string, float64) float64 { return -1 })
		start := e.Policy().StartSize(size)

		out, err := e.Reflow(page, block(size, 10, 10), "x", "y")
		if err != nil {
			t.Fatalf("Reflow() error = %v", err)
		}
		if limit := int(start-6) + 1; out.Attempts > limit {
			t.Errorf("size %v: %d attempts, limit %d", size, out.Attempts, limit)
		}
	}
}

func TestReflow_PreserveOffUsesDefault(t *testing.T) {
	e := newEngine(false)
	page := preparedPage(t, e)

	out, err := e.Reflow(page, block(24, 400, 100), "text", "source")
	if err != nil {
		t.Fatalf("Reflow() error = %v", err)
	}
	if out.Size != 10 {
		t.Errorf("Size = %v, want 10", out.Size)
	}
}

func TestReflow_InsertFailureRestoresSource(t *testing.T) {
	e := newEngine(true)
	page := preparedPage(t, e)
	page.InsertErr = func(text string) error {
		if text == "bad glyphs" {
			return errors.New("glyph not in font")
		}
		return nil
	}

	out, err := e.Reflow(page, block(12, 400, 100), "bad glyphs", "original")
	if err != nil {
		t.Fatalf("Reflow() error = %v", err)
	}
	if !out.Fallback {
		t.Error("expected Fallback outcome")
	}
	if texts := page.Texts(); len(texts) != 1 || texts[0] != "original" {
		t.Errorf("expected source text restored, got %v", texts)
	}
}

func TestReflow_InsertPanicRestoresSource(t *testing.T) {
	e := newEngine(true)
	page := preparedPage(t, e)
	page.InsertErr = func(text string) error {
		if text == "translated" {
			panic("glyph table corrupt")
		}
		return nil
	}

	out, err := e.Reflow(page, block(12, 400, 100), "translated", "original")
	if err != nil {
		t.Fatalf("Reflow() error = %v", err)
	}
	if !out.Fallback || out.State != Inserted {
		t.Errorf("outcome = %+v, want fallback inserted", out)
	}
	if texts := page.Texts(); len(texts) != 1 || texts[0] != "original" {
		t.Errorf("expected source text restored, got %v", texts)
	}
}

func TestReflow_InsertPanicWithoutFallback(t *testing.T) {
	e := newEngine(true)
	page := preparedPage(t, e)
	page.InsertErr = func(string) error { panic("glyph table corrupt") }

	_, err := e.Reflow(page, block(12, 400, 100), "same", "same")
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Errorf("expected panic reported as error, got %v", err)
	}
}

func TestReflow_InsertFailureWithoutFallback(t *testing.T) {
	e := newEngine(true)
	page := preparedPage(t, e)
	page.InsertErr = func(string) error { return errors.New("broken") }

	if _, err := e.Reflow(page, block(12, 400, 100), "a", "b"); err == nil {
		t.Fatal("expected error when both insertions fail")
	}
}

func TestReflow_RedactFailureLeavesPageUntouched(t *testing.T) {
	e := newEngine(true)
	page := preparedPage(t, e)
	page.RedactErr = errors.New("read only")

	out, err := e.Reflow(page, block(12, 400, 100), "a", "b")
	if err == nil {
		t.Fatal("expected error")
	}
	if out.State != Extracted {
		t.Errorf("State = %v, want extracted", out.State)
	}
	if page.Count("text") != 0 {
		t.Error("nothing should be written after a failed redaction")
	}
}

func TestReflow_WithoutFontFails(t *testing.T) {
	e := newEngine(true)
	page := doctest.NewPage()

	if _, err := e.Reflow(page, block(12, 400, 100), "a", "a"); err == nil {
		t.Fatal("expected error when the font was never registered")
	}
}

func TestStateString(t *testing.T) {
	if Inserted.String() != "inserted" || Redacted.String() != "redacted" {
		t.Error("unexpected state names")
	}
}
