package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/platinummonkey/folio/internal/chunker"
	"github.com/platinummonkey/folio/internal/logger"
)

// fakeProvider upper-cases text and fails on requested inputs
type fakeProvider struct {
	capacity   chunker.Capacity
	failOn     func(text string) bool
	prepareErr error
	calls      []string
	prepared   int
	detected   string
	blank      bool
}

func (f *fakeProvider) Translate(_ context.Context, req Request) (*Response, error) {
	f.calls = append(f.calls, req.Text)
	if f.failOn != nil && f.failOn(req.Text) {
		return nil, errors.New("provider refused")
	}
	if f.blank {
		return &Response{Text: " "}, nil
	}
	return &Response{Text: strings.ToUpper(req.Text), DetectedLang: f.detected}, nil
}

func (f *fakeProvider) Capacity() chunker.Capacity { return f.capacity }
func (f *fakeProvider) Name() string               { return "fake" }

func (f *fakeProvider) Prepare(context.Context) error {
	f.prepared++
	return f.prepareErr
}

func lines(n, width int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(strings.Repeat(string(rune('a'+i%26)), width))
		b.WriteByte('\n')
	}
	return b.String()
}

func TestTranslate_Direct(t *testing.T) {
	p := &fakeProvider{capacity: chunker.CharCapacity(1000), detected: "en"}
	o := New(&Config{Logger: logger.Nop()})

	res := o.Translate(context.Background(), "hello", "auto", "zh", p)

	if !res.Success || res.TranslatedText != "HELLO" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.SourceLang != "en" || res.TargetLang != "zh" {
		t.Errorf("languages = %s -> %s", res.SourceLang, res.TargetLang)
	}
	if len(p.calls) != 1 || res.Chunks != 1 {
		t.Errorf("expected one direct call, got %d", len(p.calls))
	}
}

func TestTranslate_DirectFailure(t *testing.T) {
	p := &fakeProvider{capacity: chunker.CharCapacity(1000), failOn: func(string) bool { return true }}
	o := New(&Config{Logger: logger.Nop()})

	res := o.Translate(context.Background(), "hello", "en", "zh", p)

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error == "" || res.Err == nil {
		t.Error("failure must carry an error")
	}
	if res.TranslatedText != "" {
		t.Error("failure must not carry text")
	}
}

func TestTranslate_BlankResponseIsFailure(t *testing.T) {
	p := &fakeProvider{capacity: chunker.CharCapacity(1000), blank: true}
	o := New(&Config{Logger: logger.Nop()})

	res := o.Translate(context.Background(), "hello", "en", "zh", p)
	if res.Success || res.Err == nil {
		t.Fatalf("expected failure, got %+v", res)
	}

	// chunked: every blank chunk keeps its source text
	p = &fakeProvider{capacity: chunker.CharCapacity(30), blank: true}
	text := lines(4, 10)
	res = o.TranslateLong(context.Background(), text, "en", "zh", p, p.capacity)
	if !res.Success || res.FailedChunks != res.Chunks {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.TranslatedText != strings.TrimSpace(text) {
		t.Errorf("TranslatedText = %q", res.TranslatedText)
	}
}

func TestTranslate_EmptyText(t *testing.T) {
	p := &fakeProvider{capacity: chunker.CharCapacity(1000)}
	o := New(&Config{Logger: logger.Nop()})

	res := o.Translate(context.Background(), "  \n ", "en", "zh", p)
	if res.Success || !errors.Is(res.Err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %+v", res)
	}
	if len(p.calls) != 0 {
		t.Error("provider must not be called for empty text")
	}
}

func TestTranslate_DelegatesWhenExceeded(t *testing.T) {
	p := &fakeProvider{capacity: chunker.CharCapacity(100)}
	o := New(&Config{Logger: logger.Nop()})

	text := lines(10, 30)
	res := o.Translate(context.Background(), text, "en", "zh", p)

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(p.calls) < 2 {
		t.Errorf("expected chunked calls, got %d", len(p.calls))
	}
	if p.prepared != 1 {
		t.Errorf("Prepare called %d times, want 1", p.prepared)
	}
	if res.TranslatedText != strings.ToUpper(strings.TrimSpace(text)) {
		t.Errorf("joined text mismatch:\n%s", res.TranslatedText)
	}
}

func TestTranslateLong_WithinThresholdIsSingleCall(t *testing.T) {
	capacity := chunker.TokenCapacity(2048)
	tests := []string{
		"short",
		lines(40, 100), // ~4040 runes, ~1346 tokens, under 0.8*2048
	}

	for _, text := range tests {
		p := &fakeProvider{capacity: capacity}
		o := New(&Config{Logger: logger.Nop()})

		res := o.TranslateLong(context.Background(), text, "en", "zh", p, capacity)

		if !res.Success {
			t.Fatalf("expected success: %+v", res)
		}
		if len(p.calls) != 1 {
			t.Errorf("expected exactly one call, got %d", len(p.calls))
		}
		if p.calls[0] != text {
			t.Error("direct call must send the text unchanged")
		}
		if p.prepared != 0 {
			t.Error("direct call must not prepare")
		}
	}
}

func TestTranslateLong_FailedChunkKeepsOriginal(t *testing.T) {
	capacity := chunker.CharCapacity(100)
	text := "alpha line one\n" + strings.Repeat("b", 70) + "\n" + "gamma line three"

	p := &fakeProvider{
		capacity: capacity,
		failOn:   func(s string) bool { return strings.HasPrefix(s, "bbb") },
	}
	o := New(&Config{Logger: logger.Nop()})

	res := o.TranslateLong(context.Background(), text+"\n"+strings.Repeat("d", 60), "en", "zh", p, capacity)

	if !res.Success {
		t.Fatalf("partial failure must still succeed: %+v", res)
	}
	if res.FailedChunks != 1 {
		t.Errorf("FailedChunks = %d, want 1", res.FailedChunks)
	}
	if !strings.Contains(res.TranslatedText, strings.Repeat("b", 70)) {
		t.Error("failed chunk must keep its original text")
	}
	if !strings.Contains(res.TranslatedText, "ALPHA LINE ONE") {
		t.Error("successful chunk must be translated")
	}
	if res.Chunks != len(p.calls) {
		t.Errorf("Chunks = %d, calls = %d", res.Chunks, len(p.calls))
	}
}

func TestTranslateLong_AllChunksFailStillSucceeds(t *testing.T) {
	capacity := chunker.CharCapacity(50)
	text := lines(6, 30)

	p := &fakeProvider{capacity: capacity, failOn: func(string) bool { return true }}
	o := New(&Config{Logger: logger.Nop()})

	res := o.TranslateLong(context.Background(), text, "en", "zh", p, capacity)

	if !res.Success {
		t.Fatal("chunk failures degrade, they do not fail the result")
	}
	if res.TranslatedText != strings.TrimSpace(text) {
		t.Errorf("expected original text back, got %q", res.TranslatedText)
	}
	if res.FailedChunks != res.Chunks {
		t.Errorf("FailedChunks = %d, Chunks = %d", res.FailedChunks, res.Chunks)
	}
}

func TestTranslateLong_UnreachableProviderFailsOnce(t *testing.T) {
	capacity := chunker.CharCapacity(50)
	p := &fakeProvider{capacity: capacity, prepareErr: errors.New("connection refused")}
	o := New(&Config{Logger: logger.Nop()})

	res := o.TranslateLong(context.Background(), lines(6, 30), "en", "zh", p, capacity)

	if res.Success {
		t.Fatal("expected whole-result failure")
	}
	if !errors.Is(res.Err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", res.Err)
	}
	if len(p.calls) != 0 {
		t.Errorf("no chunk may be attempted, got %d calls", len(p.calls))
	}
	if p.prepared != 1 {
		t.Errorf("Prepare called %d times, want 1", p.prepared)
	}
}

func TestTranslateLong_ChunksAreSequentialAndOrdered(t *testing.T) {
	capacity := chunker.CharCapacity(40)
	text := "one one one one\ntwo two two two\nthree three three\nfour four four"

	p := &fakeProvider{capacity: capacity}
	o := New(&Config{Logger: logger.Nop()})

	res := o.TranslateLong(context.Background(), text, "en", "zh", p, capacity)

	joined := strings.Join(p.calls, "\n")
	if joined != text {
		t.Errorf("chunks sent out of order or altered:\n%s", joined)
	}
	if res.TranslatedText != strings.ToUpper(text) {
		t.Errorf("TranslatedText = %q", res.TranslatedText)
	}
}
