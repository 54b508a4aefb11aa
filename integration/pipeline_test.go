package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/platinummonkey/folio/internal/chunker"
	"github.com/platinummonkey/folio/internal/config"
	"github.com/platinummonkey/folio/internal/fonts"
	"github.com/platinummonkey/folio/internal/logger"
	"github.com/platinummonkey/folio/internal/pdfdoc"
	"github.com/platinummonkey/folio/internal/pipeline"
	"github.com/platinummonkey/folio/internal/reflow"
	"github.com/platinummonkey/folio/internal/translate"
	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/goregular"
)

// tagProvider prefixes every text with the target language
type tagProvider struct {
	calls int
}

func (p *tagProvider) Translate(_ context.Context, req translate.Request) (*translate.Response, error) {
	p.calls++
	return &translate.Response{Text: "[" + req.TargetLang + "] " + req.Text}, nil
}

func (p *tagProvider) Capacity() chunker.Capacity { return chunker.CharCapacity(2000) }
func (p *tagProvider) Name() string               { return "tag" }

func writeSamplePDF(t *testing.T, dir string, pages ...[]string) string {
	t.Helper()

	out := &gopdf.GoPdf{}
	out.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := out.AddTTFFontData("regular", goregular.TTF); err != nil {
		t.Fatalf("AddTTFFontData() error = %v", err)
	}
	for _, lines := range pages {
		out.AddPage()
		if err := out.SetFont("regular", "", 12); err != nil {
			t.Fatalf("SetFont() error = %v", err)
		}
		for i, line := range lines {
			out.SetXY(72, 72+float64(i)*60)
			if err := out.Cell(nil, line); err != nil {
				t.Fatalf("Cell() error = %v", err)
			}
		}
	}

	path := filepath.Join(dir, "sample.pdf")
	if err := out.WritePdf(path); err != nil {
		t.Fatalf("WritePdf() error = %v", err)
	}
	return path
}

func newPipeline(t *testing.T, provider translate.Provider) *pipeline.Pipeline {
	t.Helper()
	log := logger.Nop()
	p, err := pipeline.New(&pipeline.Config{
		Opener:   pdfdoc.Opener(pdfdoc.WithLogger(log)),
		Provider: provider,
		Reflow: reflow.New(&reflow.Config{
			Policy: reflow.DefaultPolicy(true),
			Font:   fonts.Builtin(),
			Logger: log,
		}),
		Logger: log,
	})
	if err != nil {
		t.Fatalf("pipeline.New() error = %v", err)
	}
	return p
}

// TestTranslatePDF_SaveAs runs a real PDF through extraction, translation,
// reflow and persistence
func TestTranslatePDF_SaveAs(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PDF integration test in short mode")
	}

	inDir, outDir := t.TempDir(), t.TempDir()
	input := writeSamplePDF(t, inDir,
		[]string{"The quick brown fox", "jumps over the lazy dog"},
		[]string{"Second page heading"},
	)
	original, err := os.ReadFile(input)
	if err != nil {
		t.Fatal(err)
	}

	provider := &tagProvider{}
	var events []pipeline.Event
	for ev := range newPipeline(t, provider).Document(context.Background(), pipeline.Job{
		Path:       input,
		SourceLang: "en",
		TargetLang: "ja",
		SaveMode:   config.SaveModeSaveAs,
		SavePath:   outDir,
	}) {
		events = append(events, ev)
	}

	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	last := events[len(events)-1]
	if last.Type != pipeline.EventComplete || last.Success == nil || !*last.Success {
		t.Fatalf("last event = %+v, want successful complete", last)
	}
	for _, ev := range events {
		if ev.Type == pipeline.EventError {
			t.Errorf("unexpected error event: %+v", ev)
		}
	}
	if provider.calls == 0 {
		t.Error("provider was never called")
	}

	want := filepath.Join(outDir, "sample_translated.pdf")
	if last.SavePath != want {
		t.Errorf("SavePath = %s, want %s", last.SavePath, want)
	}
	info, err := pdfdoc.ReadInfo(want)
	if err != nil {
		t.Fatalf("output is not a readable PDF: %v", err)
	}
	if info.PageCount != 2 {
		t.Errorf("output PageCount = %d, want 2", info.PageCount)
	}

	after, err := os.ReadFile(input)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(original) {
		t.Error("save_as must leave the input untouched")
	}
}

// TestTranslatePDF_Replace overwrites the input without leaving temporaries
func TestTranslatePDF_Replace(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PDF integration test in short mode")
	}

	dir := t.TempDir()
	input := writeSamplePDF(t, dir, []string{"Only one line"})

	var last pipeline.Event
	for ev := range newPipeline(t, &tagProvider{}).Document(context.Background(), pipeline.Job{
		Path:       input,
		TargetLang: "fr",
		SaveMode:   config.SaveModeReplace,
	}) {
		last = ev
	}

	if last.Type != pipeline.EventComplete || last.SavePath != input {
		t.Fatalf("last event = %+v", last)
	}
	if err := pdfdoc.Validate(input); err != nil {
		t.Errorf("replaced file is not valid: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") || strings.HasSuffix(e.Name(), ".raw") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

// TestBatch_MixedInputs keeps going past bad inputs and reports them in finish
func TestBatch_MixedInputs(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PDF integration test in short mode")
	}

	dir := t.TempDir()
	good := writeSamplePDF(t, dir, []string{"Hello"})
	notPDF := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notPDF, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	var finish pipeline.Event
	completes := 0
	for ev := range newPipeline(t, &tagProvider{}).Batch(context.Background(), pipeline.BatchRequest{
		Files:      []string{notPDF, filepath.Join(dir, "missing.pdf"), good},
		TargetLang: "de",
		SaveMode:   config.SaveModeSaveAs,
		SavePath:   filepath.Join(dir, "out"),
	}) {
		switch ev.Type {
		case pipeline.EventComplete:
			completes++
		case pipeline.EventFinish:
			finish = ev
		}
	}

	if completes != 1 {
		t.Errorf("completes = %d, want 1", completes)
	}
	if finish.Succeeded == nil || *finish.Succeeded != 1 || finish.Failed == nil || *finish.Failed != 2 {
		t.Errorf("finish = %+v, want 1 succeeded and 2 failed", finish)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "sample_translated.pdf")); err != nil {
		t.Errorf("expected translated output: %v", err)
	}
}
