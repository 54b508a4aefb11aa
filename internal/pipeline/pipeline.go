// Package pipeline walks documents page by page and block by block,
// translating and reflowing each text block, and reports progress as a stream
// of events.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"github.com/platinummonkey/folio/internal/config"
	"github.com/platinummonkey/folio/internal/document"
	"github.com/platinummonkey/folio/internal/extract"
	"github.com/platinummonkey/folio/internal/logger"
	"github.com/platinummonkey/folio/internal/persist"
	"github.com/platinummonkey/folio/internal/reflow"
	"github.com/platinummonkey/folio/internal/translate"
)

var (
	// ErrNotFound is returned for an input file that does not exist
	ErrNotFound = errors.New("file does not exist")

	// ErrNotPDF is returned for an input without a .pdf extension
	ErrNotPDF = errors.New("only .pdf files are supported")

	// ErrSavePathRequired is returned in save_as mode without a save path
	ErrSavePathRequired = errors.New("save path is required in save_as mode")
)

// TranslatedSuffix is appended to the file name in save_as mode
const TranslatedSuffix = "_translated"

// Job describes one document to translate
type Job struct {
	Path       string
	SourceLang string
	TargetLang string
	SaveMode   string
	SavePath   string
}

// BatchRequest describes a sequence of documents sharing settings
type BatchRequest struct {
	Files      []string
	SourceLang string
	TargetLang string
	SaveMode   string
	SavePath   string
}

// Pipeline translates documents
type Pipeline struct {
	opener       document.Opener
	provider     translate.Provider
	orchestrator *translate.Orchestrator
	engine       *reflow.Engine
	logger       *logger.Logger
	newRunID     func() string
}

// Config holds pipeline dependencies
type Config struct {
	Opener       document.Opener
	Provider     translate.Provider
	Orchestrator *translate.Orchestrator
	Reflow       *reflow.Engine
	Logger       *logger.Logger

	// NewRunID overrides run id generation
	NewRunID func() string
}

// New creates a pipeline
func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Opener == nil {
		return nil, fmt.Errorf("opener is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Reflow == nil {
		return nil, fmt.Errorf("reflow engine is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	orch := cfg.Orchestrator
	if orch == nil {
		orch = translate.New(&translate.Config{Logger: log})
	}
	newRunID := cfg.NewRunID
	if newRunID == nil {
		newRunID = func() string { return uuid.New().String() }
	}

	return &Pipeline{
		opener:       cfg.Opener,
		provider:     cfg.Provider,
		orchestrator: orch,
		engine:       cfg.Reflow,
		logger:       log,
		newRunID:     newRunID,
	}, nil
}

// emitter wraps a yield function. It remembers when the consumer stopped and
// whether a panic came from the consumer rather than the walk.
type emitter struct {
	yield   func(Event) bool
	stopped bool
	inYield bool
	decor   func(*Event)
}

func (e *emitter) emit(ev Event) bool {
	if e.stopped {
		return false
	}
	if e.decor != nil {
		e.decor(&ev)
	}
	e.inYield = true
	ok := e.yield(ev)
	e.inYield = false
	if !ok {
		e.stopped = true
	}
	return ok
}

// Document returns the event stream for translating a single file. The walk
// advances only as events are consumed; stopping early closes the document
// without saving it.
func (p *Pipeline) Document(ctx context.Context, job Job) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		e := &emitter{yield: yield}
		p.processFile(ctx, job, e, p.logger.WithFile(job.Path))
	}
}

// Batch returns the event stream for translating files one after another. It
// starts with init and ends with finish, or with fatal_error if the walk
// itself panics.
func (p *Pipeline) Batch(ctx context.Context, req BatchRequest) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		e := &emitter{yield: yield}
		var runID string

		defer func() {
			if r := recover(); r != nil {
				if e.inYield {
					panic(r)
				}
				p.logger.Errorw("Batch aborted", "run_id", runID, "panic", r, "stack", string(debug.Stack()))
				e.emit(Event{Type: EventFatal, RunID: runID, Error: fmt.Sprint(r)})
			}
		}()

		runID = p.newRunID()
		log := p.logger.WithFields("run_id", runID)

		if !e.emit(Event{Type: EventInit, RunID: runID, TotalFiles: ptr(len(req.Files))}) {
			return
		}

		var succeeded, failed int
		for idx, path := range req.Files {
			log.WithFields("file_index", idx, "total", len(req.Files)).
				Infof("Processing file %d/%d: %s", idx+1, len(req.Files), path)

			fe := &emitter{
				yield: e.emit,
				decor: func(ev *Event) {
					ev.FileIndex = ptr(idx)
					ev.FilePath = path
				},
			}
			ok := p.processFile(ctx, Job{
				Path:       path,
				SourceLang: req.SourceLang,
				TargetLang: req.TargetLang,
				SaveMode:   req.SaveMode,
				SavePath:   req.SavePath,
			}, fe, log.WithFile(path).WithFields("file_index", idx))

			if e.stopped {
				return
			}
			if ok {
				succeeded++
			} else {
				failed++
			}
		}

		e.emit(Event{
			Type:      EventFinish,
			RunID:     runID,
			Succeeded: ptr(succeeded),
			Failed:    ptr(failed),
			Message:   fmt.Sprintf("%d of %d files translated", succeeded, len(req.Files)),
		})
	}
}

// ResolveSavePath returns where the translated document for job is written
func ResolveSavePath(job Job) (string, error) {
	if job.SaveMode != config.SaveModeSaveAs {
		return job.Path, nil
	}
	if job.SavePath == "" {
		return "", ErrSavePathRequired
	}
	base := filepath.Base(job.Path)
	ext := filepath.Ext(base)
	return filepath.Join(job.SavePath, strings.TrimSuffix(base, ext)+TranslatedSuffix+ext), nil
}

// CheckInput validates job before its document is opened
func CheckInput(job Job) (string, error) {
	if _, err := os.Stat(job.Path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, job.Path)
		}
		return "", fmt.Errorf("cannot access %s: %w", job.Path, err)
	}
	if !strings.EqualFold(filepath.Ext(job.Path), ".pdf") {
		return "", fmt.Errorf("%w: %s", ErrNotPDF, job.Path)
	}
	return ResolveSavePath(job)
}

func fileError(err error) Event {
	return Event{Type: EventError, Error: err.Error(), Message: fmt.Sprintf("Processing failed: %v", err)}
}

// processFile runs the walk for one file and reports whether it was saved.
// Panics inside the walk become a file-scoped error.
func (p *Pipeline) processFile(ctx context.Context, job Job, e *emitter, log *logger.Logger) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if e.inYield {
				panic(r)
			}
			log.Errorw("File processing panicked", "panic", r, "stack", string(debug.Stack()))
			e.emit(fileError(fmt.Errorf("panic: %v", r)))
			ok = false
		}
	}()

	savePath, err := CheckInput(job)
	if err != nil {
		log.WithError(err).Error("Invalid input")
		e.emit(fileError(err))
		return false
	}
	if job.SaveMode == config.SaveModeSaveAs {
		if err := os.MkdirAll(job.SavePath, 0755); err != nil {
			err = fmt.Errorf("failed to create save directory: %w", err)
			log.WithError(err).Error("Invalid save path")
			e.emit(fileError(err))
			return false
		}
	}

	doc, err := p.opener.Open(job.Path)
	if err != nil {
		log.WithError(err).Error("Failed to open document")
		e.emit(fileError(err))
		return false
	}
	defer doc.Close()

	return p.walk(ctx, job, doc, savePath, e, log)
}

func (p *Pipeline) walk(ctx context.Context, job Job, doc document.Document, savePath string, e *emitter, log *logger.Logger) bool {
	totalPages := doc.PageCount()
	if !e.emit(Event{
		Type:       EventProgress,
		Stage:      StageAnalyzing,
		TotalPages: ptr(totalPages),
		Message:    fmt.Sprintf("Analyzing layout of %d pages...", totalPages),
	}) {
		return false
	}

	forced := 0
	for i := 0; i < totalPages; i++ {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("Translation cancelled, document not saved")
			e.emit(fileError(err))
			return false
		}

		n, cont := p.translatePage(ctx, job, doc, i, totalPages, e, log.WithPage(i))
		forced += n
		if !cont {
			return false
		}
	}

	if !e.emit(Event{Type: EventProgress, Stage: StageGenerating, Message: "Saving PDF..."}) {
		return false
	}

	if err := persist.Save(doc, savePath); err != nil {
		log.WithError(err).Error("Failed to save document")
		e.emit(fileError(err))
		return false
	}

	log.WithFields("save_path", savePath, "forced", forced).Info("Document translated")
	e.emit(Event{
		Type:     EventComplete,
		SavePath: savePath,
		Success:  ptr(true),
		Forced:   ptr(forced),
		Message:  "Translation complete",
	})
	return true
}

// translatePage translates every block of page index. It returns the number of
// forced insertions and false if the consumer stopped. Failures stay on this
// page as scoped error events.
func (p *Pipeline) translatePage(ctx context.Context, job Job, doc document.Document, index, totalPages int, e *emitter, log *logger.Logger) (forced int, cont bool) {
	pageNum := index + 1
	pageError := func(err error) bool {
		log.WithError(err).Error("Page failed")
		return e.emit(Event{
			Type:    EventError,
			Page:    ptr(pageNum),
			Error:   err.Error(),
			Message: fmt.Sprintf("Page %d failed: %v", pageNum, err),
		})
	}

	defer func() {
		if r := recover(); r != nil {
			if e.inYield {
				panic(r)
			}
			log.Errorw("Page panicked", "panic", r, "stack", string(debug.Stack()))
			cont = pageError(fmt.Errorf("panic: %v", r))
		}
	}()

	page, err := doc.Page(index)
	if err != nil {
		return 0, pageError(err)
	}
	blocks, err := extract.Blocks(page)
	if err != nil {
		return 0, pageError(err)
	}

	log.Infof("Translating page %d/%d (%d blocks)", pageNum, totalPages, len(blocks))
	if !e.emit(Event{
		Type:           EventProgress,
		Stage:          StageTranslating,
		CurrentPage:    ptr(pageNum),
		TotalPages:     ptr(totalPages),
		CurrentSegment: ptr(0),
		TotalSegments:  ptr(len(blocks)),
		Message:        fmt.Sprintf("Translating page %d/%d...", pageNum, totalPages),
	}) {
		return 0, false
	}

	if len(blocks) == 0 {
		return 0, true
	}
	if err := p.engine.PrepareFont(page); err != nil {
		return 0, pageError(err)
	}

	for j, block := range blocks {
		if !e.emit(Event{
			Type:           EventProgress,
			Stage:          StageTranslating,
			CurrentPage:    ptr(pageNum),
			TotalPages:     ptr(totalPages),
			CurrentSegment: ptr(j + 1),
			TotalSegments:  ptr(len(blocks)),
			Message:        fmt.Sprintf("Translating page %d/%d (block %d/%d)...", pageNum, totalPages, j+1, len(blocks)),
		}) {
			return forced, false
		}

		out, err := p.translateBlock(ctx, job, page, block, log.WithFields("block", j+1))
		if out.Forced {
			forced++
		}
		if err != nil {
			if !e.emit(Event{
				Type:    EventError,
				Page:    ptr(pageNum),
				Block:   ptr(j + 1),
				Error:   err.Error(),
				Message: fmt.Sprintf("Page %d block %d failed: %v", pageNum, j+1, err),
			}) {
				return forced, false
			}
		}
	}
	return forced, true
}

// translateBlock translates one block and writes the result back. When the
// translation fails the source text is written back in its place and the
// failure is still returned.
func (p *Pipeline) translateBlock(ctx context.Context, job Job, page document.Page, block document.TextBlock, log *logger.Logger) (out reflow.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("Block panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	result := p.orchestrator.Translate(ctx, block.Text, job.SourceLang, job.TargetLang, p.provider)

	text := result.TranslatedText
	var translateErr error
	if !result.Success {
		translateErr = fmt.Errorf("translation failed: %s", result.Error)
		log.WithError(translateErr).Error("Block translation failed, keeping source text")
		text = block.Text
	} else if result.FailedChunks > 0 {
		log.WithFields("failed_chunks", result.FailedChunks, "chunks", result.Chunks).
			Warn("Some chunks kept their source text")
	}

	out, err = p.engine.Reflow(page, block, text, block.Text)
	if err != nil {
		log.WithError(err).Error("Failed to write block")
		return out, errors.Join(translateErr, err)
	}
	if out.Fallback && translateErr == nil {
		return out, errors.New("translated text could not be written, source text kept")
	}
	return out, translateErr
}
