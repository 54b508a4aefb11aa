package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/folio/internal/chunker"
	"github.com/platinummonkey/folio/internal/logger"
)

// Result is the outcome of translating one text. A failed translation never
// carries partial text; callers fall back to the original.
type Result struct {
	Success        bool   `json:"success"`
	TranslatedText string `json:"translated_text,omitempty"`
	Error          string `json:"error,omitempty"`
	SourceLang     string `json:"source_lang"`
	TargetLang     string `json:"target_lang"`

	// Chunks is the number of units sent, 1 for a direct translation
	Chunks int `json:"chunks"`

	// FailedChunks counts units that kept their original text
	FailedChunks int `json:"failed_chunks,omitempty"`

	Err error `json:"-"`
}

func failure(err error, src, tgt string) Result {
	return Result{
		Success:    false,
		Error:      err.Error(),
		Err:        err,
		SourceLang: src,
		TargetLang: tgt,
	}
}

// Orchestrator decides between direct and chunked translation
type Orchestrator struct {
	logger *logger.Logger
}

// Config holds orchestrator dependencies
type Config struct {
	Logger *logger.Logger
}

// New creates an Orchestrator
func New(cfg *Config) *Orchestrator {
	log := logger.Get()
	if cfg != nil && cfg.Logger != nil {
		log = cfg.Logger
	}
	return &Orchestrator{logger: log}
}

// Translate translates text with provider, switching to chunked translation
// when the text exceeds the provider's capacity.
func (o *Orchestrator) Translate(ctx context.Context, text, sourceLang, targetLang string, provider Provider) Result {
	capacity := provider.Capacity()
	if capacity.Exceeds(text) {
		return o.TranslateLong(ctx, text, sourceLang, targetLang, provider, capacity)
	}
	return o.direct(ctx, text, sourceLang, targetLang, provider)
}

// TranslateLong translates text that may exceed capacity. Text within the
// threshold goes out as one request. Longer text is split on line boundaries
// and the chunks are translated one after another; a chunk that fails keeps
// its original text and the result is still successful. Only a provider that
// cannot be prepared at all fails the whole result.
func (o *Orchestrator) TranslateLong(ctx context.Context, text, sourceLang, targetLang string, provider Provider, capacity chunker.Capacity) Result {
	if !capacity.Exceeds(text) {
		return o.direct(ctx, text, sourceLang, targetLang, provider)
	}

	if strings.TrimSpace(text) == "" {
		return failure(ErrEmptyText, sourceLang, targetLang)
	}

	if p, ok := provider.(Preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			if !errors.Is(err, ErrProviderUnavailable) {
				err = fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			}
			return failure(err, sourceLang, targetLang)
		}
	}

	chunks := capacity.Split(text)
	log := o.logger.WithFields("provider", provider.Name(), "chunks", len(chunks))
	log.Infof("Text too long (%d characters), translating in %d chunks", len(text), len(chunks))

	translated := make([]string, len(chunks))
	failed := 0
	detected := sourceLang

	for i, chunk := range chunks {
		resp, err := provider.Translate(ctx, Request{Text: chunk, SourceLang: sourceLang, TargetLang: targetLang})
		if err == nil && strings.TrimSpace(resp.Text) == "" {
			err = fmt.Errorf("%s returned an empty translation", provider.Name())
		}
		if err != nil {
			log.WithError(err).Warnf("Chunk %d/%d failed, keeping original text", i+1, len(chunks))
			translated[i] = chunk
			failed++
			continue
		}
		translated[i] = resp.Text
		if resp.DetectedLang != "" && (detected == "" || detected == "auto") {
			detected = resp.DetectedLang
		}
		log.Debugf("Chunk %d/%d translated", i+1, len(chunks))
	}

	return Result{
		Success:        true,
		TranslatedText: strings.Join(translated, "\n"),
		SourceLang:     detected,
		TargetLang:     targetLang,
		Chunks:         len(chunks),
		FailedChunks:   failed,
	}
}

func (o *Orchestrator) direct(ctx context.Context, text, sourceLang, targetLang string, provider Provider) Result {
	if strings.TrimSpace(text) == "" {
		return failure(ErrEmptyText, sourceLang, targetLang)
	}

	resp, err := provider.Translate(ctx, Request{Text: text, SourceLang: sourceLang, TargetLang: targetLang})
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = fmt.Errorf("%s returned an empty translation", provider.Name())
	}
	if err != nil {
		o.logger.WithFields("provider", provider.Name()).WithError(err).Warn("Translation failed")
		return failure(err, sourceLang, targetLang)
	}

	src := sourceLang
	if resp.DetectedLang != "" {
		src = resp.DetectedLang
	}
	return Result{
		Success:        true,
		TranslatedText: resp.Text,
		SourceLang:     src,
		TargetLang:     targetLang,
		Chunks:         1,
	}
}
