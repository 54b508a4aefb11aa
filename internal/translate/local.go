package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/folio/internal/chunker"
	"github.com/platinummonkey/folio/internal/logger"
)

// LocalProvider translates with a model served by a local Ollama instance
type LocalProvider struct {
	handle  *ModelHandle
	prompts Prompts
	logger  *logger.Logger
}

// NewLocalProvider creates a provider bound to handle
func NewLocalProvider(handle *ModelHandle, prompts Prompts, log *logger.Logger) *LocalProvider {
	if log == nil {
		log = logger.Get()
	}
	return &LocalProvider{handle: handle, prompts: prompts, logger: log}
}

// Prepare makes sure the model session exists
func (l *LocalProvider) Prepare(ctx context.Context) error {
	_, err := l.handle.Acquire(ctx)
	return err
}

// Translate implements Provider
func (l *LocalProvider) Translate(ctx context.Context, req Request) (*Response, error) {
	session, err := l.handle.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields("model", session.Model(), "chars", len(req.Text)).Debug("Translating with local model")

	out, err := session.Generate(ctx, l.prompts.RenderSystem(req.TargetLang), l.prompts.Render(req.TargetLang, req.Text))
	if err != nil {
		return nil, fmt.Errorf("local model generation failed: %w", err)
	}

	text := strings.TrimSpace(out)
	if text == "" {
		return nil, fmt.Errorf("empty translation from local model %s", session.Model())
	}
	return &Response{Text: text}, nil
}

// Capacity is the model context window measured in estimated tokens
func (l *LocalProvider) Capacity() chunker.Capacity {
	return chunker.TokenCapacity(l.handle.Config().ContextLength)
}

// Name returns the provider name
func (l *LocalProvider) Name() string {
	return string(ProviderLlama)
}
