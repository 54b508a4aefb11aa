package translate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/platinummonkey/folio/internal/logger"
	"github.com/platinummonkey/folio/internal/ollama"
)

// Inference modes for the local model
const (
	InferenceCPU = "cpu"
	InferenceGPU = "gpu"
)

// stopSequence ends generation when the model starts a new section
const stopSequence = "###"

// HandleConfig describes the local model session
type HandleConfig struct {
	Endpoint      string
	Model         string
	ContextLength int
	Threads       int
	MaxTokens     int
	Temperature   float64
	InferenceMode string
	MaxRetries    int

	// PullMissing downloads the model when the server does not have it
	PullMissing bool
}

// Session is a live, validated connection to a loaded local model
type Session struct {
	client  *ollama.Client
	model   string
	options ollama.Options
}

// Model returns the model name this session serves
func (s *Session) Model() string {
	return s.model
}

// Generate streams a completion for prompt and returns the concatenated output
func (s *Session) Generate(ctx context.Context, system, prompt string) (string, error) {
	opts := s.options
	return s.client.GenerateStream(ctx, &ollama.GenerateRequest{
		Model:   s.model,
		System:  system,
		Prompt:  prompt,
		Options: &opts,
	}, nil)
}

// ModelHandle owns at most one local model session. The session is created on
// first use and torn down whenever the model or the inference mode changes.
// It serializes creation but a session must not serve concurrent pipelines.
type ModelHandle struct {
	mu      sync.Mutex
	cfg     HandleConfig
	session *Session
	stale   *Session
	logger  *logger.Logger

	newClient func(cfg HandleConfig) *ollama.Client
}

// NewModelHandle creates an empty handle. No connection is made until Acquire.
func NewModelHandle(cfg HandleConfig, log *logger.Logger) *ModelHandle {
	if log == nil {
		log = logger.Get()
	}
	if cfg.InferenceMode == "" {
		cfg.InferenceMode = InferenceCPU
	}
	h := &ModelHandle{cfg: cfg, logger: log}
	h.newClient = func(c HandleConfig) *ollama.Client {
		return ollama.NewClient(
			ollama.WithEndpoint(c.Endpoint),
			ollama.WithMaxRetries(c.MaxRetries),
			ollama.WithLogger(log),
		)
	}
	return h
}

// Config returns the current session configuration
func (h *ModelHandle) Config() HandleConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// Active reports whether a session is currently held
func (h *ModelHandle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session != nil
}

// Acquire returns the current session, creating it if needed. Creation checks
// that the server is reachable and that the model exists, pulling it when
// PullMissing is set.
func (h *ModelHandle) Acquire(ctx context.Context) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.session != nil {
		return h.session, nil
	}

	if h.stale != nil {
		if err := h.stale.client.Unload(ctx, h.stale.model); err != nil {
			h.logger.WithError(err).Debugf("Failed to unload previous model %s", h.stale.model)
		}
		h.stale = nil
	}

	if h.cfg.Model == "" {
		return nil, fmt.Errorf("%w: no local model configured", ErrProviderUnavailable)
	}

	client := h.newClient(h.cfg)
	if err := client.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	present, err := client.HasModel(ctx, h.cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if !present {
		if !h.cfg.PullMissing {
			return nil, fmt.Errorf("%w: model %s is not installed", ErrProviderUnavailable, h.cfg.Model)
		}
		h.logger.Infof("Pulling model %s", h.cfg.Model)
		if err := client.PullModel(ctx, h.cfg.Model); err != nil {
			return nil, fmt.Errorf("%w: pull %s: %v", ErrProviderUnavailable, h.cfg.Model, err)
		}
	}

	h.session = &Session{
		client:  client,
		model:   h.cfg.Model,
		options: sessionOptions(h.cfg),
	}
	h.logger.WithFields("model", h.cfg.Model, "mode", h.cfg.InferenceMode, "threads", h.cfg.Threads).
		Info("Created model session")
	return h.session, nil
}

func sessionOptions(cfg HandleConfig) ollama.Options {
	temp := cfg.Temperature
	opts := ollama.Options{
		NumCtx:      cfg.ContextLength,
		NumThread:   cfg.Threads,
		NumPredict:  cfg.MaxTokens,
		Temperature: &temp,
		Stop:        []string{stopSequence},
	}
	if cfg.InferenceMode == InferenceCPU {
		zero := 0
		opts.NumGPU = &zero
	}
	return opts
}

// Invalidate drops the current session. The next Acquire creates a new one
// and unloads the old model from the server.
func (h *ModelHandle) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invalidateLocked()
}

func (h *ModelHandle) invalidateLocked() {
	if h.session != nil {
		h.stale = h.session
		h.session = nil
	}
}

// SwitchModel selects a different model. The session is invalidated only
// when the name actually changes.
func (h *ModelHandle) SwitchModel(model string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if model == h.cfg.Model {
		return
	}
	h.cfg.Model = model
	h.invalidateLocked()
}

// SetInferenceMode switches between cpu and gpu inference.
func (h *ModelHandle) SetInferenceMode(mode string) error {
	mode = strings.ToLower(mode)
	if mode != InferenceCPU && mode != InferenceGPU {
		return fmt.Errorf("invalid inference mode %q, must be cpu or gpu", mode)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if mode == h.cfg.InferenceMode {
		return nil
	}
	h.cfg.InferenceMode = mode
	h.invalidateLocked()
	return nil
}

// Close releases the loaded model, if any.
func (h *ModelHandle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invalidateLocked()
	if h.stale == nil {
		return nil
	}
	s := h.stale
	h.stale = nil
	return s.client.Unload(ctx, s.model)
}
