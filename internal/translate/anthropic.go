package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/platinummonkey/folio/internal/chunker"
	"github.com/platinummonkey/folio/internal/logger"
)

// AnthropicProvider translates with the Anthropic messages API
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	prompts     Prompts
	temperature float64
	maxTokens   int
	capacity    chunker.Capacity
	logger      *logger.Logger
}

// NewAnthropicProvider creates an Anthropic translation provider
func NewAnthropicProvider(cfg *ProviderConfig, log *logger.Logger, extra ...option.RequestOption) *AnthropicProvider {
	if log == nil {
		log = logger.Get()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	opts = append(opts, extra...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &AnthropicProvider{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		prompts:     cfg.Prompts,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		capacity:    chunker.TokenCapacity(cfg.ContextLength),
		logger:      log,
	}
}

// Translate implements Provider
func (a *AnthropicProvider) Translate(ctx context.Context, req Request) (*Response, error) {
	a.logger.WithFields("model", a.model, "provider", "anthropic").Debug("Translating with Anthropic")

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(a.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(a.prompts.Render(req.TargetLang, req.Text))),
		},
		Temperature: anthropic.Float(a.temperature),
	}
	if system := a.prompts.RenderSystem(req.TargetLang); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(content.String())
	if text == "" {
		return nil, fmt.Errorf("no text content in Anthropic response")
	}
	return &Response{Text: text}, nil
}

// Capacity is derived from the configured context length
func (a *AnthropicProvider) Capacity() chunker.Capacity {
	return a.capacity
}

// Name returns the provider name
func (a *AnthropicProvider) Name() string {
	return string(ProviderAnthropic)
}
