package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/platinummonkey/folio/internal/chunker"
	"github.com/platinummonkey/folio/internal/logger"
)

// OpenAIProvider translates with the OpenAI chat completions API
type OpenAIProvider struct {
	client      openai.Client
	model       string
	prompts     Prompts
	temperature float64
	maxTokens   int
	capacity    chunker.Capacity
	logger      *logger.Logger
}

// NewOpenAIProvider creates an OpenAI translation provider
func NewOpenAIProvider(cfg *ProviderConfig, log *logger.Logger, extra ...option.RequestOption) *OpenAIProvider {
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

	return &OpenAIProvider{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		prompts:     cfg.Prompts,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		capacity:    chunker.TokenCapacity(cfg.ContextLength),
		logger:      log,
	}
}

// Translate implements Provider
func (o *OpenAIProvider) Translate(ctx context.Context, req Request) (*Response, error) {
	o.logger.WithFields("model", o.model, "provider", "openai").Debug("Translating with OpenAI")

	var messages []openai.ChatCompletionMessageParamUnion
	if system := o.prompts.RenderSystem(req.TargetLang); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(o.prompts.Render(req.TargetLang, req.Text)))

	params := openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    messages,
		Temperature: openai.Float(o.temperature),
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty translation from OpenAI")
	}
	return &Response{Text: content}, nil
}

// Capacity is derived from the configured context length
func (o *OpenAIProvider) Capacity() chunker.Capacity {
	return o.capacity
}

// Name returns the provider name
func (o *OpenAIProvider) Name() string {
	return string(ProviderOpenAI)
}
