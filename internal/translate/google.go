package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/platinummonkey/folio/internal/chunker"
	"github.com/platinummonkey/folio/internal/logger"
	"google.golang.org/api/option"
)

// GoogleProvider translates with the Gemini API
type GoogleProvider struct {
	client      *genai.Client
	model       string
	prompts     Prompts
	temperature float64
	maxTokens   int
	capacity    chunker.Capacity
	logger      *logger.Logger
}

// NewGoogleProvider creates a Gemini translation provider
func NewGoogleProvider(ctx context.Context, cfg *ProviderConfig, log *logger.Logger, extra ...option.ClientOption) (*GoogleProvider, error) {
	if log == nil {
		log = logger.Get()
	}

	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, extra...)

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GoogleProvider{
		client:      client,
		model:       cfg.Model,
		prompts:     cfg.Prompts,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		capacity:    chunker.TokenCapacity(cfg.ContextLength),
		logger:      log,
	}, nil
}

// Translate implements Provider
func (g *GoogleProvider) Translate(ctx context.Context, req Request) (*Response, error) {
	g.logger.WithFields("model", g.model, "provider", "google").Debug("Translating with Gemini")

	genModel := g.client.GenerativeModel(g.model)
	genModel.SetTemperature(float32(g.temperature))
	if g.maxTokens > 0 {
		genModel.SetMaxOutputTokens(int32(g.maxTokens))
	}
	if system := g.prompts.RenderSystem(req.TargetLang); system != "" {
		genModel.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	resp, err := genModel.GenerateContent(ctx, genai.Text(g.prompts.Render(req.TargetLang, req.Text)))
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(content.String())
	if text == "" {
		return nil, fmt.Errorf("no text content in Gemini response")
	}
	return &Response{Text: text}, nil
}

// Capacity is derived from the configured context length
func (g *GoogleProvider) Capacity() chunker.Capacity {
	return g.capacity
}

// Name returns the provider name
func (g *GoogleProvider) Name() string {
	return string(ProviderGoogle)
}

// Close closes the Google client
func (g *GoogleProvider) Close() error {
	return g.client.Close()
}
