package translate

import (
	"context"
	"fmt"

	"github.com/platinummonkey/folio/internal/baidu"
	"github.com/platinummonkey/folio/internal/config"
	"github.com/platinummonkey/folio/internal/logger"
)

// ProviderConfig holds what any provider may need
type ProviderConfig struct {
	Provider      ProviderType
	Model         string
	APIKey        string
	MaxRetries    int
	Temperature   float64
	MaxTokens     int
	ContextLength int
	Prompts       Prompts

	BaiduAppID    string
	BaiduAppKey   string
	BaiduEndpoint string
	BaiduMaxChars int
}

// ProviderConfigFromConfig maps application configuration onto a ProviderConfig
func ProviderConfigFromConfig(cfg *config.Config, prompts Prompts) *ProviderConfig {
	return &ProviderConfig{
		Provider:      ProviderType(cfg.Provider),
		Model:         cfg.LLM.Model,
		APIKey:        cfg.LLM.APIKey,
		MaxRetries:    cfg.LLM.MaxRetries,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		ContextLength: cfg.LLM.ContextLength,
		Prompts:       prompts,
		BaiduAppID:    cfg.Baidu.AppID,
		BaiduAppKey:   cfg.Baidu.AppKey,
		BaiduEndpoint: cfg.Baidu.Endpoint,
		BaiduMaxChars: cfg.Baidu.MaxChars,
	}
}

// HandleConfigFromConfig maps application configuration onto the local model session
func HandleConfigFromConfig(cfg *config.Config) HandleConfig {
	return HandleConfig{
		Endpoint:      cfg.LLM.Endpoint,
		Model:         cfg.LLM.Model,
		ContextLength: cfg.LLM.ContextLength,
		Threads:       cfg.LLM.Threads,
		MaxTokens:     cfg.LLM.MaxTokens,
		Temperature:   cfg.LLM.Temperature,
		InferenceMode: cfg.LLM.InferenceMode,
		MaxRetries:    cfg.LLM.MaxRetries,
		PullMissing:   true,
	}
}

// NewProvider creates the provider selected by cfg.Provider. handle is only
// used by the local provider and may be nil otherwise.
func NewProvider(ctx context.Context, cfg *ProviderConfig, handle *ModelHandle, log *logger.Logger) (Provider, error) {
	if log == nil {
		log = logger.Get()
	}
	if cfg.Prompts.Prompt == "" {
		cfg.Prompts = DefaultPrompts()
	}

	switch cfg.Provider {
	case ProviderLlama:
		if handle == nil {
			return nil, fmt.Errorf("local provider requires a model handle")
		}
		return NewLocalProvider(handle, cfg.Prompts, log), nil

	case ProviderBaidu:
		if cfg.BaiduAppID == "" || cfg.BaiduAppKey == "" {
			return nil, fmt.Errorf("baidu provider requires an app id and app key")
		}
		opts := []baidu.ClientOption{baidu.WithLogger(log)}
		if cfg.BaiduEndpoint != "" {
			opts = append(opts, baidu.WithEndpoint(cfg.BaiduEndpoint))
		}
		return NewBaiduProvider(baidu.NewClient(cfg.BaiduAppID, cfg.BaiduAppKey, opts...), cfg.BaiduMaxChars), nil

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY environment variable)")
		}
		return NewOpenAIProvider(cfg, log), nil

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required (set ANTHROPIC_API_KEY environment variable)")
		}
		return NewAnthropicProvider(cfg, log), nil

	case ProviderGoogle:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("google API key is required (set GOOGLE_API_KEY environment variable)")
		}
		p, err := NewGoogleProvider(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google provider: %w", err)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("%w: %s (supported: llama, baidu, openai, anthropic, google)", ErrUnsupportedProvider, cfg.Provider)
	}
}
