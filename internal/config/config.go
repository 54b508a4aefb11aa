// Package config provides configuration management for the folio application.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Save modes.
const (
	SaveModeReplace = "replace"
	SaveModeSaveAs  = "save_as"
)

// Config holds all configuration settings for the folio application.
// Configuration precedence: CLI flags > Environment variables > Config file > Defaults
type Config struct {
	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// LogFormat is console or json
	LogFormat string

	// LogFile optionally duplicates log output to a file
	LogFile string

	// Provider selects the translation back-end (llama, baidu, openai, anthropic, google)
	Provider string

	// SourceLang is the source language code, "auto" for detection
	SourceLang string

	// TargetLang is the target language code
	TargetLang string

	// SmartLayout keeps the original font sizes when reflowing translated text
	SmartLayout bool

	// SaveMode is replace (overwrite the input) or save_as (write next to SavePath)
	SaveMode string

	// SavePath is the output directory used in save_as mode
	SavePath string

	// FontPath overrides the platform font used for translated text
	FontPath string

	// PromptFile is an optional YAML file overriding the translation prompt
	PromptFile string

	// LLM configuration for local and cloud model providers
	LLM LLMConfig

	// Baidu configuration for the Baidu translation API
	Baidu BaiduConfig
}

// LLMConfig holds configuration for LLM-based translation providers
type LLMConfig struct {
	// Model is the specific model to use for translation
	Model string

	// Endpoint is the local inference server endpoint (Ollama)
	Endpoint string

	// APIKey is the API key for cloud providers. Populated from:
	// 1. macOS Keychain (if UseKeychain is true)
	// 2. Environment variables:
	//    - OPENAI_API_KEY for OpenAI
	//    - ANTHROPIC_API_KEY for Anthropic
	//    - GOOGLE_API_KEY for Google
	APIKey string

	// ContextLength is the model context window in tokens
	ContextLength int

	// Threads is the number of CPU threads the local model may use
	Threads int

	// MaxTokens caps generated tokens per request
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic)
	Temperature float64

	// InferenceMode is cpu or gpu for the local model
	InferenceMode string

	// MaxRetries is the maximum number of retry attempts for API calls
	MaxRetries int

	// UseKeychain enables macOS Keychain lookup for API keys (macOS only)
	UseKeychain bool

	// KeychainServicePrefix is the prefix for keychain service names: {prefix}-{provider}
	KeychainServicePrefix string
}

// BaiduConfig holds the Baidu general translation API credentials
type BaiduConfig struct {
	AppID    string
	AppKey   string
	Endpoint string

	// MaxChars is the per-request character limit
	MaxChars int
}

// Load reads configuration from multiple sources and returns a Config instance.
// Flags, when given, are bound so that explicitly set flags win over everything else.
func Load(configFile string, flags ...*pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".folio")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, fs := range flags {
		if fs == nil {
			continue
		}
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	config := &Config{
		LogLevel:    v.GetString("log-level"),
		LogFormat:   v.GetString("log-format"),
		LogFile:     v.GetString("log-file"),
		Provider:    v.GetString("provider"),
		SourceLang:  v.GetString("source-lang"),
		TargetLang:  v.GetString("target-lang"),
		SmartLayout: v.GetBool("smart-layout"),
		SaveMode:    v.GetString("save-mode"),
		SavePath:    v.GetString("save-path"),
		FontPath:    v.GetString("font-path"),
		PromptFile:  v.GetString("prompt-file"),
		LLM: LLMConfig{
			Model:                 v.GetString("llm-model"),
			Endpoint:              v.GetString("llm-endpoint"),
			ContextLength:         v.GetInt("context-length"),
			Threads:               v.GetInt("threads"),
			MaxTokens:             v.GetInt("max-tokens"),
			Temperature:           v.GetFloat64("temperature"),
			InferenceMode:         v.GetString("inference-mode"),
			MaxRetries:            v.GetInt("llm-max-retries"),
			UseKeychain:           v.GetBool("llm-use-keychain"),
			KeychainServicePrefix: v.GetString("llm-keychain-service-prefix"),
		},
		Baidu: BaiduConfig{
			AppID:    v.GetString("baidu-appid"),
			AppKey:   v.GetString("baidu-appkey"),
			Endpoint: v.GetString("baidu-endpoint"),
			MaxChars: v.GetInt("baidu-max-chars"),
		},
	}

	config.LLM.APIKey = loadAPIKeyForProvider(config.Provider, config.LLM.UseKeychain, config.LLM.KeychainServicePrefix)
	if config.LLM.Model == "" {
		config.LLM.Model = DefaultModel(config.Provider)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("log-file", "")

	v.SetDefault("provider", "llama")
	v.SetDefault("source-lang", "auto")
	v.SetDefault("target-lang", "zh")
	v.SetDefault("smart-layout", true)
	v.SetDefault("save-mode", SaveModeReplace)
	v.SetDefault("save-path", "")
	v.SetDefault("font-path", "")
	v.SetDefault("prompt-file", "")

	v.SetDefault("llm-model", "")
	v.SetDefault("llm-endpoint", "http://localhost:11434")
	v.SetDefault("context-length", 2048)
	v.SetDefault("threads", 4)
	v.SetDefault("max-tokens", 512)
	v.SetDefault("temperature", 0.1)
	v.SetDefault("inference-mode", "cpu")
	v.SetDefault("llm-max-retries", 3)
	v.SetDefault("llm-use-keychain", false)
	v.SetDefault("llm-keychain-service-prefix", "folio")

	v.SetDefault("baidu-appid", "")
	v.SetDefault("baidu-appkey", "")
	v.SetDefault("baidu-endpoint", "http://api.fanyi.baidu.com")
	v.SetDefault("baidu-max-chars", 1500)
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "gpt-4o-mini"
	case "anthropic":
		return "claude-3-5-haiku-latest"
	case "google":
		return "gemini-1.5-flash"
	case "llama":
		return "hunyuan-mt"
	default:
		return ""
	}
}

// Validate checks that the configuration is valid and internally consistent
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log-level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log-format %q, must be console or json", c.LogFormat)
	}

	switch c.SaveMode {
	case SaveModeReplace:
	case SaveModeSaveAs:
		if c.SavePath == "" {
			return fmt.Errorf("save-path is required when save-mode is %s", SaveModeSaveAs)
		}
	default:
		return fmt.Errorf("invalid save-mode %q, must be %s or %s", c.SaveMode, SaveModeReplace, SaveModeSaveAs)
	}

	if strings.HasPrefix(c.SavePath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to expand home directory in save-path: %w", err)
		}
		c.SavePath = filepath.Join(home, c.SavePath[2:])
	}

	if c.TargetLang == "" {
		return fmt.Errorf("target-lang cannot be empty")
	}
	if c.SourceLang == "" {
		c.SourceLang = "auto"
	}

	if err := c.validateProviderConfig(); err != nil {
		return fmt.Errorf("invalid provider configuration: %w", err)
	}

	return nil
}

func (c *Config) validateProviderConfig() error {
	validProviders := map[string]bool{
		"llama":     true,
		"baidu":     true,
		"openai":    true,
		"anthropic": true,
		"google":    true,
	}
	if !validProviders[strings.ToLower(c.Provider)] {
		return fmt.Errorf("invalid provider %q, must be one of: llama, baidu, openai, anthropic, google", c.Provider)
	}
	c.Provider = strings.ToLower(c.Provider)

	switch c.Provider {
	case "llama":
		if c.LLM.Endpoint == "" {
			return fmt.Errorf("llm-endpoint cannot be empty for the llama provider")
		}
		if c.LLM.InferenceMode != "cpu" && c.LLM.InferenceMode != "gpu" {
			return fmt.Errorf("inference-mode must be cpu or gpu, got %q", c.LLM.InferenceMode)
		}
		if c.LLM.Threads <= 0 {
			return fmt.Errorf("threads must be positive, got %d", c.LLM.Threads)
		}
	case "baidu":
		if c.Baidu.AppID == "" || c.Baidu.AppKey == "" {
			return fmt.Errorf("baidu-appid and baidu-appkey are required for the baidu provider")
		}
		if c.Baidu.MaxChars <= 0 {
			return fmt.Errorf("baidu-max-chars must be positive, got %d", c.Baidu.MaxChars)
		}
	default:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("API key not found for provider %s, check environment variables", c.Provider)
		}
	}

	if c.Provider != "baidu" && c.LLM.Model == "" {
		return fmt.Errorf("llm-model cannot be empty")
	}

	if c.LLM.ContextLength <= 0 {
		return fmt.Errorf("context-length must be positive, got %d", c.LLM.ContextLength)
	}

	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("max-tokens must be positive, got %d", c.LLM.MaxTokens)
	}

	if c.LLM.Temperature < 0.0 || c.LLM.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", c.LLM.Temperature)
	}

	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm-max-retries must be non-negative, got %d", c.LLM.MaxRetries)
	}

	return nil
}

// loadAPIKeyForProvider loads the appropriate API key from keychain or environment variables
func loadAPIKeyForProvider(provider string, useKeychain bool, keychainPrefix string) string {
	if useKeychain {
		if key := loadFromKeychain(provider, keychainPrefix); key != "" {
			return key
		}
	}

	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "google":
		return os.Getenv("GOOGLE_API_KEY")
	default:
		return ""
	}
}

// loadFromKeychain attempts to retrieve an API key from macOS Keychain.
// Returns empty string if not found or on non-macOS platforms.
func loadFromKeychain(provider, prefix string) string {
	if runtime.GOOS != "darwin" {
		return ""
	}

	serviceName := fmt.Sprintf("%s-%s", prefix, strings.ToLower(provider))
	output, err := exec.Command("security", "find-generic-password", "-s", serviceName, "-w").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

func redact(secret string) string {
	switch {
	case secret == "":
		return "not set"
	case len(secret) > 8:
		return "***" + secret[len(secret)-4:]
	default:
		return "***"
	}
}

// String returns a string representation of the configuration (with sensitive data redacted)
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  LogLevel: %s
  LogFormat: %s
  Provider: %s
  SourceLang: %s
  TargetLang: %s
  SmartLayout: %t
  SaveMode: %s
  SavePath: %s
  FontPath: %s
  PromptFile: %s
  LLM:
    Model: %s
    Endpoint: %s
    APIKey: %s
    ContextLength: %d
    Threads: %d
    MaxTokens: %d
    Temperature: %.2f
    InferenceMode: %s
    MaxRetries: %d
  Baidu:
    AppID: %s
    AppKey: %s
    Endpoint: %s
    MaxChars: %d`,
		c.LogLevel,
		c.LogFormat,
		c.Provider,
		c.SourceLang,
		c.TargetLang,
		c.SmartLayout,
		c.SaveMode,
		c.SavePath,
		c.FontPath,
		c.PromptFile,
		c.LLM.Model,
		c.LLM.Endpoint,
		redact(c.LLM.APIKey),
		c.LLM.ContextLength,
		c.LLM.Threads,
		c.LLM.MaxTokens,
		c.LLM.Temperature,
		c.LLM.InferenceMode,
		c.LLM.MaxRetries,
		c.Baidu.AppID,
		redact(c.Baidu.AppKey),
		c.Baidu.Endpoint,
		c.Baidu.MaxChars,
	)
}
