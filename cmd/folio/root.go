package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/platinummonkey/folio/internal/config"
	"github.com/platinummonkey/folio/internal/logger"
	"github.com/platinummonkey/folio/internal/translate"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Translate PDF documents while keeping their layout",
	Long: `folio translates PDF documents in place. Every text region is
translated and written back into the same box, with the font shrunk until the
translation fits.

Features:
  - Local translation through an Ollama server, or Baidu, OpenAI,
    Anthropic and Google Gemini
  - Long text split into request-sized chunks on line boundaries
  - Progress reported as newline-delimited JSON on stdout
  - Originals are never left half-written`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// An interrupt cancels the run; the document being translated is left as it was.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.folio.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file")
}

// addTranslationFlags registers the flags shared by commands that translate
func addTranslationFlags(fs *pflag.FlagSet) {
	fs.String("provider", "llama", "translation provider (llama, baidu, openai, anthropic, google)")
	fs.String("source-lang", "auto", "source language code")
	fs.String("target-lang", "zh", "target language code")
	fs.String("llm-model", "", "model name (default depends on provider)")
	fs.String("llm-endpoint", "http://localhost:11434", "Ollama server endpoint")
	fs.String("inference-mode", "cpu", "local inference mode (cpu, gpu)")
	fs.Int("context-length", 2048, "model context length in tokens")
	fs.String("prompt-file", "", "YAML file overriding the translation prompt")
}

// setup loads configuration with cmd's flags applied and initializes logging
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags(), cmd.InheritedFlags())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogFile,
		Writer:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

// providerSet is a translation provider together with what must be released
// after use
type providerSet struct {
	provider translate.Provider
	handle   *translate.ModelHandle
}

func (ps *providerSet) Close(ctx context.Context) error {
	var err error
	if c, ok := ps.provider.(io.Closer); ok {
		err = c.Close()
	}
	if ps.handle != nil {
		if herr := ps.handle.Close(ctx); herr != nil && err == nil {
			err = herr
		}
	}
	return err
}

func buildProvider(ctx context.Context, cfg *config.Config, log *logger.Logger) (*providerSet, error) {
	prompts := translate.DefaultPrompts()
	if cfg.PromptFile != "" {
		p, err := translate.LoadPrompts(cfg.PromptFile)
		if err != nil {
			return nil, err
		}
		prompts = p
	}

	ps := &providerSet{}
	if translate.ProviderType(cfg.Provider) == translate.ProviderLlama {
		ps.handle = translate.NewModelHandle(translate.HandleConfigFromConfig(cfg), log)
	}

	provider, err := translate.NewProvider(ctx, translate.ProviderConfigFromConfig(cfg, prompts), ps.handle, log)
	if err != nil {
		return nil, err
	}
	ps.provider = provider

	log.WithFields("provider", provider.Name(), "model", cfg.LLM.Model, "target", cfg.TargetLang).
		Debug("Translation provider ready")
	return ps, nil
}
