package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/platinummonkey/folio/internal/persist"
	"github.com/platinummonkey/folio/internal/translate"
	"github.com/spf13/cobra"
)

// textCmd represents the text command
var textCmd = &cobra.Command{
	Use:   "text [FILE]",
	Short: "Translate plain text",
	Long: `Translate a text file, or stdin when no file is given.

Text longer than the provider accepts is split on line boundaries and the
pieces are translated one after another. A piece that fails keeps its
original text.

Examples:
  folio text notes.txt --target-lang en
  cat notes.txt | folio text --provider baidu --output notes.en.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runText,
}

func init() {
	rootCmd.AddCommand(textCmd)

	addTranslationFlags(textCmd.Flags())
	textCmd.Flags().StringP("output", "o", "", "write the translation to this file instead of stdout")
}

func runText(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	var input []byte
	if len(args) == 1 {
		input, err = os.ReadFile(args[0])
	} else {
		input, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ps, err := buildProvider(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer ps.Close(context.Background())

	orch := translate.New(&translate.Config{Logger: log})
	result := orch.TranslateLong(ctx, string(input), cfg.SourceLang, cfg.TargetLang, ps.provider, ps.provider.Capacity())
	if !result.Success {
		return fmt.Errorf("translation failed: %s", result.Error)
	}
	if result.FailedChunks > 0 {
		log.WithFields("failed_chunks", result.FailedChunks, "chunks", result.Chunks).
			Warn("Some chunks were left untranslated")
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to read --output: %w", err)
	}
	if output == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), result.TranslatedText)
		return err
	}
	if err := persist.WriteFile(output, []byte(result.TranslatedText+"\n")); err != nil {
		return err
	}
	log.WithFields("output", output, "chunks", result.Chunks).Info("Translation written")
	return nil
}
