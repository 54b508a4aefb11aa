package main

import (
	"context"
	"fmt"

	"github.com/platinummonkey/folio/internal/fonts"
	"github.com/platinummonkey/folio/internal/pdfdoc"
	"github.com/platinummonkey/folio/internal/pipeline"
	"github.com/platinummonkey/folio/internal/reflow"
	"github.com/platinummonkey/folio/internal/translate"
	"github.com/spf13/cobra"
)

// pdfCmd represents the pdf command
var pdfCmd = &cobra.Command{
	Use:   "pdf FILE...",
	Short: "Translate PDF files, keeping their layout",
	Long: `Translate one or more PDF files one after another.

Progress is written to stdout as one JSON event per line:
  init, progress (analyzing, translating, generating), error,
  complete, finish, and fatal_error if the run aborts.

Logs go to stderr.

Examples:
  # Translate into Chinese, overwriting the input
  folio pdf paper.pdf

  # Translate to Japanese and keep the originals
  folio pdf --target-lang ja --save-mode save_as --save-path ./out a.pdf b.pdf

  # Use the Baidu API with fixed font sizes
  folio pdf --provider baidu --smart-layout=false paper.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPDF,
}

func init() {
	rootCmd.AddCommand(pdfCmd)

	addTranslationFlags(pdfCmd.Flags())
	pdfCmd.Flags().String("save-mode", "replace", "replace the input or save_as a new file")
	pdfCmd.Flags().String("save-path", "", "output directory for save_as mode")
	pdfCmd.Flags().Bool("smart-layout", true, "derive font sizes from the original text")
	pdfCmd.Flags().String("font-path", "", "TrueType font for translated text")
}

func runPDF(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ps, err := buildProvider(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer ps.Close(context.Background())

	font := fonts.Selector{Override: cfg.FontPath}.Select()
	if fonts.IsBuiltin(font) {
		log.Warn("No system font with wide script coverage found, using the built-in font")
	} else {
		log.WithFields("font", font.Path).Debug("Selected font")
	}

	p, err := pipeline.New(&pipeline.Config{
		Opener:       pdfdoc.Opener(pdfdoc.WithLogger(log)),
		Provider:     ps.provider,
		Orchestrator: translate.New(&translate.Config{Logger: log}),
		Reflow: reflow.New(&reflow.Config{
			Policy: reflow.DefaultPolicy(cfg.SmartLayout),
			Font:   font,
			Logger: log,
		}),
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	enc := pipeline.NewEncoder(cmd.OutOrStdout())
	summary := pipeline.NewSummary()

	for ev := range p.Batch(ctx, pipeline.BatchRequest{
		Files:      args,
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
		SaveMode:   cfg.SaveMode,
		SavePath:   cfg.SavePath,
	}) {
		if err := enc.Encode(ev); err != nil {
			return err
		}
		summary.Observe(ev)
	}

	fmt.Fprint(cmd.ErrOrStderr(), summary.String())
	if summary.HasFailures() {
		return fmt.Errorf("translation finished with %d failed files", summary.Failed)
	}
	return nil
}
