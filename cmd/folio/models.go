package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/platinummonkey/folio/internal/ollama"
	"github.com/spf13/cobra"
)

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available to the local inference server",
	Long: `List the models installed on the Ollama server used by the llama
provider, or download one with --pull.

Examples:
  folio models
  folio models --pull hunyuan-mt`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().String("llm-endpoint", "http://localhost:11434", "Ollama server endpoint")
	modelsCmd.Flags().String("pull", "", "download this model")
}

func runModels(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	client := ollama.NewClient(
		ollama.WithEndpoint(cfg.LLM.Endpoint),
		ollama.WithLogger(log),
		ollama.WithMaxRetries(cfg.LLM.MaxRetries),
	)
	ctx := cmd.Context()

	if err := client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("inference server not reachable at %s: %w", client.Endpoint(), err)
	}

	name, err := cmd.Flags().GetString("pull")
	if err != nil {
		return fmt.Errorf("failed to read --pull: %w", err)
	}
	if name != "" {
		log.WithFields("model", name).Info("Pulling model")
		if err := client.PullModel(ctx, name); err != nil {
			return err
		}
	}

	resp, err := client.ListModels(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED\tACTIVE")
	for _, m := range resp.Models {
		active := ""
		if m.Name == cfg.LLM.Model || m.Name == cfg.LLM.Model+":latest" {
			active = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Name, humanSize(m.Size), m.ModifiedAt.Format(time.DateOnly), active)
	}
	return w.Flush()
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
