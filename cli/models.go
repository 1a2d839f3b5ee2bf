package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"blac/config"
	"blac/provider"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models pulled on the Ollama server",
	Long: `List the models available on the configured Ollama server. The server
is the saved base URL when ollama is the active provider, otherwise
http://localhost:11434.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	baseURL := config.ProviderDefaultBaseURL("ollama")
	if cfg.Assistant.Provider == "ollama" && cfg.Assistant.BaseURL != "" {
		baseURL = cfg.Assistant.BaseURL
	}

	p, err := provider.NewOllamaProvider(baseURL, "", nil)
	if err != nil {
		return err
	}
	models, err := p.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to reach Ollama at %s: %w", baseURL, err)
	}

	out := cmd.OutOrStdout()
	if len(models) == 0 {
		fmt.Fprintln(out, "No models found. Pull one with 'ollama pull <model>'.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSIZE\tACTIVE")
	for _, m := range models {
		active := ""
		if cfg.Assistant.Provider == "ollama" && m.Name == cfg.Assistant.Model {
			active = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%.1f GB\t%s\n", m.Name, float64(m.Size)/1e9, active)
	}
	return w.Flush()
}
