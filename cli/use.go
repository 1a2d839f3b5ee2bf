package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"blac/config"
)

var useCmd = &cobra.Command{
	Use:   "use <provider> [model]",
	Short: "Switch the default assistant backend",
	Long: `Save the provider, and optionally the model, used when no --provider or
--model flag is given. Switching providers clears the saved model and base URL.

Providers: ` + strings.Join(config.KnownProviders, ", "),
	Args: cobra.RangeArgs(1, 2),
	RunE: runUse,
}

func runUse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	id := strings.ToLower(args[0])
	if err := config.UpdateAssistantField(cfg.DataDir(), "provider", id); err != nil {
		return err
	}
	if len(args) > 1 {
		if err := config.UpdateAssistantField(cfg.DataDir(), "model", args[1]); err != nil {
			return err
		}
	}

	msg := fmt.Sprintf("Now using %s", config.ProviderDisplayName(id))
	if len(args) > 1 {
		msg += " with model " + args[1]
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}
