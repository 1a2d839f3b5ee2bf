package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"blac/config"
	"blac/provider"
)

const verifyTimeout = 10 * time.Second

var keyVerify bool

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage provider API keys",
	Long: `Store, inspect and remove API keys. Keys are encrypted in the data
directory using the configured security method.`,
}

var keySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store an API key",
	Long: `Store an API key for a provider. When no key is given on the command
line it is read from the terminal without echo.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKeySet,
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which key is in use",
	Args:  cobra.NoArgs,
	RunE:  runKeyShow,
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove a stored API key",
	Args:  cobra.NoArgs,
	RunE:  runKeyClear,
}

func init() {
	keySetCmd.Flags().BoolVar(&keyVerify, "verify", false, "Check the key against the provider before saving")

	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyShowCmd)
	keyCmd.AddCommand(keyClearCmd)
}

// targetProvider is the active provider, which --provider overrides.
func targetProvider(a *app) (string, error) {
	id := a.cfg.Assistant.Provider
	if !config.IsKnownProvider(id) {
		return "", fmt.Errorf("unknown provider: %s", id)
	}
	return id, nil
}

func runKeySet(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	id, err := targetProvider(a)
	if err != nil {
		return err
	}

	var key string
	if len(args) > 0 {
		key = args[0]
	} else {
		key, err = readSecret(fmt.Sprintf("%s API key: ", config.ProviderDisplayName(id)))
		if err != nil {
			return err
		}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	if keyVerify {
		baseURL := a.cfg.Assistant.BaseURL
		if baseURL == "" {
			baseURL = config.ProviderDefaultBaseURL(id)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
		defer cancel()
		if err := provider.Validate(ctx, id, baseURL, key); err != nil {
			return fmt.Errorf("key rejected by %s: %w", config.ProviderDisplayName(id), err)
		}
	}

	if err := a.keys.SaveUserKey(id, key); err != nil {
		return fmt.Errorf("failed to save key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s key %s\n", config.ProviderDisplayName(id), maskKey(key))
	return nil
}

func runKeyShow(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	id, err := targetProvider(a)
	if err != nil {
		return err
	}

	source := "none"
	key := a.keys.APIKey(id)
	switch {
	case a.keys.HasUserKey(id):
		source = "stored"
	case key != "":
		source = "built-in"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Provider: %s\n", config.ProviderDisplayName(id))
	fmt.Fprintf(out, "Source:   %s\n", source)
	if key != "" {
		fmt.Fprintf(out, "Key:      %s\n", maskKey(key))
	}
	fmt.Fprintf(out, "Storage:  %s\n", a.keys.GetMethod())
	return nil
}

func runKeyClear(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	id, err := targetProvider(a)
	if err != nil {
		return err
	}
	if !a.keys.HasUserKey(id) {
		fmt.Fprintf(cmd.OutOrStdout(), "No stored %s key.\n", config.ProviderDisplayName(id))
		return nil
	}

	a.keys.Delete(id)
	if err := a.keys.Save(a.cfg.DataDir()); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s key.\n", config.ProviderDisplayName(id))
	return nil
}

// maskKey keeps the first and last four characters of long keys.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
