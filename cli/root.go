// Package cli implements the blac command line.
package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"blac/ui"
)

var (
	providerFlag string
	modelFlag    string

	// Version is set at build time.
	Version = "v0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "blac",
	Short: "Chat assistant for the terminal with image OCR and voice input",
	Long: `blac is a chat assistant for the terminal. It sends your questions to a
generative model, reads text out of images with OCR and takes dictation
through an offline speech model.

Examples:
  blac                                 Start the chat screen
  blac ask "What is a goroutine?"      Ask a single question
  blac ask -i receipt.png "Total?"     Ask about an image
  blac ocr page1.png page2.png         Print the text of images
  blac voice download                  Fetch the speech model
  blac key set                         Store your API key`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runChat,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "Assistant backend (gemini, openai, anthropic, ollama)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Model to use")
	rootCmd.Version = Version

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(ocrCmd)
	rootCmd.AddCommand(voiceCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(useCmd)
	rootCmd.AddCommand(modelsCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		showStartupError("Could not start blac", err, "Check ~/.config/blac/settings.toml and the config.toml in your data directory.")
		return err
	}
	defer a.close()

	sess, err := a.newSession()
	if err != nil {
		showStartupError("Could not start blac", err, "")
		return err
	}
	defer sess.StopVoiceInput()

	p := tea.NewProgram(
		ui.NewAppView(sess, ui.AppOptions{ModelName: a.cfg.Assistant.Model, Version: Version}),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running blac: %w", err)
	}
	return nil
}

func showStartupError(title string, err error, hint string) {
	p := tea.NewProgram(ui.NewErrorModal(title, err, hint), tea.WithAltScreen())
	if _, runErr := p.Run(); runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
