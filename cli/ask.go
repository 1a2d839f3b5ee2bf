package cli

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"blac/model"
	"blac/ocr"
	"blac/session"
)

var (
	askThink  bool
	askSearch bool
	askCode   bool
	askImages []string
	askQuiet  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Ask a single question",
	Long: `Send one prompt and print the reply. The prompt is read from the
argument, or from stdin when no argument is given. Images passed with
--image are read with OCR and their text is sent along with the question.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askThink, "think", false, "Ask the model to reason step by step")
	askCmd.Flags().BoolVar(&askSearch, "search", false, "Ask the model to use live web data")
	askCmd.Flags().BoolVar(&askCode, "code", false, "Ask for code with explanations")
	askCmd.Flags().StringArrayVarP(&askImages, "image", "i", nil, "Image to read with OCR (repeatable)")
	askCmd.Flags().BoolVarP(&askQuiet, "quiet", "q", false, "Do not show the progress spinner")
}

func readPrompt(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(cmd, args)
	if err != nil {
		return err
	}
	if prompt == "" && len(askImages) == 0 {
		return cmd.Help()
	}

	var (
		attachments []model.Attachment
		images      []image.Image
	)
	for _, path := range askImages {
		img, err := ocr.LoadImage(path)
		if err != nil {
			return err
		}
		images = append(images, img)
		attachments = append(attachments, model.ImageAttachment{Source: path, Pixels: img})
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := a.newSession()
	if err != nil {
		return err
	}
	if askThink {
		sess.ToggleThinkMode()
	}
	if askSearch {
		sess.ToggleSearch()
	}
	if askCode {
		sess.ToggleCodeMode()
	}

	events, unsubscribe := sess.Subscribe()
	turnEnded := make(chan struct{})
	warned := make(chan struct{})
	go func() {
		defer close(warned)
		ended := false
		for ev := range events {
			switch ev.Kind {
			case session.EventError:
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", ev.Err)
			case session.EventLoadingChanged:
				if !ev.Loading && !ended {
					ended = true
					close(turnEnded)
				}
			}
		}
	}()

	stop := startSpinner(cmd, "Thinking...")
	var reply model.ChatMessage
	if prompt == "" {
		reply, err = sess.ProcessImages(cmd.Context(), images)
	} else {
		reply, err = sess.Send(cmd.Context(), prompt, attachments...)
	}
	stop()
	// A turn that started always ends with loading=false; every warning it
	// raised is queued ahead of that event.
	if err == nil || (cmd.Context().Err() == nil && !errors.Is(err, session.ErrBusy)) {
		<-turnEnded
	}
	unsubscribe()
	<-warned
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
	return nil
}

// startSpinner shows an indeterminate progress spinner on stderr until the
// returned function is called.
func startSpinner(cmd *cobra.Command, description string) func() {
	if askQuiet {
		return func() {}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bar.Add(1)
			}
		}
	}()

	return func() {
		cancel()
		<-done
		bar.Finish()
	}
}
