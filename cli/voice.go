package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"blac/session"
	"blac/speech"
)

var voiceSend bool

var errVoiceModelMissing = errors.New("speech model not downloaded: run 'blac voice download' first")

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Manage offline voice input",
}

var voiceDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the speech recognition model",
	Args:  cobra.NoArgs,
	RunE:  runVoiceDownload,
}

var voiceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the speech model is ready",
	Args:  cobra.NoArgs,
	RunE:  runVoiceStatus,
}

var voiceListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print what you say until Ctrl+C",
	Long: `Listen on the microphone and print each recognized phrase on its own
line. With --send every phrase is sent to the assistant and the replies are
printed as they arrive.`,
	Args: cobra.NoArgs,
	RunE: runVoiceListen,
}

func init() {
	voiceListenCmd.Flags().BoolVar(&voiceSend, "send", false, "Send each phrase to the assistant")

	voiceCmd.AddCommand(voiceDownloadCmd)
	voiceCmd.AddCommand(voiceStatusCmd)
	voiceCmd.AddCommand(voiceListenCmd)
}

func runVoiceDownload(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	models := speech.NewModelManagerFromConfig(a.cfg)
	if models.Readiness().Ready() {
		fmt.Fprintf(cmd.OutOrStdout(), "Speech model already present at %s\n", models.ModelDir())
		return nil
	}

	events, err := models.Download(ctx)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Downloading speech model"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	for ev := range events {
		if ev.Err != nil {
			bar.Clear()
			return fmt.Errorf("download failed: %w", ev.Err)
		}
		bar.Set(ev.Progress)
	}
	bar.Finish()

	fmt.Fprintf(cmd.OutOrStdout(), "Speech model ready at %s\n", models.ModelDir())
	return nil
}

func runVoiceStatus(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	models := speech.NewModelManagerFromConfig(a.cfg)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Model:    %s\n", a.cfg.Voice.ModelName)
	fmt.Fprintf(out, "Status:   %s\n", models.Readiness())
	fmt.Fprintf(out, "Location: %s\n", models.ModelDir())
	fmt.Fprintf(out, "Capture:  %s\n", a.cfg.Voice.CaptureCommand)
	return nil
}

func runVoiceListen(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if voiceSend {
		return listenAndSend(ctx, cmd, a)
	}

	out := cmd.OutOrStdout()
	stopped := make(chan error, 1)
	svc := speech.NewService(a.cfg, speech.WithStopHandler(func(err error) {
		stopped <- err
	}))
	if !svc.Readiness().Ready() {
		return errVoiceModelMissing
	}
	if err := svc.StartListening(func(text string) {
		fmt.Fprintln(out, text)
	}); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Listening... press Ctrl+C to stop")

	select {
	case <-ctx.Done():
		svc.StopListening()
		return nil
	case err := <-stopped:
		return err
	}
}

// listenAndSend runs dictation through a session so each phrase becomes a
// turn, printing both sides of the conversation.
func listenAndSend(ctx context.Context, cmd *cobra.Command, a *app) error {
	sess, err := a.newSession()
	if err != nil {
		return err
	}
	if !sess.VoiceReadiness().Ready() {
		return errVoiceModelMissing
	}

	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	if err := sess.StartVoiceInput(ctx); err != nil {
		return err
	}
	defer sess.StopVoiceInput()
	fmt.Fprintln(cmd.ErrOrStderr(), "Listening... press Ctrl+C to stop")

	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case session.EventMessageAppended:
				who := "assistant"
				if ev.Message.IsUser {
					who = "you"
				}
				fmt.Fprintf(out, "%s> %s\n", who, ev.Message.Content)
			case session.EventError:
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", ev.Err)
			case session.EventVoiceState:
				if !ev.Listening {
					return nil
				}
			}
		}
	}
}
