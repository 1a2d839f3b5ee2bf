package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"blac/ocr"
	"blac/session"
)

var (
	ocrSummarize bool
	ocrPolicy    string
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <image>...",
	Short: "Print the text found in images",
	Long: `Read the text out of one or more images. Each image is printed under a
"--- Page N ---" header. With --summarize the text is sent to the assistant
and the reply is printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOCR,
}

func init() {
	ocrCmd.Flags().BoolVarP(&ocrSummarize, "summarize", "s", false, "Send the extracted text to the assistant")
	ocrCmd.Flags().StringVar(&ocrPolicy, "policy", "", "What a failing page does to the batch (abort, marker)")
}

func runOCR(cmd *cobra.Command, args []string) error {
	images, err := ocr.LoadImages(args)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	if ocrPolicy != "" {
		a.cfg.OCR.BatchPolicy = ocrPolicy
	}

	if ocrSummarize {
		sess, err := a.newSession()
		if err != nil {
			return err
		}
		stop := startSpinner(cmd, "Reading images...")
		reply, err := sess.ProcessImages(cmd.Context(), images)
		stop()
		if err != nil {
			return ocrError(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
		return nil
	}

	extractor, err := ocr.NewExtractorFromConfig(a.cfg)
	if err != nil {
		return ocrError(err)
	}
	text, err := extractor.ExtractTexts(cmd.Context(), images)
	if err != nil {
		return ocrError(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func ocrError(err error) error {
	if errors.Is(err, ocr.ErrEngineUnavailable) || errors.Is(err, session.ErrOCRUnavailable) {
		return fmt.Errorf("%w\nInstall tesseract and its language data, then build with: go build -tags tesseract", err)
	}
	return err
}
