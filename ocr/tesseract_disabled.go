//go:build !tesseract

package ocr

// NewDefaultRecognizer reports that no engine was compiled in.
func NewDefaultRecognizer(_ string) (Recognizer, error) {
	return nil, ErrEngineUnavailable
}
