// Package ocr extracts text from images, one at a time or as a numbered
// batch of pages.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"blac/config"
)

// ErrEngineUnavailable is returned when the binary was built without an
// OCR engine.
var ErrEngineUnavailable = errors.New("ocr engine unavailable: rebuild with -tags tesseract")

// Recognizer turns one image into text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, img image.Image) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

// BatchPolicy decides what a failing page does to a batch.
type BatchPolicy string

const (
	// PolicyAbort fails the whole batch on the first failing page.
	PolicyAbort BatchPolicy = "abort"
	// PolicyMarker keeps going and puts a failure marker in the page body.
	PolicyMarker BatchPolicy = "marker"
)

// ParseBatchPolicy maps the config value; anything unknown is PolicyAbort.
func ParseBatchPolicy(s string) BatchPolicy {
	if BatchPolicy(strings.ToLower(strings.TrimSpace(s))) == PolicyMarker {
		return PolicyMarker
	}
	return PolicyAbort
}

// PageError reports which page of a batch failed. Page is 1-based.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("ocr failed on page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

type Extractor struct {
	recognizer Recognizer
	policy     BatchPolicy
}

func NewExtractor(r Recognizer, policy BatchPolicy) *Extractor {
	if policy == "" {
		policy = PolicyAbort
	}
	return &Extractor{recognizer: r, policy: policy}
}

// NewExtractorFromConfig wires the build's default engine with the
// configured language and batch policy.
func NewExtractorFromConfig(cfg *config.Config) (*Extractor, error) {
	r, err := NewDefaultRecognizer(cfg.OCR.Language)
	if err != nil {
		return nil, err
	}
	return NewExtractor(r, ParseBatchPolicy(cfg.OCR.BatchPolicy)), nil
}

func (e *Extractor) Policy() BatchPolicy {
	return e.policy
}

// ExtractText returns the recognized text of img. Text with no recognizable
// content is returned as "".
func (e *Extractor) ExtractText(ctx context.Context, img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("ocr: nil image")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.recognizer.Recognize(ctx, img)
	if err != nil {
		return "", err
	}
	return text, nil
}

// ExtractTexts runs the images in order and returns one
// "--- Page k ---\n<text>" block per image joined by a blank line. An empty
// slice yields "".
func (e *Extractor) ExtractTexts(ctx context.Context, imgs []image.Image) (string, error) {
	pages := make([]string, 0, len(imgs))
	for i, img := range imgs {
		text, err := e.ExtractText(ctx, img)
		if err != nil {
			if ctx.Err() != nil || e.policy == PolicyAbort {
				return "", &PageError{Page: i + 1, Err: err}
			}
			config.Debugf("[OCR] page %d failed, inserting marker: %v", i+1, err)
			text = FailureMarker(err)
		}
		pages = append(pages, text)
	}
	return FormatPages(pages), nil
}

// FailureMarker is the page body used by PolicyMarker.
func FailureMarker(err error) string {
	return fmt.Sprintf("[OCR failed: %v]", err)
}

// FormatPages numbers page bodies from 1 and joins them.
func FormatPages(pages []string) string {
	blocks := make([]string, len(pages))
	for i, p := range pages {
		blocks[i] = fmt.Sprintf("--- Page %d ---\n%s", i+1, p)
	}
	return strings.Join(blocks, "\n\n")
}
