// Package speech downloads the offline recognition model and turns
// microphone audio into text segments.
package speech

import (
	"errors"
	"fmt"
)

var (
	ErrModelNotReady      = errors.New("speech model not downloaded")
	ErrAlreadyListening   = errors.New("already listening")
	ErrDownloadInProgress = errors.New("model download already in progress")
	ErrEngineUnavailable  = errors.New("speech engine unavailable: rebuild with -tags vosk")
)

// Status is the model readiness stage.
type Status int

const (
	StatusNotReady Status = iota
	StatusDownloading
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusDownloading:
		return "downloading"
	case StatusReady:
		return "ready"
	default:
		return "not ready"
	}
}

// Readiness is the model state. Progress is meaningful only while
// downloading and stays within 0..100.
type Readiness struct {
	Status   Status
	Progress int
}

func (r Readiness) String() string {
	if r.Status == StatusDownloading {
		return fmt.Sprintf("downloading (%d%%)", r.Progress)
	}
	return r.Status.String()
}

func (r Readiness) Ready() bool { return r.Status == StatusReady }

// ProgressEvent is one element of a download stream. The stream ends with
// exactly one event that has Done set or Err non-nil.
type ProgressEvent struct {
	Progress int
	Done     bool
	Err      error
}

func (e ProgressEvent) Terminal() bool { return e.Done || e.Err != nil }
