package session

import (
	"context"
	"fmt"

	"blac/config"
	"blac/speech"
)

// Voice is the speech pipeline used for dictation. *speech.Service
// satisfies it.
type Voice interface {
	Readiness() speech.Readiness
	Download(ctx context.Context) (<-chan speech.ProgressEvent, error)
	StartListening(callback func(text string)) error
	StopListening()
	IsListening() bool
}

// StartVoiceInput begins dictation. When the speech model is missing it
// starts the download instead and publishes its progress; the caller starts
// voice input again once the model is ready. Each recognized segment is sent
// as its own turn.
func (s *Session) StartVoiceInput(ctx context.Context) error {
	if s.voice == nil {
		return ErrVoiceDisabled
	}

	if !s.voice.Readiness().Ready() {
		events, err := s.voice.Download(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}
		go s.forwardDownload(events)
		return nil
	}

	base := context.WithoutCancel(ctx)
	err := s.voice.StartListening(func(text string) {
		config.Debugf("[Session] voice segment: %q", text)
		if _, err := s.Send(base, text); err != nil {
			s.publishError(err)
		}
	})
	if err != nil {
		return err
	}
	s.publishVoiceState()
	return nil
}

// StopVoiceInput ends dictation. A no-op when not listening.
func (s *Session) StopVoiceInput() {
	if s.voice == nil || !s.voice.IsListening() {
		return
	}
	s.voice.StopListening()
	s.publishVoiceState()
}

// VoiceStopped reports that listening ended without StopVoiceInput, for
// example when the listen limit ran out or the capture command exited.
func (s *Session) VoiceStopped(err error) {
	if err != nil {
		s.publishError(fmt.Errorf("voice input stopped: %w", err))
	}
	s.events.publish(Event{Kind: EventVoiceState, Listening: false, Readiness: s.voiceReadiness()})
}

func (s *Session) VoiceReadiness() speech.Readiness {
	return s.voiceReadiness()
}

func (s *Session) Listening() bool {
	return s.voice != nil && s.voice.IsListening()
}

func (s *Session) forwardDownload(events <-chan speech.ProgressEvent) {
	for ev := range events {
		r := speech.Readiness{Status: speech.StatusDownloading, Progress: ev.Progress}
		if ev.Terminal() {
			r = s.voiceReadiness()
		}
		s.events.publish(Event{Kind: EventDownloadProgress, Readiness: r, Err: ev.Err})
		if ev.Terminal() {
			s.publishVoiceState()
		}
	}
}

func (s *Session) voiceReadiness() speech.Readiness {
	if s.voice == nil {
		return speech.Readiness{}
	}
	return s.voice.Readiness()
}

func (s *Session) publishVoiceState() {
	s.events.publish(Event{
		Kind:      EventVoiceState,
		Listening: s.Listening(),
		Readiness: s.voiceReadiness(),
	})
}
