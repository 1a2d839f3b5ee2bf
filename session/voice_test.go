package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blac/speech"
)

type fakeVoice struct {
	mu        sync.Mutex
	readiness speech.Readiness
	listening bool
	callback  func(string)
	downloads int
	events    []speech.ProgressEvent
	stops     int
}

func (v *fakeVoice) Readiness() speech.Readiness {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.readiness
}

func (v *fakeVoice) Download(context.Context) (<-chan speech.ProgressEvent, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.readiness.Status == speech.StatusDownloading {
		return nil, speech.ErrDownloadInProgress
	}
	v.downloads++
	ch := make(chan speech.ProgressEvent, len(v.events))
	for _, ev := range v.events {
		ch <- ev
	}
	close(ch)
	if n := len(v.events); n > 0 && v.events[n-1].Done {
		v.readiness = speech.Readiness{Status: speech.StatusReady}
	}
	return ch, nil
}

func (v *fakeVoice) StartListening(cb func(string)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.listening {
		return speech.ErrAlreadyListening
	}
	if !v.readiness.Ready() {
		return speech.ErrModelNotReady
	}
	v.listening = true
	v.callback = cb
	return nil
}

func (v *fakeVoice) StopListening() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.listening {
		v.stops++
	}
	v.listening = false
}

func (v *fakeVoice) IsListening() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.listening
}

func (v *fakeVoice) say(text string) {
	v.mu.Lock()
	cb := v.callback
	v.mu.Unlock()
	cb(text)
}

func TestStartVoiceInputDownloadsWhenNotReady(t *testing.T) {
	fv := &fakeVoice{events: []speech.ProgressEvent{{Progress: 10}, {Progress: 60}, {Progress: 100, Done: true}}}
	s := New(&fakeAssistant{}, WithVoice(fv))
	events, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.StartVoiceInput(context.Background()))
	assert.False(t, s.Listening())
	assert.Equal(t, 1, fv.downloads)

	var progress []int
	var last Event
	for _, ev := range drain(events) {
		if ev.Kind == EventDownloadProgress && ev.Readiness.Status == speech.StatusDownloading {
			progress = append(progress, ev.Readiness.Progress)
		}
		last = ev
	}
	assert.Equal(t, []int{10, 60}, progress)
	assert.Equal(t, EventVoiceState, last.Kind)
	assert.True(t, last.Readiness.Ready())

	// Once ready, the next start listens.
	require.NoError(t, s.StartVoiceInput(context.Background()))
	assert.True(t, s.Listening())
}

func TestStartVoiceInputDownloadFailure(t *testing.T) {
	fv := &fakeVoice{events: []speech.ProgressEvent{{Progress: 5}, {Err: errors.New("connection reset")}}}
	s := New(&fakeAssistant{}, WithVoice(fv))
	events, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.StartVoiceInput(context.Background()))

	var failed bool
	for _, ev := range drain(events) {
		if ev.Kind == EventDownloadProgress && ev.Err != nil {
			failed = true
			assert.Equal(t, speech.StatusNotReady, ev.Readiness.Status)
		}
	}
	assert.True(t, failed)
	assert.False(t, s.Listening())
}

func TestStartVoiceInputWhileDownloading(t *testing.T) {
	fv := &fakeVoice{readiness: speech.Readiness{Status: speech.StatusDownloading, Progress: 30}}
	s := New(&fakeAssistant{}, WithVoice(fv))
	assert.ErrorIs(t, s.StartVoiceInput(context.Background()), speech.ErrDownloadInProgress)
}

func TestVoiceSegmentsBecomeTurns(t *testing.T) {
	fa := &fakeAssistant{}
	fv := &fakeVoice{readiness: speech.Readiness{Status: speech.StatusReady}}
	s := New(fa, WithVoice(fv))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.StartVoiceInput(ctx))
	// Segments keep working after the starting context ends.
	cancel()

	fv.say("what time is it")
	fv.say("and the date")

	msgs := s.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "what time is it", msgs[0].Content)
	assert.Equal(t, "and the date", msgs[2].Content)
	assert.Equal(t, []string{"what time is it", "and the date"}, fa.calls())
}

func TestStopVoiceInput(t *testing.T) {
	fv := &fakeVoice{readiness: speech.Readiness{Status: speech.StatusReady}}
	s := New(&fakeAssistant{}, WithVoice(fv))

	// Idle stop is a no-op.
	s.StopVoiceInput()
	assert.Equal(t, 0, fv.stops)

	require.NoError(t, s.StartVoiceInput(context.Background()))
	assert.ErrorIs(t, s.StartVoiceInput(context.Background()), speech.ErrAlreadyListening)

	events, cancel := s.Subscribe()
	defer cancel()
	s.StopVoiceInput()
	assert.Equal(t, 1, fv.stops)
	assert.False(t, s.Listening())

	evs := drain(events)
	require.Len(t, evs, 1)
	assert.Equal(t, EventVoiceState, evs[0].Kind)
	assert.False(t, evs[0].Listening)
}

func TestVoiceStoppedPublishesError(t *testing.T) {
	s := New(&fakeAssistant{}, WithVoice(&fakeVoice{}))
	events, cancel := s.Subscribe()
	defer cancel()

	s.VoiceStopped(errors.New("arecord: device busy"))
	s.VoiceStopped(nil)

	evs := drain(events)
	require.Len(t, evs, 3)
	assert.Equal(t, EventError, evs[0].Kind)
	assert.ErrorContains(t, evs[0].Err, "device busy")
	assert.Equal(t, EventVoiceState, evs[1].Kind)
	assert.Equal(t, EventVoiceState, evs[2].Kind)
}

func TestVoiceDisabled(t *testing.T) {
	s := New(&fakeAssistant{})
	assert.ErrorIs(t, s.StartVoiceInput(context.Background()), ErrVoiceDisabled)
	s.StopVoiceInput()
	assert.False(t, s.Listening())
}
