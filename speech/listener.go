package speech

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"blac/config"
)

// Engine is a streaming recognizer fed with 16-bit little-endian mono PCM.
type Engine interface {
	// AcceptWaveform consumes audio and reports whether a segment ended.
	AcceptWaveform(pcm []byte) bool
	// Result returns the JSON result of the segment that just ended.
	Result() string
	Close()
}

// EngineFactory loads an Engine for the model at modelDir.
type EngineFactory func(modelDir string, sampleRate int) (Engine, error)

// AudioSource yields raw PCM. Close stops capture.
type AudioSource interface {
	io.ReadCloser
}

// AudioOpener starts capture at the given sample rate.
type AudioOpener func(ctx context.Context, sampleRate int) (AudioSource, error)

// ModelState is what the listener needs from the model manager.
type ModelState interface {
	Readiness() Readiness
	ModelDir() string
}

const (
	defaultQueueSize = 8
	readBufferSize   = 4096
)

// Listener runs one capture loop at a time. Completed segments are queued
// to a dispatcher goroutine so a slow callback never stalls capture; when
// the queue is full the segment is dropped.
type Listener struct {
	models     ModelState
	newEngine  EngineFactory
	openAudio  AudioOpener
	sampleRate int
	maxListen  time.Duration
	queueSize  int
	onStop     func(error)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	stopped *atomic.Bool
}

type ListenerOption func(*Listener)

// WithMaxListen stops listening automatically after d. Zero disables it.
func WithMaxListen(d time.Duration) ListenerOption {
	return func(l *Listener) { l.maxListen = d }
}

func WithQueueSize(n int) ListenerOption {
	return func(l *Listener) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

// WithStopHandler is called once whenever a capture loop ends on its own
// (audio ended, time limit, capture error). err is nil on a clean end.
func WithStopHandler(f func(error)) ListenerOption {
	return func(l *Listener) { l.onStop = f }
}

func NewListener(models ModelState, newEngine EngineFactory, openAudio AudioOpener, sampleRate int, opts ...ListenerOption) *Listener {
	l := &Listener{
		models:     models,
		newEngine:  newEngine,
		openAudio:  openAudio,
		sampleRate: sampleRate,
		queueSize:  defaultQueueSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Listener) IsListening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// StartListening begins capture and delivers each non-empty recognized
// segment to callback, in order, from a single goroutine.
func (l *Listener) StartListening(callback func(text string)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrAlreadyListening
	}
	if !l.models.Readiness().Ready() {
		return ErrModelNotReady
	}

	engine, err := l.newEngine(l.models.ModelDir(), l.sampleRate)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if l.maxListen > 0 {
		ctx, cancel = withLimit(ctx, cancel, l.maxListen)
	}

	audio, err := l.openAudio(ctx, l.sampleRate)
	if err != nil {
		cancel()
		engine.Close()
		return err
	}

	done := make(chan struct{})
	stopped := &atomic.Bool{}
	queue := make(chan string, l.queueSize)

	l.running = true
	l.cancel = cancel
	l.done = done
	l.stopped = stopped

	go dispatch(queue, stopped, callback)
	go l.capture(ctx, cancel, audio, engine, queue, done, stopped)

	config.Debugf("[Speech] listening (rate=%d, limit=%s)", l.sampleRate, l.maxListen)
	return nil
}

// StopListening ends capture and waits for the loop to exit. Queued
// segments not yet delivered are discarded. A no-op when idle.
func (l *Listener) StopListening() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.stopped.Store(true)
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	cancel()
	<-done
	config.Debugf("[Speech] stopped listening")
}

func (l *Listener) capture(ctx context.Context, cancel context.CancelFunc, audio AudioSource, engine Engine, queue chan<- string, done chan struct{}, stopped *atomic.Bool) {
	var loopErr error
	defer func() {
		cancel()
		audio.Close()
		engine.Close()
		close(queue)

		l.mu.Lock()
		l.running = false
		l.cancel = nil
		l.mu.Unlock()
		close(done)

		if !stopped.Load() && l.onStop != nil {
			l.onStop(loopErr)
		}
	}()

	// Close the source on cancellation so a blocked Read returns.
	go func() {
		<-ctx.Done()
		audio.Close()
	}()

	// Samples are two bytes; an odd trailing byte waits for the next read.
	buf := make([]byte, readBufferSize)
	carry := 0
	for {
		n, err := audio.Read(buf[carry:])
		total := carry + n
		whole := total &^ 1
		accepted := whole > 0 && engine.AcceptWaveform(buf[:whole])
		carry = total - whole
		if carry == 1 {
			buf[0] = buf[whole]
		}
		if accepted {
			if text := gjson.Get(engine.Result(), "text").String(); text != "" {
				select {
				case queue <- text:
				default:
					config.Debugf("[Speech] dispatcher busy, dropped segment %q", text)
				}
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				loopErr = err
			}
			return
		}
	}
}

func dispatch(queue <-chan string, stopped *atomic.Bool, callback func(string)) {
	for text := range queue {
		if stopped.Load() {
			continue
		}
		callback(text)
	}
}

func withLimit(ctx context.Context, cancel context.CancelFunc, d time.Duration) (context.Context, context.CancelFunc) {
	limited, limitCancel := context.WithTimeout(ctx, d)
	return limited, func() {
		limitCancel()
		cancel()
	}
}
