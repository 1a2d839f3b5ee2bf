package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"blac/config"
	"blac/highlight"
	"blac/model"
)

var (
	ErrBusy           = errors.New("a message is already being sent")
	ErrNoImages       = errors.New("no images to process")
	ErrOCRUnavailable = errors.New("text recognition is not available")
	ErrVoiceDisabled  = errors.New("voice input is not available")
)

// SendPolicy decides what happens to a send issued while a turn is in flight.
type SendPolicy string

const (
	PolicyReject SendPolicy = "reject"
	PolicyQueue  SendPolicy = "queue"
)

// ParseSendPolicy maps a config value onto a policy; unknown values reject.
func ParseSendPolicy(s string) SendPolicy {
	if strings.EqualFold(strings.TrimSpace(s), string(PolicyQueue)) {
		return PolicyQueue
	}
	return PolicyReject
}

// Assistant answers one prompt. It reports failures in the returned text.
type Assistant interface {
	StreamMessage(ctx context.Context, prompt string, opts model.ToggleOptions, onChunk func(string)) string
}

// TextExtractor turns images into page-headed text.
type TextExtractor interface {
	ExtractTexts(ctx context.Context, imgs []image.Image) (string, error)
}

// Recorder persists appended messages.
type Recorder interface {
	Record(sessionID string, msg model.ChatMessage) error
}

type Option func(*Session)

func WithExtractor(e TextExtractor) Option {
	return func(s *Session) { s.ocr = e }
}

func WithVoice(v Voice) Option {
	return func(s *Session) { s.voice = v }
}

func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

func WithSendPolicy(p SendPolicy) Option {
	return func(s *Session) { s.policy = p }
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session owns the message log and the toggle state of one conversation and
// sequences each turn through OCR and the assistant.
type Session struct {
	assistant Assistant
	ocr       TextExtractor
	voice     Voice
	recorder  Recorder
	policy    SendPolicy
	now       func() time.Time

	turn   chan struct{}
	events *broker

	mu         sync.Mutex
	id         string
	generation int
	messages   []model.ChatMessage
	loading    bool
	options    model.ToggleOptions
	lastStamp  time.Time
}

func New(assistant Assistant, opts ...Option) *Session {
	s := &Session{
		assistant: assistant,
		policy:    PolicyReject,
		now:       time.Now,
		turn:      make(chan struct{}, 1),
		events:    newBroker(),
		id:        uuid.New().String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Messages returns a snapshot of the log, oldest first.
func (s *Session) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.messages))
	for i, msg := range s.messages {
		out[i] = detach(msg)
	}
	return out
}

// detach copies the attachment list so callers cannot reach the log's.
func detach(msg model.ChatMessage) model.ChatMessage {
	msg.Attachments = slices.Clone(msg.Attachments)
	return msg
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) Options() model.ToggleOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

// Subscribe returns a stream of session events and a function that ends the
// subscription and closes the stream.
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

func (s *Session) ToggleThinkMode() model.ToggleOptions {
	return s.updateOptions(model.ToggleOptions.ToggleThinkMode)
}

func (s *Session) ToggleSearch() model.ToggleOptions {
	return s.updateOptions(model.ToggleOptions.ToggleSearch)
}

func (s *Session) ToggleCodeMode() model.ToggleOptions {
	return s.updateOptions(model.ToggleOptions.ToggleCodeMode)
}

func (s *Session) updateOptions(f func(model.ToggleOptions) model.ToggleOptions) model.ToggleOptions {
	s.mu.Lock()
	s.options = f(s.options)
	opts := s.options
	s.mu.Unlock()

	s.events.publish(Event{Kind: EventOptionsChanged, Options: opts})
	return opts
}

// Clear discards the log and starts a new session ID. A reply still in flight
// is dropped when it arrives.
func (s *Session) Clear() string {
	s.mu.Lock()
	s.messages = nil
	s.generation++
	s.id = uuid.New().String()
	id := s.id
	s.mu.Unlock()

	config.Debugf("[Session] cleared, new session %s", id)
	s.events.publish(Event{Kind: EventCleared, SessionID: id})
	return id
}

// Send runs one turn: the user message is appended, image attachments are
// read with OCR, and the assistant reply is appended. It makes exactly one
// assistant call. OCR failures are published as EventError and the turn
// continues with the text alone.
func (s *Session) Send(ctx context.Context, text string, attachments ...model.Attachment) (model.ChatMessage, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return model.ChatMessage{}, err
	}
	defer release()

	user := model.NewChatMessage(text, true, s.stamp(), attachments...)
	gen := s.append(user, -1)
	s.setLoading(true)
	defer s.setLoading(false)

	prompt := text
	if imgs := pixelImages(user); len(imgs) > 0 {
		extracted, err := s.extract(ctx, imgs)
		if err != nil {
			config.Debugf("[Session] OCR failed, sending text only: %v", err)
			s.publishError(fmt.Errorf("image text extraction failed: %w", err))
		} else {
			prompt = fmt.Sprintf("Extracted text from image(s):\n%s\n\nUser question: %s", extracted, text)
		}
	}

	return s.reply(ctx, prompt, gen), nil
}

// ProcessImages extracts text from every image and asks the assistant to
// summarize it. Only the reply is appended to the log.
func (s *Session) ProcessImages(ctx context.Context, imgs []image.Image) (model.ChatMessage, error) {
	if len(imgs) == 0 {
		return model.ChatMessage{}, ErrNoImages
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return model.ChatMessage{}, err
	}
	defer release()

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	s.setLoading(true)
	defer s.setLoading(false)

	extracted, err := s.extract(ctx, imgs)
	if err != nil {
		err = fmt.Errorf("image text extraction failed: %w", err)
		s.publishError(err)
		return model.ChatMessage{}, err
	}

	prompt := fmt.Sprintf("I have extracted the following text from multiple images:\n\n%s\n\nPlease summarize or answer based on this content.", extracted)
	return s.reply(ctx, prompt, gen), nil
}

func (s *Session) extract(ctx context.Context, imgs []image.Image) (string, error) {
	if s.ocr == nil {
		return "", ErrOCRUnavailable
	}
	return s.ocr.ExtractTexts(ctx, imgs)
}

// reply makes the assistant call with the options current at this moment.
func (s *Session) reply(ctx context.Context, prompt string, gen int) model.ChatMessage {
	opts := s.Options()
	config.Debugf("[Session] sending prompt (%d chars) opts=%+v", len(prompt), opts)

	text := s.assistant.StreamMessage(ctx, prompt, opts, func(chunk string) {
		s.events.publish(Event{Kind: EventStreamChunk, Chunk: chunk})
	})

	msg := model.NewChatMessage(text, false, s.stamp())
	if lang, ok := codeLanguage(text, opts.CodeMode); ok {
		msg = msg.WithCode(lang)
	}
	s.append(msg, gen)
	return msg
}

// codeLanguage reports whether a reply should be shown as code, and in which
// language.
func codeLanguage(reply string, codeMode bool) (string, bool) {
	lang, fenced := highlight.FirstCodeLanguage(reply)
	if !fenced && !codeMode {
		return "", false
	}
	if lang == "" {
		sample := reply
		for _, b := range highlight.SplitFences(reply) {
			if b.Code {
				sample = b.Text
				break
			}
		}
		lang = highlight.DetectLanguage(sample, "")
	}
	return strings.ToLower(lang), true
}

func pixelImages(msg model.ChatMessage) []image.Image {
	var out []image.Image
	for _, img := range msg.Images() {
		if img.Pixels != nil {
			out = append(out, img.Pixels)
		}
	}
	return out
}

// acquire claims the single turn slot according to the send policy.
func (s *Session) acquire(ctx context.Context) (func(), error) {
	release := func() { <-s.turn }

	if s.policy == PolicyQueue {
		select {
		case s.turn <- struct{}{}:
			return release, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	select {
	case s.turn <- struct{}{}:
		return release, nil
	default:
		return nil, ErrBusy
	}
}

// append adds msg to the log. A non-negative gen drops the message when the
// session was cleared after the turn began. It returns the generation the
// message belongs to.
func (s *Session) append(msg model.ChatMessage, gen int) int {
	s.mu.Lock()
	if gen >= 0 && gen != s.generation {
		s.mu.Unlock()
		config.Debugf("[Session] dropping reply %s for a cleared session", msg.ID)
		return gen
	}
	s.messages = append(s.messages, msg)
	id := s.id
	current := s.generation
	s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.Record(id, msg); err != nil {
			config.Debugf("[Session] failed to record message: %v", err)
		}
	}
	s.events.publish(Event{Kind: EventMessageAppended, Message: msg})
	return current
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.events.publish(Event{Kind: EventLoadingChanged, Loading: v})
}

// stamp returns the current time, never earlier than the previous stamp.
func (s *Session) stamp() time.Time {
	t := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Before(s.lastStamp) {
		t = s.lastStamp
	}
	s.lastStamp = t
	return t
}

func (s *Session) publishError(err error) {
	s.events.publish(Event{Kind: EventError, Err: err})
}
