package session

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blac/model"
)

type fakeAssistant struct {
	mu      sync.Mutex
	prompts []string
	opts    []model.ToggleOptions
	reply   func(prompt string) string
	chunks  []string
	gate    chan struct{} // when set, each call waits for a value
	entered chan struct{}
}

func (f *fakeAssistant) StreamMessage(ctx context.Context, prompt string, opts model.ToggleOptions, onChunk func(string)) string {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	for _, c := range f.chunks {
		onChunk(c)
	}
	if f.reply != nil {
		return f.reply(prompt)
	}
	return "ok"
}

func (f *fakeAssistant) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

type fakeExtractor struct {
	text string
	err  error
	got  [][]image.Image
}

func (f *fakeExtractor) ExtractTexts(_ context.Context, imgs []image.Image) (string, error) {
	f.got = append(f.got, imgs)
	return f.text, f.err
}

type memRecorder struct {
	mu   sync.Mutex
	rows map[string][]model.ChatMessage
}

func (r *memRecorder) Record(id string, msg model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows == nil {
		r.rows = make(map[string][]model.ChatMessage)
	}
	r.rows[id] = append(r.rows[id], msg)
	return nil
}

func newImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 2, 2))
}

// drain collects events until none arrive for a short while.
func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-time.After(100 * time.Millisecond):
			return out
		}
	}
}

func TestSendAppendsUserThenAssistant(t *testing.T) {
	fa := &fakeAssistant{reply: func(p string) string { return "echo: " + p }}
	s := New(fa)

	reply, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", reply.Content)
	assert.False(t, reply.IsUser)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsUser)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, reply.ID, msgs[1].ID)
	assert.False(t, s.Loading())
}

func TestTwoSendsProduceFourOrderedMessages(t *testing.T) {
	// A clock that runs backwards must not produce decreasing stamps.
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(2 * time.Second), base.Add(time.Second), base.Add(3 * time.Second)}
	var i int
	clock := func() time.Time {
		ts := ticks[i%len(ticks)]
		i++
		return ts
	}

	s := New(&fakeAssistant{}, WithClock(clock))
	_, err := s.Send(context.Background(), "one")
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "two")
	require.NoError(t, err)

	msgs := s.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, []bool{true, false, true, false},
		[]bool{msgs[0].IsUser, msgs[1].IsUser, msgs[2].IsUser, msgs[3].IsUser})

	ids := map[string]bool{}
	for k, m := range msgs {
		ids[m.ID] = true
		if k > 0 {
			assert.False(t, m.Timestamp.Before(msgs[k-1].Timestamp), "message %d is older than %d", k, k-1)
		}
	}
	assert.Len(t, ids, 4)
}

func TestTogglesReadAtSendTime(t *testing.T) {
	fa := &fakeAssistant{}
	s := New(fa)

	s.ToggleThinkMode()
	s.ToggleThinkMode()
	_, err := s.Send(context.Background(), "q")
	require.NoError(t, err)

	s.ToggleSearch()
	_, err = s.Send(context.Background(), "q")
	require.NoError(t, err)

	require.Len(t, fa.opts, 2)
	assert.Equal(t, model.ToggleOptions{}, fa.opts[0])
	assert.Equal(t, model.ToggleOptions{RealTimeSearch: true}, fa.opts[1])
}

func TestSendWithImagesSplicesExtractedText(t *testing.T) {
	fa := &fakeAssistant{}
	fx := &fakeExtractor{text: "--- Page 1 ---\nINVOICE 42"}
	s := New(fa, WithExtractor(fx))

	att := model.ImageAttachment{Source: "scan.png", Pixels: newImage()}
	noPixels := model.ImageAttachment{Source: "missing.png"}
	_, err := s.Send(context.Background(), "what is the total?", att, noPixels)
	require.NoError(t, err)

	require.Len(t, fx.got, 1)
	assert.Len(t, fx.got[0], 1)
	assert.Equal(t,
		"Extracted text from image(s):\n--- Page 1 ---\nINVOICE 42\n\nUser question: what is the total?",
		fa.calls()[0])

	msgs := s.Messages()
	require.Len(t, msgs[0].Attachments, 2)
}

func TestSendWithoutPixelsSkipsOCR(t *testing.T) {
	fa := &fakeAssistant{}
	fx := &fakeExtractor{text: "unused"}
	s := New(fa, WithExtractor(fx))

	_, err := s.Send(context.Background(), "hi", model.FileAttachment{Source: "a.pdf"})
	require.NoError(t, err)
	assert.Empty(t, fx.got)
	assert.Equal(t, "hi", fa.calls()[0])
}

func TestSendOCRFailureContinuesTextOnly(t *testing.T) {
	fa := &fakeAssistant{}
	s := New(fa, WithExtractor(&fakeExtractor{err: errors.New("engine crashed")}))
	events, cancel := s.Subscribe()
	defer cancel()

	_, err := s.Send(context.Background(), "read this", model.ImageAttachment{Pixels: newImage()})
	require.NoError(t, err)

	require.Len(t, fa.calls(), 1)
	assert.Equal(t, "read this", fa.calls()[0])
	assert.Len(t, s.Messages(), 2)

	var sawError bool
	for _, ev := range drain(events) {
		if ev.Kind == EventError {
			sawError = true
			assert.ErrorContains(t, ev.Err, "engine crashed")
		}
	}
	assert.True(t, sawError)
}

func TestSendWithoutExtractorPublishesError(t *testing.T) {
	fa := &fakeAssistant{}
	s := New(fa)
	events, cancel := s.Subscribe()
	defer cancel()

	_, err := s.Send(context.Background(), "x", model.ImageAttachment{Pixels: newImage()})
	require.NoError(t, err)

	var errs []error
	for _, ev := range drain(events) {
		if ev.Kind == EventError {
			errs = append(errs, ev.Err)
		}
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrOCRUnavailable)
}

func TestProcessImages(t *testing.T) {
	fa := &fakeAssistant{reply: func(string) string { return "summary" }}
	fx := &fakeExtractor{text: "--- Page 1 ---\na\n\n--- Page 2 ---\nb"}
	s := New(fa, WithExtractor(fx))

	reply, err := s.ProcessImages(context.Background(), []image.Image{newImage(), newImage()})
	require.NoError(t, err)
	assert.Equal(t, "summary", reply.Content)

	assert.Equal(t,
		"I have extracted the following text from multiple images:\n\n--- Page 1 ---\na\n\n--- Page 2 ---\nb\n\nPlease summarize or answer based on this content.",
		fa.calls()[0])

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].IsUser)
}

func TestProcessImagesErrors(t *testing.T) {
	fa := &fakeAssistant{}
	s := New(fa, WithExtractor(&fakeExtractor{err: errors.New("bad page")}))

	_, err := s.ProcessImages(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoImages)

	_, err = s.ProcessImages(context.Background(), []image.Image{newImage()})
	assert.ErrorContains(t, err, "bad page")
	assert.Empty(t, fa.calls())
	assert.Empty(t, s.Messages())
	assert.False(t, s.Loading())
}

func TestOverlappingSendRejected(t *testing.T) {
	fa := &fakeAssistant{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := New(fa)

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "first")
		done <- err
	}()
	<-fa.entered
	assert.True(t, s.Loading())

	_, err := s.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	fa.gate <- struct{}{}
	require.NoError(t, <-done)
	assert.Len(t, s.Messages(), 2)
	assert.False(t, s.Loading())
}

func TestOverlappingSendQueued(t *testing.T) {
	fa := &fakeAssistant{gate: make(chan struct{}), entered: make(chan struct{}, 2)}
	s := New(fa, WithSendPolicy(PolicyQueue))

	first := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "first")
		first <- err
	}()
	<-fa.entered

	second := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "second")
		second <- err
	}()

	// The queued send has not reached the assistant.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"first"}, fa.calls())

	fa.gate <- struct{}{}
	require.NoError(t, <-first)
	<-fa.entered
	fa.gate <- struct{}{}
	require.NoError(t, <-second)

	msgs := s.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[2].Content)
}

func TestQueuedSendHonorsContext(t *testing.T) {
	fa := &fakeAssistant{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := New(fa, WithSendPolicy(PolicyQueue))

	go s.Send(context.Background(), "first")
	<-fa.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Send(ctx, "second")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	fa.gate <- struct{}{}
}

func TestParseSendPolicy(t *testing.T) {
	assert.Equal(t, PolicyQueue, ParseSendPolicy(" Queue "))
	assert.Equal(t, PolicyReject, ParseSendPolicy("reject"))
	assert.Equal(t, PolicyReject, ParseSendPolicy("whatever"))
}

func TestCodeReplies(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		codeMode bool
		isCode   bool
		lang     string
	}{
		{"plain", "just text", false, false, ""},
		{"fenced", "Sure:\n```Kotlin\nfun main() {}\n```", false, true, "kotlin"},
		{"fence without language", "```\ndef f():\n  pass\n```", false, true, "python"},
		{"code mode without fence", "function f() {}", true, true, "javascript"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAssistant{reply: func(string) string { return tt.reply }}
			s := New(fa)
			if tt.codeMode {
				s.ToggleCodeMode()
			}
			reply, err := s.Send(context.Background(), "q")
			require.NoError(t, err)
			assert.Equal(t, tt.isCode, reply.IsCode)
			assert.Equal(t, tt.lang, reply.Language)
		})
	}
}

func TestEventsForOneTurn(t *testing.T) {
	fa := &fakeAssistant{chunks: []string{"he", "llo"}, reply: func(string) string { return "hello" }}
	s := New(fa)
	events, cancel := s.Subscribe()
	defer cancel()

	_, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)

	var kinds []EventKind
	for _, ev := range drain(events) {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{
		EventMessageAppended,
		EventLoadingChanged,
		EventStreamChunk,
		EventStreamChunk,
		EventMessageAppended,
		EventLoadingChanged,
	}, kinds)
}

func TestToggleEventsAndOptions(t *testing.T) {
	s := New(&fakeAssistant{})
	events, cancel := s.Subscribe()
	defer cancel()

	opts := s.ToggleCodeMode()
	assert.True(t, opts.CodeMode)
	assert.Equal(t, opts, s.Options())

	evs := drain(events)
	require.Len(t, evs, 1)
	assert.Equal(t, EventOptionsChanged, evs[0].Kind)
	assert.True(t, evs[0].Options.CodeMode)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := New(&fakeAssistant{})
	_, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer*2; i++ {
		s.ToggleSearch()
	}
	_, err := s.Send(context.Background(), "still works")
	require.NoError(t, err)
}

func TestLaggingSubscriberStillSeesTurnEnd(t *testing.T) {
	chunks := make([]string, 100)
	for i := range chunks {
		chunks[i] = "x"
	}
	s := New(&fakeAssistant{chunks: chunks, reply: func(string) string { return strings.Repeat("x", 100) }})
	events, cancel := s.Subscribe()
	defer cancel()

	_, err := s.Send(context.Background(), "long answer")
	require.NoError(t, err)
	require.False(t, s.Loading())

	var (
		nChunks     int
		loadingOff  bool
		assistantOK bool
	)
	for _, ev := range drain(events) {
		switch ev.Kind {
		case EventStreamChunk:
			nChunks++
		case EventLoadingChanged:
			loadingOff = !ev.Loading
		case EventMessageAppended:
			if !ev.Message.IsUser {
				assistantOK = true
			}
		}
	}
	assert.True(t, loadingOff, "last loading event must be false")
	assert.True(t, assistantOK, "assistant message must be delivered")
	assert.LessOrEqual(t, nChunks, subscriberBuffer)
}

func TestMessagesSnapshotOwnsAttachments(t *testing.T) {
	s := New(&fakeAssistant{})
	att := model.FileAttachment{Source: "notes.txt", Name: "notes.txt"}
	events, cancel := s.Subscribe()
	defer cancel()

	_, err := s.Send(context.Background(), "see file", att)
	require.NoError(t, err)

	snap := s.Messages()
	require.Len(t, snap[0].Attachments, 1)
	snap[0].Attachments[0] = model.FileAttachment{Source: "other.txt"}
	assert.Equal(t, "notes.txt", s.Messages()[0].Attachments[0].SourceRef())

	for _, ev := range drain(events) {
		if ev.Kind == EventMessageAppended && ev.Message.IsUser {
			ev.Message.Attachments[0] = model.FileAttachment{Source: "other.txt"}
		}
	}
	assert.Equal(t, "notes.txt", s.Messages()[0].Attachments[0].SourceRef())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := New(&fakeAssistant{})
	events, cancel := s.Subscribe()
	cancel()
	cancel()
	_, ok := <-events
	assert.False(t, ok)
	s.ToggleSearch()
}

func TestClear(t *testing.T) {
	rec := &memRecorder{}
	s := New(&fakeAssistant{}, WithRecorder(rec))
	firstID := s.ID()

	_, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)

	newID := s.Clear()
	assert.NotEqual(t, firstID, newID)
	assert.Equal(t, newID, s.ID())
	assert.Empty(t, s.Messages())

	_, err = s.Send(context.Background(), "again")
	require.NoError(t, err)

	assert.Len(t, rec.rows[firstID], 2)
	assert.Len(t, rec.rows[newID], 2)
}

func TestClearDropsReplyInFlight(t *testing.T) {
	fa := &fakeAssistant{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := New(fa)

	done := make(chan struct{})
	go func() {
		s.Send(context.Background(), "slow")
		close(done)
	}()
	<-fa.entered
	s.Clear()
	fa.gate <- struct{}{}
	<-done

	assert.Empty(t, s.Messages())
	assert.False(t, s.Loading())
}

func TestRecorderReceivesEveryMessage(t *testing.T) {
	rec := &memRecorder{}
	s := New(&fakeAssistant{reply: func(string) string { return strings.Repeat("a", 3) }}, WithRecorder(rec))

	_, err := s.Send(context.Background(), "q")
	require.NoError(t, err)

	rows := rec.rows[s.ID()]
	require.Len(t, rows, 2)
	assert.Equal(t, "q", rows[0].Content)
	assert.Equal(t, "aaa", rows[1].Content)
}
