package session

import (
	"sync"

	"blac/model"
	"blac/speech"
)

type EventKind int

const (
	EventMessageAppended EventKind = iota
	EventLoadingChanged
	EventOptionsChanged
	EventStreamChunk
	EventError
	EventVoiceState
	EventDownloadProgress
	EventCleared
)

func (k EventKind) String() string {
	switch k {
	case EventMessageAppended:
		return "message"
	case EventLoadingChanged:
		return "loading"
	case EventOptionsChanged:
		return "options"
	case EventStreamChunk:
		return "chunk"
	case EventError:
		return "error"
	case EventVoiceState:
		return "voice"
	case EventDownloadProgress:
		return "download"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event is a state change published to subscribers. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind EventKind

	Message   model.ChatMessage   // EventMessageAppended
	Loading   bool                // EventLoadingChanged
	Options   model.ToggleOptions // EventOptionsChanged
	Chunk     string              // EventStreamChunk
	Err       error               // EventError, and a failed EventDownloadProgress
	Listening bool                // EventVoiceState
	Readiness speech.Readiness    // EventVoiceState, EventDownloadProgress
	SessionID string              // EventCleared
}

// subscriberBuffer bounds the stream chunks waiting for one subscriber.
// Other events are always queued.
const subscriberBuffer = 64

type broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

func newBroker() *broker {
	return &broker{subs: make(map[int]*subscriber)}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := newSubscriber()
	b.subs[id] = sub
	go sub.forward()

	var once sync.Once
	return sub.out, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			sub.close()
		})
	}
}

// publish never blocks. A subscriber that falls behind misses stream chunks
// but still receives every state change, in order.
func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		sub.push(ev)
	}
}

// subscriber queues events for one reader. A forwarding goroutine moves them
// from pending to out.
type subscriber struct {
	mu      sync.Mutex
	pending []Event
	chunks  int

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
	out  chan Event
}

func newSubscriber() *subscriber {
	return &subscriber{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
		out:  make(chan Event),
	}
}

func (s *subscriber) push(ev Event) {
	if ev.Kind == EventMessageAppended {
		ev.Message = detach(ev.Message)
	}

	s.mu.Lock()
	if ev.Kind == EventStreamChunk {
		if s.chunks >= subscriberBuffer {
			s.mu.Unlock()
			return
		}
		s.chunks++
	}
	s.pending = append(s.pending, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) next() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return Event{}, false
	}
	ev := s.pending[0]
	s.pending[0] = Event{}
	s.pending = s.pending[1:]
	if ev.Kind == EventStreamChunk {
		s.chunks--
	}
	return ev, true
}

func (s *subscriber) forward() {
	defer close(s.done)
	defer close(s.out)

	for {
		ev, ok := s.next()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.quit:
				return
			}
		}
		select {
		case s.out <- ev:
		case <-s.quit:
			return
		}
	}
}

// close stops forwarding and waits until out is closed.
func (s *subscriber) close() {
	close(s.quit)
	<-s.done
}
