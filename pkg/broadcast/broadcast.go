package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Event is a single real-time update addressed to a room.
type Event struct {
	Room      string          `json:"room"`
	Name      string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Publisher delivers events to whoever listens on a room.
// Publishing is fire-and-forget: a returned error only reports that the
// event could not be handed off and must never affect the caller's state.
type Publisher interface {
	Publish(ctx context.Context, room, event string, payload any) error
}

// Subscriber receives events for one room.
// Implementations must be safe for concurrent use.
type Subscriber interface {
	// Events returns the receive channel. It is closed by Close or when the
	// subscription context ends.
	Events() <-chan Event

	// Close releases the subscription. It is idempotent.
	Close() error
}

// UserRoom is the room every notification event for a user is published to.
func UserRoom(userID string) string {
	return "user:" + userID
}

func newEvent(room, name string, payload any) (Event, error) {
	ev := Event{Room: room, Name: name, Timestamp: time.Now().UTC()}
	if payload == nil {
		return ev, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ev, ErrEncodeEvent{Event: name, Err: err}
	}
	ev.Payload = raw
	return ev, nil
}

type subscriber struct {
	room   string
	ch     chan Event
	closed bool
	onStop func()
	mu     sync.RWMutex
}

func newSubscriber(room string, bufferSize int) *subscriber {
	return &subscriber{
		room: room,
		ch:   make(chan Event, bufferSize),
	}
}

func (s *subscriber) Events() <-chan Event {
	return s.ch
}

func (s *subscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	close(s.ch)
	s.closed = true
	onStop := s.onStop
	s.mu.Unlock()

	if onStop != nil {
		onStop()
	}
	return nil
}

// send never blocks: a full buffer drops the event for this subscriber.
func (s *subscriber) send(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}
