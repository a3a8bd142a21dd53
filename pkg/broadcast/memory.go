package broadcast

import (
	"context"
	"sync"
)

// MemoryPublisher fans events out to in-process subscribers grouped by room.
// Slow consumers lose events rather than blocking the publisher.
// All methods are safe for concurrent use.
type MemoryPublisher struct {
	rooms      map[string]map[*subscriber]struct{}
	bufferSize int
	closed     bool
	mu         sync.RWMutex
	cleanupWg  sync.WaitGroup
}

// NewMemoryPublisher creates a new in-memory publisher. Each subscriber gets
// a buffer of bufferSize events (at least 1).
func NewMemoryPublisher(bufferSize int) *MemoryPublisher {
	return &MemoryPublisher{
		rooms:      make(map[string]map[*subscriber]struct{}),
		bufferSize: max(bufferSize, 1),
	}
}

// Subscribe listens on room until ctx is cancelled or the subscriber is
// closed. On a closed publisher it returns an already closed subscriber.
func (p *MemoryPublisher) Subscribe(ctx context.Context, room string) Subscriber {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := newSubscriber(room, p.bufferSize)
	if p.closed {
		_ = sub.Close()
		return sub
	}

	if p.rooms[room] == nil {
		p.rooms[room] = make(map[*subscriber]struct{})
	}
	p.rooms[room][sub] = struct{}{}
	sub.onStop = func() { p.unsubscribe(sub) }

	if ctx.Done() != nil {
		p.cleanupWg.Add(1)
		go func() {
			defer p.cleanupWg.Done()
			<-ctx.Done()
			_ = sub.Close()
		}()
	}

	return sub
}

// Publish implements Publisher.
func (p *MemoryPublisher) Publish(ctx context.Context, room, event string, payload any) error {
	ev, err := newEvent(room, event, payload)
	if err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	for sub := range p.rooms[room] {
		sub.send(ev)
	}
	return nil
}

// SubscriberCount returns the number of listeners on room.
func (p *MemoryPublisher) SubscriberCount(room string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms[room])
}

// Close closes every subscriber. Safe to call multiple times.
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	var subs []*subscriber
	for _, room := range p.rooms {
		for sub := range room {
			subs = append(subs, sub)
		}
	}
	p.rooms = make(map[string]map[*subscriber]struct{})
	p.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return nil
}

func (p *MemoryPublisher) unsubscribe(sub *subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()

	room := p.rooms[sub.room]
	if room == nil {
		return
	}
	delete(room, sub)
	if len(room) == 0 {
		delete(p.rooms, sub.room)
	}
}
