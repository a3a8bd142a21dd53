package notifications

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	notifications map[string]Notification
	mu            sync.RWMutex
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[string]Notification),
	}
}

func (s *MemoryStorage) Insert(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return errors.New("notification ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifications[n.ID]; ok {
		return fmt.Errorf("%w: %s", ErrNotificationExists, n.ID)
	}

	now := time.Now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}

	s.notifications[n.ID] = clone(n)
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}

	// Copy so callers cannot mutate stored state
	c := clone(n)
	return &c, nil
}

func (s *MemoryStorage) UpdateChannel(ctx context.Context, id string, ch Channel, u ChannelUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	current, ok := n.Channels[ch]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
	}
	if !CanApply(current.Status, u) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, ch, current.Status, u.Status)
	}

	n.Channels[ch] = current.Apply(u)
	n.UpdatedAt = time.Now()
	s.notifications[id] = n
	return nil
}

func clone(n Notification) Notification {
	n.Channels = maps.Clone(n.Channels)
	n.Metadata = maps.Clone(n.Metadata)
	return n
}

// MemoryUserDirectory is a fixed set of users for development and tests.
type MemoryUserDirectory struct {
	users map[string]User
	mu    sync.RWMutex
}

// NewMemoryUserDirectory creates a directory seeded with users.
func NewMemoryUserDirectory(users ...User) *MemoryUserDirectory {
	d := &MemoryUserDirectory{users: make(map[string]User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// Put adds or replaces a user.
func (d *MemoryUserDirectory) Put(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *MemoryUserDirectory) GetUser(ctx context.Context, id string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}
