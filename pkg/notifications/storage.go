package notifications

import (
	"context"
	"slices"
	"time"
)

// Storage persists notifications and their per-channel state.
type Storage interface {
	// Insert stores a new notification.
	Insert(ctx context.Context, n Notification) error

	// Get retrieves a notification by id.
	Get(ctx context.Context, id string) (*Notification, error)

	// UpdateChannel applies a targeted update to one channel and refreshes
	// UpdatedAt. Other channels are left untouched. Returns
	// ErrInvalidTransition when the update cannot be written over the
	// channel's current status (see ChannelUpdate.Sources).
	UpdateChannel(ctx context.Context, id string, ch Channel, u ChannelUpdate) error
}

// UserDirectory resolves recipients.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*User, error)
}

// ChannelUpdate is a partial ChannelState write. Nil fields are left as they
// are; Clear* flags remove the field.
type ChannelUpdate struct {
	Status      Status
	Attempts    *int
	Provider    *string
	SentAt      *time.Time
	DeliveredAt *time.Time
	ReadAt      *time.Time
	Error       *string
	MessageID   *string

	DeviceCount  *int
	SuccessCount *int
	FailureCount *int

	ClearError  bool
	ClearSentAt bool

	// Reset lets a move to pending leave any delivery status.
	Reset bool
}

// Sources returns the statuses u may be written over.
func (u ChannelUpdate) Sources() []Status {
	if u.Reset && u.Status == StatusPending {
		return slices.Clone(resettable)
	}
	return AllowedFrom(u.Status)
}

// Apply returns s with u applied.
func (s ChannelState) Apply(u ChannelUpdate) ChannelState {
	s.Status = u.Status
	if u.Attempts != nil {
		s.Attempts = *u.Attempts
	}
	if u.Provider != nil {
		s.Provider = *u.Provider
	}
	if u.SentAt != nil {
		s.SentAt = u.SentAt
	}
	if u.DeliveredAt != nil {
		s.DeliveredAt = u.DeliveredAt
	}
	if u.ReadAt != nil {
		s.ReadAt = u.ReadAt
	}
	if u.Error != nil {
		s.Error = *u.Error
	}
	if u.MessageID != nil {
		s.MessageID = *u.MessageID
	}
	if u.DeviceCount != nil {
		s.DeviceCount = *u.DeviceCount
	}
	if u.SuccessCount != nil {
		s.SuccessCount = *u.SuccessCount
	}
	if u.FailureCount != nil {
		s.FailureCount = *u.FailureCount
	}
	if u.ClearError {
		s.Error = ""
	}
	if u.ClearSentAt {
		s.SentAt = nil
	}
	return s
}

// Ptr returns a pointer to v. Handy for building a ChannelUpdate.
func Ptr[T any](v T) *T {
	return &v
}

// ResetUpdate puts a channel back to pending for another round of delivery,
// whatever its current status.
func ResetUpdate() ChannelUpdate {
	return ChannelUpdate{Status: StatusPending, ClearError: true, ClearSentAt: true, Reset: true}
}

// ReadUpdate marks the in-app channel as read.
func ReadUpdate(at time.Time) ChannelUpdate {
	return ChannelUpdate{Status: StatusRead, ReadAt: &at}
}
