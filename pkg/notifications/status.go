package notifications

import "slices"

// OverallStatus summarises delivery across channels. It is always derived,
// never stored.
type OverallStatus string

const (
	OverallPending   OverallStatus = "pending"
	OverallDelivered OverallStatus = "delivered"
	OverallFailed    OverallStatus = "failed"
	OverallPartial   OverallStatus = "partial"
)

// OverallStatusOf reconciles per-channel outcomes. Only delivery channels
// count; the in-app read state is not a delivery outcome.
func OverallStatusOf(channels map[Channel]ChannelState) OverallStatus {
	var delivered, failed bool
	for _, ch := range DeliveryChannels {
		s, ok := channels[ch]
		if !ok {
			continue
		}
		switch s.Status {
		case StatusDelivered:
			delivered = true
		case StatusFailed:
			failed = true
		}
	}

	switch {
	case delivered && failed:
		return OverallPartial
	case delivered:
		return OverallDelivered
	case failed:
		return OverallFailed
	default:
		return OverallPending
	}
}

// transitions lists, for each target status, the statuses it may be entered
// from. Only an unfinished channel goes back to pending here; finished ones
// return to pending through a reset.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPending, StatusSent},
	StatusSent:      {StatusPending, StatusSent},
	StatusDelivered: {StatusSent},
	StatusFailed:    {StatusPending, StatusSent},
	StatusSkipped:   {StatusPending},
	StatusRead:      {StatusUnread, StatusRead},
}

// resettable lists the delivery statuses a reset may leave.
var resettable = []Status{StatusPending, StatusSent, StatusDelivered, StatusFailed, StatusSkipped}

// AllowedFrom returns the statuses from which to can be entered.
func AllowedFrom(to Status) []Status {
	return slices.Clone(transitions[to])
}

// CanTransition reports whether a channel may move from one status to another.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[to], from)
}

// CanApply reports whether u may be written over a channel in status from.
func CanApply(from Status, u ChannelUpdate) bool {
	return slices.Contains(u.Sources(), from)
}
