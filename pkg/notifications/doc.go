// Package notifications holds the notification domain model: per-channel
// delivery state, the rules for moving between states, and the reconciler
// that derives an overall status from channel outcomes.
//
// A Notification carries one ChannelState per channel (push, email, inApp).
// Push and email move through pending, sent, delivered, failed and skipped;
// inApp moves from unread to read. CanTransition encodes the allowed moves:
// forward through a delivery attempt, back to pending from pending or sent on
// retry. Only ResetUpdate returns a finished channel to pending.
//
// Storage implementations apply targeted per-channel updates so workers for
// different channels never overwrite each other:
//
//	store := notifications.NewMongoStorage(db)
//	err := store.UpdateChannel(ctx, id, notifications.ChannelPush, notifications.ChannelUpdate{
//		Status:   notifications.StatusSent,
//		Attempts: notifications.Ptr(job.Attempt()),
//		SentAt:   &now,
//	})
//
// OverallStatusOf is a pure function of the channel map:
//
//	delivered + failed -> partial
//	delivered          -> delivered
//	failed             -> failed
//	otherwise          -> pending
//
// MemoryStorage and MemoryUserDirectory are provided for tests and local
// development; MongoStorage and MongoUserDirectory for production.
package notifications
