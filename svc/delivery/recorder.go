package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/broadcast"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
)

// recorder writes channel transitions and announces them.
type recorder struct {
	store notifications.Storage
	options
}

// current loads the channel state a job is about to act on.
func (r *recorder) current(ctx context.Context, p Job) (notifications.ChannelState, error) {
	n, err := r.store.Get(ctx, p.NotificationID)
	if err != nil {
		return notifications.ChannelState{}, err
	}
	s, ok := n.Channel(p.Channel)
	if !ok {
		return notifications.ChannelState{}, fmt.Errorf("%w: %s", notifications.ErrUnknownChannel, p.Channel)
	}
	return s, nil
}

// update applies u and publishes the resulting snapshot. Publish errors are
// logged and dropped.
func (r *recorder) update(ctx context.Context, p Job, u notifications.ChannelUpdate) error {
	if err := r.store.UpdateChannel(ctx, p.NotificationID, p.Channel, u); err != nil {
		return err
	}

	n, err := r.store.Get(ctx, p.NotificationID)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "reload after channel update failed",
			logger.NotificationID(p.NotificationID),
			logger.Channel(p.Channel),
			logger.Error(err),
		)
		return nil
	}

	ev := ChannelUpdatedEvent{
		NotificationID: n.ID,
		Channel:        p.Channel,
		State:          n.Channels[p.Channel],
		OverallStatus:  n.OverallStatus(),
	}
	if err := r.publisher.Publish(ctx, broadcast.UserRoom(n.UserID), EventChannelUpdated, ev); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "publish channel update failed",
			logger.NotificationID(p.NotificationID),
			logger.Channel(p.Channel),
			logger.Event(EventChannelUpdated),
			logger.Error(err),
		)
	}
	return nil
}

// fail records a failed attempt: pending while the queue will retry, failed
// once it will not. The cause is returned so the queue sees the failure. A
// channel that is already finished is left alone and the job completes.
func (r *recorder) fail(ctx context.Context, job queue.Job, p Job, cause error, extra ...func(*notifications.ChannelUpdate)) error {
	status := notifications.StatusPending
	if job.IsFinalAttempt() {
		status = notifications.StatusFailed
	}

	recorded, err := r.recordFailure(ctx, job, p, status, cause, extra...)
	switch {
	case err != nil:
		return errors.Join(cause, err)
	case !recorded:
		return nil
	default:
		return cause
	}
}

// abandon records a failure no retry can fix and completes the job.
func (r *recorder) abandon(ctx context.Context, job queue.Job, p Job, cause error) error {
	if _, err := r.recordFailure(ctx, job, p, notifications.StatusFailed, cause); err != nil {
		return errors.Join(cause, err)
	}
	return nil
}

// recordFailure writes a failure status. recorded is false when the channel
// was already finished and nothing was written.
func (r *recorder) recordFailure(ctx context.Context, job queue.Job, p Job, status notifications.Status, cause error, extra ...func(*notifications.ChannelUpdate)) (recorded bool, err error) {
	u := notifications.ChannelUpdate{Status: status, Error: notifications.Ptr(cause.Error())}
	for _, fn := range extra {
		fn(&u)
	}

	if err := r.update(ctx, p, u); err != nil {
		if errors.Is(err, notifications.ErrInvalidTransition) {
			r.logger.LogAttrs(ctx, slog.LevelInfo, "channel already settled, failure not recorded",
				logger.NotificationID(p.NotificationID),
				logger.Channel(p.Channel),
				logger.JobID(job.ID),
				logger.Error(cause),
			)
			return false, nil
		}
		return false, err
	}

	level := slog.LevelWarn
	if status == notifications.StatusFailed {
		level = slog.LevelError
	}
	r.logger.LogAttrs(ctx, level, "delivery attempt failed",
		logger.NotificationID(p.NotificationID),
		logger.Channel(p.Channel),
		logger.Status(status),
		logger.JobID(job.ID),
		logger.Attempt(job.Attempt()),
		logger.Error(cause),
	)
	return true, nil
}

// begin moves the channel to sent right before a provider call and bumps the
// attempt counter. settled is true when the channel already left the path
// this job was meant to drive, in which case the job should complete quietly.
func (r *recorder) begin(ctx context.Context, job queue.Job, p Job, provider string) (settled bool, err error) {
	s, err := r.current(ctx, p)
	if err != nil {
		return false, err
	}

	now := r.now()
	err = r.update(ctx, p, notifications.ChannelUpdate{
		Status:     notifications.StatusSent,
		Attempts:   notifications.Ptr(s.Attempts + 1),
		Provider:   notifications.Ptr(provider),
		SentAt:     &now,
		ClearError: true,
	})
	if errors.Is(err, notifications.ErrInvalidTransition) {
		r.logger.LogAttrs(ctx, slog.LevelInfo, "channel already settled, skipping job",
			logger.NotificationID(p.NotificationID),
			logger.Channel(p.Channel),
			logger.Status(s.Status),
			logger.JobID(job.ID),
		)
		return true, nil
	}
	return false, err
}

// withRequestID restores the request id carried by the job.
func withRequestID(ctx context.Context, p Job) context.Context {
	if p.RequestID == "" {
		return ctx
	}
	return requestid.WithContext(ctx, p.RequestID)
}

// dropMissing stops retries once the notification itself is gone.
func (r *recorder) dropMissing(err error) error {
	if isMissing(err) {
		return queue.Permanent(err)
	}
	return err
}

// isMissing reports whether err means the notification itself is gone, which
// no retry can fix.
func isMissing(err error) bool {
	return errors.Is(err, notifications.ErrNotificationNotFound) || errors.Is(err, notifications.ErrUnknownChannel)
}
