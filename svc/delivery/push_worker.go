package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/push"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// PushWorker delivers push jobs to every device a user has registered.
type PushWorker struct {
	recorder
	users    notifications.UserDirectory
	provider push.Provider
}

// NewPushWorker creates a push worker.
func NewPushWorker(store notifications.Storage, users notifications.UserDirectory, provider push.Provider, opts ...Option) *PushWorker {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PushWorker{
		recorder: recorder{store: store, options: o},
		users:    users,
		provider: provider,
	}
}

// Handler registers the worker with a queue.Worker.
func (w *PushWorker) Handler() queue.Handler {
	return queue.NewNamedTaskHandler(PushTask, w.Handle)
}

// Handle processes one push job. An unknown recipient fails the channel for
// good; directory outages are retried.
func (w *PushWorker) Handle(ctx context.Context, job queue.Job, p Job) error {
	if p.Channel != notifications.ChannelPush {
		return queue.Permanent(fmt.Errorf("%w: %s", ErrUnexpectedChannel, p.Channel))
	}
	ctx = withRequestID(ctx, p)

	user, err := w.users.GetUser(ctx, p.UserID)
	if errors.Is(err, notifications.ErrUserNotFound) {
		return w.dropMissing(w.abandon(ctx, job, p, err))
	}
	if err != nil {
		return w.dropMissing(w.fail(ctx, job, p, err))
	}

	if !user.HasDevices() {
		err := w.update(ctx, p, notifications.ChannelUpdate{
			Status: notifications.StatusSkipped,
			Error:  notifications.Ptr(ErrNoDevices.Error()),
		})
		switch {
		case err == nil:
			w.logger.LogAttrs(ctx, slog.LevelInfo, "push skipped",
				logger.NotificationID(p.NotificationID),
				logger.UserID(p.UserID),
				logger.Error(ErrNoDevices),
			)
			return nil
		case errors.Is(err, notifications.ErrInvalidTransition), isMissing(err):
			return nil
		default:
			return err
		}
	}

	tokens := make([]string, 0, len(user.Devices))
	for _, d := range user.Devices {
		tokens = append(tokens, d.Token)
	}
	settled, err := w.begin(ctx, job, p, push.ProviderName(w.provider, tokens...))
	if err != nil {
		return w.dropMissing(err)
	}
	if settled {
		return nil
	}

	res := w.fanOut(ctx, p, user.Devices)

	if res.successes() > 0 {
		now := w.now()
		err := w.update(ctx, p, notifications.ChannelUpdate{
			Status:       notifications.StatusDelivered,
			DeliveredAt:  &now,
			MessageID:    notifications.Ptr(strings.Join(res.messageIDs, ", ")),
			DeviceCount:  notifications.Ptr(len(user.Devices)),
			SuccessCount: notifications.Ptr(res.successes()),
			FailureCount: notifications.Ptr(len(res.errs)),
		})
		if err != nil && !errors.Is(err, notifications.ErrInvalidTransition) {
			return w.dropMissing(err)
		}

		w.logger.LogAttrs(ctx, slog.LevelInfo, "push delivered",
			logger.NotificationID(p.NotificationID),
			logger.JobID(job.ID),
			slog.Int("devices", len(user.Devices)),
			slog.Int("succeeded", res.successes()),
			logger.Errors(res.errs...),
		)
		return nil
	}

	cause := fmt.Errorf("%w: %d device(s): %s", ErrAllDevicesFailed, len(user.Devices), res.summary())
	return w.fail(ctx, job, p, cause, func(u *notifications.ChannelUpdate) {
		u.DeviceCount = notifications.Ptr(len(user.Devices))
		u.SuccessCount = notifications.Ptr(0)
		u.FailureCount = notifications.Ptr(len(res.errs))
	})
}

type fanOutResult struct {
	mu         sync.Mutex
	messageIDs []string
	errs       []error
}

func (r *fanOutResult) successes() int { return len(r.messageIDs) }

func (r *fanOutResult) summary() string {
	parts := make([]string, 0, len(r.errs))
	for _, err := range r.errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, ", ")
}

// fanOut sends to all devices concurrently. Per-device failures are collected,
// never returned through the group, so one bad token cannot cancel the rest.
func (w *PushWorker) fanOut(ctx context.Context, p Job, devices []notifications.Device) *fanOutResult {
	res := &fanOutResult{}
	data := map[string]string{
		"type":           string(p.Type),
		"notificationId": p.NotificationID,
		"timestamp":      w.now().UTC().Format(time.RFC3339),
	}

	var g errgroup.Group
	g.SetLimit(w.fanOutLimit)
	for _, d := range devices {
		g.Go(func() error {
			id, err := w.provider.Send(ctx, push.Message{
				Token:    d.Token,
				Platform: d.Platform,
				Title:    p.Title,
				Body:     p.Body,
				Data:     data,
			})

			res.mu.Lock()
			defer res.mu.Unlock()
			if err != nil {
				res.errs = append(res.errs, fmt.Errorf("device %s: %w", d.DeviceID, err))
				return nil
			}
			res.messageIDs = append(res.messageIDs, id)
			return nil
		})
	}
	_ = g.Wait()
	return res
}
