package dispatch

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/binder"
	"github.com/dmitrymomot/notifykit/handler"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
)

type notificationRequest struct {
	ID string `path:"id"`
}

type resendRequest struct {
	ID       string                  `path:"id"`
	Channels []notifications.Channel `query:"channel"`
}

type createResponse struct {
	Notification *View      `json:"notification"`
	Jobs         []QueuedJob `json:"jobs"`
}

// Router exposes the dispatcher over HTTP.
type Router struct {
	d      *Dispatcher
	log    *slog.Logger
	checks []httpserver.Check
}

// NewRouter builds the HTTP surface. Readiness checks are served on
// /health/ready.
func NewRouter(d *Dispatcher, log *slog.Logger, checks ...httpserver.Check) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{d: d, log: log, checks: checks}
}

// Handler returns the chi mux with all routes mounted.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)

	errs := handler.NewErrorHandler(rt.log)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(rt.log, rt.checks...))

	r.Post("/notifications", handler.Wrap(rt.create,
		handler.WithBinders[Input](binder.BindJSON()),
		handler.WithErrorHandler[Input](errs),
	))
	r.Get("/notifications/{id}", handler.Wrap(rt.get,
		handler.WithBinders[notificationRequest](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[notificationRequest](errs),
	))
	r.Post("/notifications/{id}/resend", handler.Wrap(rt.resend,
		handler.WithBinders[resendRequest](binder.Path(chi.URLParam), binder.BindQuery()),
		handler.WithErrorHandler[resendRequest](errs),
	))
	r.Patch("/notifications/{id}/read", handler.Wrap(rt.markRead,
		handler.WithBinders[notificationRequest](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[notificationRequest](errs),
	))
	r.Get("/stats/queues", handler.Wrap(rt.queueStats,
		handler.WithErrorHandler[struct{}](errs),
	))

	return r
}

func (rt *Router) create(ctx handler.Context, in Input) handler.Response {
	res, err := rt.d.CreateAndDispatch(ctx, in)
	if err != nil {
		return handler.JSONError(apiError(err))
	}

	view, err := rt.d.Get(ctx, res.NotificationID)
	if err != nil {
		return handler.JSONError(apiError(err))
	}

	opts := []handler.JSONOption{handler.WithJSONStatus(http.StatusCreated)}
	if res.QueueErr != nil {
		opts = append(opts, handler.WithJSONMeta(map[string]any{"warning": res.QueueErr.Error()}))
	}
	return handler.JSON(createResponse{Notification: view, Jobs: res.Jobs}, opts...)
}

func (rt *Router) get(ctx handler.Context, req notificationRequest) handler.Response {
	view, err := rt.d.Get(ctx, req.ID)
	if err != nil {
		return handler.JSONError(apiError(err))
	}
	return handler.JSON(view)
}

func (rt *Router) resend(ctx handler.Context, req resendRequest) handler.Response {
	res, err := rt.d.Resend(ctx, req.ID, req.Channels...)
	if err != nil {
		return handler.JSONError(apiError(err))
	}

	var opts []handler.JSONOption
	if res.QueueErr != nil {
		opts = append(opts, handler.WithJSONMeta(map[string]any{"warning": res.QueueErr.Error()}))
	}
	return handler.JSON(res, opts...)
}

func (rt *Router) markRead(ctx handler.Context, req notificationRequest) handler.Response {
	if err := rt.d.MarkRead(ctx, req.ID); err != nil {
		return handler.JSONError(apiError(err))
	}
	view, err := rt.d.Get(ctx, req.ID)
	if err != nil {
		return handler.JSONError(apiError(err))
	}
	return handler.JSON(view)
}

func (rt *Router) queueStats(ctx handler.Context, _ struct{}) handler.Response {
	stats, err := rt.d.QueueStats(ctx)
	if err != nil {
		rt.log.LogAttrs(ctx, slog.LevelError, "queue stats failed", logger.Error(err))
		return handler.JSONError(handler.ErrServiceUnavailable)
	}
	return handler.JSON(stats)
}

// apiError maps domain errors onto HTTP errors.
func apiError(err error) error {
	if ve, ok := notifications.AsValidationErrors(err); ok {
		out := handler.ValidationError{}
		for _, e := range ve {
			out.Add(e.Field, e.Message)
		}
		return out
	}

	switch {
	case errors.Is(err, notifications.ErrNotificationNotFound):
		return errors.Join(handler.ErrNotFound, err)
	case errors.Is(err, ErrInvalidChannel), errors.Is(err, notifications.ErrUnknownChannel):
		return errors.Join(handler.ErrBadRequest, err)
	case errors.Is(err, notifications.ErrInvalidTransition):
		return errors.Join(handler.ErrConflict, err)
	default:
		return err
	}
}
