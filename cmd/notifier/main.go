// Command notifier runs the notification API together with the push and
// email delivery workers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/broadcast"
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/mongo"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/push"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
	"github.com/dmitrymomot/notifykit/svc/delivery"
	"github.com/dmitrymomot/notifykit/svc/dispatch"
)

func main() {
	if err := run(); err != nil {
		slog.Error("notifier stopped", logger.Error(err))
		os.Exit(1)
	}
}

// queueBackend is everything the queue components need from storage.
type queueBackend interface {
	queue.EnqueuerRepository
	queue.WorkerRepository
	queue.StatsRepository
	queue.CleanerRepository
}

func run() error {
	cfg, err := config.Load[appConfig]()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.FromConfig(cfg.Log),
		logger.WithContextExtractors(requestid.LogExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var checks []httpserver.Check

	// Notification store and user directory.
	var (
		store notifications.Storage
		users notifications.UserDirectory
	)
	switch cfg.StoreDriver {
	case driverMongo:
		client, err := mongo.New(ctx, cfg.Mongo, log)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		db := client.Database(cfg.Mongo.Database)
		ms := notifications.NewMongoStorage(db)
		if err := ms.EnsureIndexes(ctx); err != nil {
			return err
		}
		store, users = ms, notifications.NewMongoUserDirectory(db)
		checks = append(checks, httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(client)})
	case driverMemory:
		store, users = notifications.NewMemoryStorage(), notifications.NewMemoryUserDirectory()
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	// Job queue and event bus.
	var (
		backend   queueBackend
		publisher broadcast.Publisher
	)
	switch cfg.QueueDriver {
	case driverRedis:
		client, err := redis.Connect(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		rs, err := queue.NewRedisStorage(client, queue.WithKeyPrefix(cfg.Queue.RedisKeyPrefix))
		if err != nil {
			return err
		}
		backend = rs
		publisher = broadcast.NewRedisPublisher(client, broadcast.WithRedisLogger(log))
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
	case driverMemory:
		ms := queue.NewMemoryStorage()
		defer func() { _ = ms.Close() }()
		mp := broadcast.NewMemoryPublisher(64)
		defer func() { _ = mp.Close() }()
		backend, publisher = ms, mp
	default:
		return fmt.Errorf("unknown QUEUE_DRIVER %q", cfg.QueueDriver)
	}

	// Providers.
	pushProvider, err := push.New(ctx, cfg.Push, cfg.UseMockProviders)
	if err != nil {
		return err
	}
	sender, err := email.New(cfg.Email, cfg.UseMockProviders)
	if err != nil {
		return err
	}

	enqueuer, err := queue.NewEnqueuer(backend,
		queue.WithDefaultRetryPolicy(cfg.Queue.MaxAttempts, cfg.Queue.BackoffDelay, cfg.Queue.BackoffMax),
	)
	if err != nil {
		return err
	}

	workerOpts := []delivery.Option{delivery.WithLogger(log), delivery.WithPublisher(publisher)}
	pushWorker, err := newWorker(backend, cfg.Queue, log, delivery.PushQueue,
		delivery.NewPushWorker(store, users, pushProvider, workerOpts...).Handler())
	if err != nil {
		return err
	}
	emailWorker, err := newWorker(backend, cfg.Queue, log, delivery.EmailQueue,
		delivery.NewEmailWorker(store, users, sender, workerOpts...).Handler())
	if err != nil {
		return err
	}

	cleaner, err := queue.NewCleaner(backend,
		queue.WithCleanerQueues(delivery.PushQueue, delivery.EmailQueue),
		queue.WithCleanInterval(cfg.Queue.CleanInterval),
		queue.WithRetention(cfg.Queue.CompletedRetention, cfg.Queue.FailedRetention),
		queue.WithCleanerLogger(log),
	)
	if err != nil {
		return err
	}

	dispatcher := dispatch.New(store, users, enqueuer, backend,
		dispatch.WithConfig(cfg.Dispatch),
		dispatch.WithLogger(log),
		dispatch.WithPublisher(publisher),
	)
	server := httpserver.NewFromConfig(cfg.HTTP,
		dispatch.NewRouter(dispatcher, log, checks...).Handler(),
		httpserver.WithLogger(log),
	)

	log.LogAttrs(ctx, slog.LevelInfo, "notifier starting",
		slog.String("store", cfg.StoreDriver),
		slog.String("queue", cfg.QueueDriver),
		slog.Bool("mock_providers", cfg.UseMockProviders),
		logger.Provider(pushProvider.Name()),
		slog.String("email_provider", sender.Name()),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(pushWorker.Run(ctx))
	g.Go(emailWorker.Run(ctx))
	g.Go(cleaner.Run(ctx))
	g.Go(server.Run(ctx))
	return g.Wait()
}

func newWorker(repo queue.WorkerRepository, cfg queue.Config, log *slog.Logger, queueName string, h queue.Handler) (*queue.Worker, error) {
	w, err := queue.NewWorker(repo,
		queue.WithQueues(queueName),
		queue.WithWorkerConfig(cfg),
		queue.WithWorkerLogger(log.With(logger.Queue(queueName))),
	)
	if err != nil {
		return nil, err
	}
	if err := w.RegisterHandler(h); err != nil {
		return nil, err
	}
	return w, nil
}
