package main

import (
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/mongo"
	"github.com/dmitrymomot/notifykit/pkg/push"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/svc/dispatch"
)

// Storage drivers.
const (
	driverMemory = "memory"
	driverMongo  = "mongo"
	driverRedis  = "redis"
)

type appConfig struct {
	// StoreDriver selects notification storage: mongo or memory.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"mongo"`
	// QueueDriver selects the job queue and event bus: redis or memory.
	QueueDriver string `env:"QUEUE_DRIVER" envDefault:"redis"`

	UseMockProviders bool `env:"USE_MOCK_PROVIDERS" envDefault:"true"`

	Log      logger.Config
	HTTP     httpserver.Config
	Mongo    mongo.Config
	Redis    redis.Config
	Queue    queue.Config
	Dispatch dispatch.Config
	Email    email.Config
	Push     push.Config
}
