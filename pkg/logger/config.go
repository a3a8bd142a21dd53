package logger

// Config is the environment-driven logger setup.
type Config struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Level   string `env:"LOG_LEVEL" envDefault:""`
	Format  string `env:"LOG_FORMAT" envDefault:""`
	Service string `env:"SERVICE_NAME" envDefault:"notifykit"`
}
