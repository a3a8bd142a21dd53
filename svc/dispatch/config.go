package dispatch

// Config holds dispatcher settings.
type Config struct {
	// Unconditional enqueues push and email even when the recipient has no
	// device or address. Meant for mock providers.
	Unconditional bool `env:"DISPATCH_UNCONDITIONAL" envDefault:"false"`

	PushProvider  string `env:"DISPATCH_PUSH_PROVIDER" envDefault:"fcm"`
	EmailProvider string `env:"DISPATCH_EMAIL_PROVIDER" envDefault:"postmark"`
}
