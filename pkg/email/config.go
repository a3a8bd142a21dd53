package email

import "time"

// Config holds email delivery settings.
// Postmark tokens are optional so local runs can use DevSender or MockSender.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"notifications@example.com"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@example.com"`

	// DevOutputDir makes New return a DevSender when Postmark is not configured.
	DevOutputDir string `env:"EMAIL_DEV_OUTPUT_DIR"`

	MockMinLatency  time.Duration `env:"EMAIL_MOCK_MIN_LATENCY" envDefault:"0s"`
	MockMaxLatency  time.Duration `env:"EMAIL_MOCK_MAX_LATENCY" envDefault:"0s"`
	MockFailureRate float64       `env:"EMAIL_MOCK_FAILURE_RATE" envDefault:"0"`
}
