package email

import "fmt"

// New picks a sender: the mock when useMocks is set, Postmark when a server
// token is configured, DevSender when an output directory is configured.
func New(cfg Config, useMocks bool) (Sender, error) {
	switch {
	case useMocks:
		return NewMockSender(
			WithMockLatency(cfg.MockMinLatency, cfg.MockMaxLatency),
			WithMockFailureRate(cfg.MockFailureRate),
		), nil
	case cfg.PostmarkServerToken != "":
		return NewPostmarkSender(cfg)
	case cfg.DevOutputDir != "":
		return NewDevSender(cfg.DevOutputDir), nil
	}
	return nil, fmt.Errorf("%w: set POSTMARK_SERVER_TOKEN or EMAIL_DEV_OUTPUT_DIR", ErrInvalidConfig)
}
