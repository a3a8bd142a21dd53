package push

import "time"

// Config holds push provider settings.
type Config struct {
	FCMCredentialsFile string        `env:"FCM_CREDENTIALS_FILE" envDefault:"./firebase-service-account.json"`
	FCMEndpoint        string        `env:"FCM_ENDPOINT" envDefault:"https://fcm.googleapis.com"`
	ExpoEndpoint       string        `env:"EXPO_PUSH_ENDPOINT" envDefault:"https://exp.host/--/api/v2/push/send"`
	ExpoAccessToken    string        `env:"EXPO_ACCESS_TOKEN"`
	Timeout            time.Duration `env:"PUSH_TIMEOUT" envDefault:"10s"`

	MockMinLatency  time.Duration `env:"PUSH_MOCK_MIN_LATENCY" envDefault:"0s"`
	MockMaxLatency  time.Duration `env:"PUSH_MOCK_MAX_LATENCY" envDefault:"0s"`
	MockFailureRate float64       `env:"PUSH_MOCK_FAILURE_RATE" envDefault:"0"`
}
