// Package push delivers single-device push notifications.
//
// Every backend implements Provider: Send takes one Message addressed to one
// device token and returns the backend's message id. Fan-out over a user's
// devices is the caller's job.
//
// Backends:
//
//   - FCMProvider talks to the Firebase Cloud Messaging HTTP v1 API using a
//     service account key and golang.org/x/oauth2/google.
//   - ExpoProvider talks to the Expo push service.
//   - MockProvider never leaves the process; it can add latency and fail a
//     share of sends, which is useful for local runs.
//
// Router picks Expo for Expo tokens (see IsExpoToken) and the default
// backend for everything else. ProviderName reports which backends a set of
// tokens ends up on.
//
// # Usage
//
//	fcm, err := push.NewFCMProviderFromFile(ctx, cfg.FCMCredentialsFile)
//	if err != nil {
//		return err
//	}
//	provider := push.Router{Default: fcm, Expo: push.NewExpoProvider()}
//	id, err := provider.Send(ctx, push.Message{Token: token, Title: "Hi", Body: "There"})
//
// Or build everything from Config:
//
//	provider, err := push.New(ctx, cfg, useMocks)
//
// # Errors
//
// ErrInvalidToken is joined into the returned error when the backend says the
// token is unknown or unregistered. Other rejections are *ProviderError.
package push
