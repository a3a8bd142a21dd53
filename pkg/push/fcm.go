package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	fcmScope           = "https://www.googleapis.com/auth/firebase.messaging"
	defaultFCMEndpoint = "https://fcm.googleapis.com"
)

// FCMProvider sends through the Firebase Cloud Messaging HTTP v1 API,
// authenticating with a service account.
type FCMProvider struct {
	client    *http.Client
	endpoint  string
	projectID string
}

// FCMOption configures an FCMProvider.
type FCMOption func(*FCMProvider)

// WithFCMEndpoint overrides the API base URL.
func WithFCMEndpoint(endpoint string) FCMOption {
	return func(p *FCMProvider) {
		if endpoint != "" {
			p.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithFCMTimeout sets the per-request timeout.
func WithFCMTimeout(d time.Duration) FCMOption {
	return func(p *FCMProvider) {
		if d > 0 {
			p.client.Timeout = d
		}
	}
}

// NewFCMProvider builds a provider from a service account JSON key.
// The project id is read from the key.
func NewFCMProvider(ctx context.Context, credentialsJSON []byte, opts ...FCMOption) (*FCMProvider, error) {
	if len(credentialsJSON) == 0 {
		return nil, ErrMissingCredentials
	}

	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, fcmScope)
	if err != nil {
		return nil, errors.Join(ErrMissingCredentials, err)
	}
	if creds.ProjectID == "" {
		return nil, fmt.Errorf("%w: service account has no project_id", ErrMissingCredentials)
	}

	return NewFCMProviderWithClient(oauth2.NewClient(ctx, creds.TokenSource), creds.ProjectID, opts...), nil
}

// NewFCMProviderFromFile reads the service account key from path.
func NewFCMProviderFromFile(ctx context.Context, path string, opts ...FCMOption) (*FCMProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrMissingCredentials, err)
	}
	return NewFCMProvider(ctx, data, opts...)
}

// NewFCMProviderWithClient uses an already authorized client.
func NewFCMProviderWithClient(client *http.Client, projectID string, opts ...FCMOption) *FCMProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	p := &FCMProvider{
		client:    client,
		endpoint:  defaultFCMEndpoint,
		projectID: projectID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *FCMProvider) Name() string { return "fcm" }

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      fcmAndroid        `json:"android"`
	APNS         fcmAPNS           `json:"apns"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority     string                 `json:"priority"`
	Notification fcmAndroidNotification `json:"notification"`
}

type fcmAndroidNotification struct {
	Sound     string `json:"sound"`
	ChannelID string `json:"channel_id"`
}

type fcmAPNS struct {
	Payload struct {
		APS struct {
			Sound string `json:"sound"`
			Badge int    `json:"badge"`
		} `json:"aps"`
	} `json:"payload"`
}

type fcmResponse struct {
	Name string `json:"name"`
}

type fcmErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type      string `json:"@type"`
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

func newFCMRequest(msg Message) fcmRequest {
	req := fcmRequest{Message: fcmMessage{
		Token:        msg.Token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
		Android: fcmAndroid{
			Priority:     "high",
			Notification: fcmAndroidNotification{Sound: "default", ChannelID: "default"},
		},
	}}
	req.Message.APNS.Payload.APS.Sound = "default"
	req.Message.APNS.Payload.APS.Badge = 1
	return req
}

func (p *FCMProvider) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", ErrMissingToken
	}

	body, err := json.Marshal(newFCMRequest(msg))
	if err != nil {
		return "", fmt.Errorf("fcm: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", p.endpoint, p.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("fcm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fcm: send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("fcm: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fcmError(resp.StatusCode, raw)
	}

	var out fcmResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("fcm: decode response: %w", err)
	}
	return out.Name, nil
}

func fcmError(status int, raw []byte) error {
	pe := &ProviderError{Provider: "fcm", StatusCode: status, Message: http.StatusText(status)}

	var er fcmErrorResponse
	if json.Unmarshal(raw, &er) != nil {
		return pe
	}
	if er.Error.Message != "" {
		pe.Message = er.Error.Message
	}
	pe.Code = er.Error.Status
	for _, d := range er.Error.Details {
		if d.ErrorCode == "" {
			continue
		}
		pe.Code = d.ErrorCode
		if d.ErrorCode == "UNREGISTERED" || d.ErrorCode == "INVALID_ARGUMENT" {
			return errors.Join(ErrInvalidToken, pe)
		}
	}
	return pe
}
