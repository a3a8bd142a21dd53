package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultExpoEndpoint = "https://exp.host/--/api/v2/push/send"

// ExpoProvider sends through the Expo push service.
type ExpoProvider struct {
	client      *http.Client
	endpoint    string
	accessToken string
}

// ExpoOption configures an ExpoProvider.
type ExpoOption func(*ExpoProvider)

// WithExpoEndpoint overrides the send URL.
func WithExpoEndpoint(endpoint string) ExpoOption {
	return func(p *ExpoProvider) {
		if endpoint != "" {
			p.endpoint = endpoint
		}
	}
}

// WithExpoAccessToken enables enhanced push security.
func WithExpoAccessToken(token string) ExpoOption {
	return func(p *ExpoProvider) {
		p.accessToken = token
	}
}

// WithExpoHTTPClient replaces the HTTP client.
func WithExpoHTTPClient(c *http.Client) ExpoOption {
	return func(p *ExpoProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// NewExpoProvider creates an Expo provider.
func NewExpoProvider(opts ...ExpoOption) *ExpoProvider {
	p := &ExpoProvider{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: defaultExpoEndpoint,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ExpoProvider) Name() string { return "expo" }

type expoMessage struct {
	To    string            `json:"to"`
	Sound string            `json:"sound"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type expoResponse struct {
	Data []struct {
		Status  string `json:"status"`
		ID      string `json:"id"`
		Message string `json:"message"`
		Details struct {
			Error string `json:"error"`
		} `json:"details"`
	} `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (p *ExpoProvider) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", ErrMissingToken
	}

	body, err := json.Marshal([]expoMessage{{
		To:    msg.Token,
		Sound: "default",
		Title: msg.Title,
		Body:  msg.Body,
		Data:  msg.Data,
	}})
	if err != nil {
		return "", fmt.Errorf("expo: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("expo: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if p.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.accessToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("expo: send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("expo: read response: %w", err)
	}

	var out expoResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &ProviderError{Provider: "expo", StatusCode: resp.StatusCode, Message: "unreadable response"}
	}

	if resp.StatusCode != http.StatusOK || len(out.Data) == 0 {
		pe := &ProviderError{Provider: "expo", StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if len(out.Errors) > 0 {
			pe.Code, pe.Message = out.Errors[0].Code, out.Errors[0].Message
		}
		return "", pe
	}

	ticket := out.Data[0]
	if ticket.Status == "ok" {
		return ticket.ID, nil
	}

	pe := &ProviderError{Provider: "expo", StatusCode: resp.StatusCode, Code: ticket.Details.Error, Message: ticket.Message}
	if ticket.Details.Error == "DeviceNotRegistered" {
		return "", errors.Join(ErrInvalidToken, pe)
	}
	return "", pe
}
