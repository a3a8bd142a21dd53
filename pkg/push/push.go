package push

import (
	"context"
	"slices"
	"strings"
)

// Message is one push addressed to a single device token.
type Message struct {
	Token    string
	Platform string
	Title    string
	Body     string
	Data     map[string]string
}

// Provider delivers a push to one device and returns the provider's message id.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) (string, error)
}

// IsExpoToken reports whether token was issued by the Expo push service.
func IsExpoToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken") || strings.HasPrefix(token, "ExpoPushToken")
}

// Router sends Expo tokens through Expo and everything else through Default.
type Router struct {
	Default Provider
	Expo    Provider
}

// Name reports the default backend. Use NameFor to learn which backend a
// given token goes to.
func (r Router) Name() string {
	return r.Default.Name()
}

// NameFor reports the backend that Send uses for token.
func (r Router) NameFor(token string) string {
	return r.route(token).Name()
}

// Send implements Provider.
func (r Router) Send(ctx context.Context, msg Message) (string, error) {
	return r.route(msg.Token).Send(ctx, msg)
}

func (r Router) route(token string) Provider {
	if r.Expo != nil && IsExpoToken(token) {
		return r.Expo
	}
	return r.Default
}

// ProviderName names the backends p uses for tokens, in first-seen order
// joined with "+", e.g. "fcm+expo". Providers that do not route per token
// report Name.
func ProviderName(p Provider, tokens ...string) string {
	r, ok := p.(interface{ NameFor(token string) string })
	if !ok || len(tokens) == 0 {
		return p.Name()
	}

	var names []string
	for _, tok := range tokens {
		if n := r.NameFor(tok); !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	return strings.Join(names, "+")
}
