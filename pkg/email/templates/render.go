package templates

import (
	"context"
	"strings"

	"github.com/a-h/templ"
)

// NotificationData fills the notification email layout.
type NotificationData struct {
	UserName string
	Title    string
	Body     string
	Type     string
}

func greeting(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

// Render renders a component into a string.
func Render(ctx context.Context, tpl templ.Component) (string, error) {
	var sb strings.Builder
	if err := tpl.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
