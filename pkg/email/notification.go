package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/email/templates"
)

// Content is what a notification contributes to an email.
type Content struct {
	To       string
	UserName string
	Title    string
	Body     string
	Type     string
}

// Subject formats "[TYPE] title".
func Subject(notificationType, title string) string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(notificationType), title)
}

// Compose renders c into ready-to-send params. The notification type doubles
// as the Postmark tag.
func Compose(ctx context.Context, c Content) (SendEmailParams, error) {
	html, err := templates.Render(ctx, templates.Notification(templates.NotificationData{
		UserName: c.UserName,
		Title:    c.Title,
		Body:     c.Body,
		Type:     strings.ToLower(c.Type),
	}))
	if err != nil {
		return SendEmailParams{}, fmt.Errorf("email: render notification: %w", err)
	}

	return SendEmailParams{
		SendTo:   c.To,
		Subject:  Subject(c.Type, c.Title),
		BodyHTML: html,
		BodyText: c.Title + "\n\n" + c.Body,
		Tag:      strings.ToLower(c.Type),
	}, nil
}
