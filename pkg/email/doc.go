// Package email sends notification emails.
//
// Every backend implements Sender, whose SendEmail returns the provider's
// message id:
//
//   - PostmarkSender delivers through Postmark with open and link tracking.
//   - DevSender writes each message as an HTML file plus a JSON metadata file.
//   - MockSender never leaves the process and can simulate latency and failures.
//
// New picks one of them from Config.
//
// Compose turns a notification into SendEmailParams: the subject is
// "[TYPE] title" and the body is the HTML layout from the templates
// subpackage, rendered as a templ.Component.
//
//	params, err := email.Compose(ctx, email.Content{
//		To:    user.Email,
//		Title: "Order shipped",
//		Body:  "Your order is on the way.",
//		Type:  "transactional",
//	})
//	if err != nil {
//		return err
//	}
//	id, err := sender.SendEmail(ctx, params)
//
// Errors wrap ErrInvalidParams, ErrInvalidConfig or ErrFailedToSendEmail and
// can be checked with errors.Is.
package email
