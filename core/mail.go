package core

import "net/mail"

type (
	// EmailMessage is the payload handed to the notification sink. Sending is
	// fire-and-forget: sink failures are logged by the sink, never returned to
	// the workflow that triggered the notification.
	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Subject     string
		TextContent string
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently.
		SendMessages(messages ...*EmailMessage)
	}
)

func (m EmailMessage) HasRecipients() bool {
	return len(m.To) > 0 || len(m.Cc) > 0
}

func (m EmailMessage) HasContent() bool {
	return m.TextContent != ""
}
