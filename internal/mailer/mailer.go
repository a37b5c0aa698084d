// Package mailer abstracts the outbound mail transport. The queue core only
// sees Send(message) -> error; the shipped implementation talks to AWS SES.
package mailer

import "context"

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a fully rendered email ready for the transport.
type Message struct {
	FromName    string
	FromAddress string
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers messages to the upstream provider. Implementations must
// honor ctx deadlines; the worker bounds every attempt with a timeout and
// treats expiry as a failed attempt.
// Mocking this interface in tests gives full control over transport behaviour
// without touching a real provider.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}
