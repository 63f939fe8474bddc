package email

import "context"

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	BodyHTML string
	FromName string
}

// Client defines an interface for sending email through the delivery
// provider. Fire-and-forget from the caller's perspective: failures are
// logged by callers, never retried here.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
