package ports

import "context"

// MailMessage is a fully built email ready for any transport.
type MailMessage struct {
	To       string
	Subject  string
	Text     string
	HTML     string
	From     string
	FromName string
}

// MailDispatcher delivers a message through the first transport that accepts
// it. Deliver reports the transport name on success; an error means every
// configured transport failed (or none is configured) and the caller should
// degrade rather than fail the request.
type MailDispatcher interface {
	Deliver(ctx context.Context, msg MailMessage) (via string, err error)
}
