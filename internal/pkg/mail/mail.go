package mail

import (
	"context"
	"io"
)

// Message is a provider-agnostic email payload. When both bodies are set the
// message is sent as multipart/alternative with the HTML part preferred by
// capable clients.
type Message struct {
	// From overrides the configured sender when non-empty.
	From string
	// To lists the recipients.
	To []string
	// Subject is the subject line.
	Subject string
	// TextBody is the plain-text body.
	TextBody string
	// HTMLBody is the optional HTML body.
	HTMLBody string
}

// Mail delivers email messages.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
