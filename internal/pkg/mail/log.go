package mail

import (
	"context"
	"log/slog"
)

// Log is a Mail implementation that writes messages to the application log
// instead of delivering them. It backs development setups without an SMTP
// server.
type Log struct{}

// NewLog constructs a log-only mail client.
func NewLog() *Log {
	return &Log{}
}

func (l *Log) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "mail delivered to log sink",
		"to", msg.To, "subject", msg.Subject, "body", msg.TextBody)

	return nil
}

func (l *Log) Close() error {
	return nil
}
