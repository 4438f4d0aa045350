// Package mailer delivers OTP emails.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/schoolhub/schoolhub/internal/pkg/mail"
)

const sendTimeout = 10 * time.Second

// Mailer renders and sends authentication emails over the configured mail
// provider.
type Mailer struct {
	client mail.Mail
	from   string
}

func NewMailer(client mail.Mail, from string) *Mailer {
	return &Mailer{client: client, from: from}
}

func (m *Mailer) SendOtp(ctx context.Context, email, code string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	minutes := int(ttl.Minutes())

	return m.client.Send(ctx, mail.Message{
		From:    m.from,
		To:      []string{email},
		Subject: "Your verification code",
		TextBody: fmt.Sprintf(
			"Your verification code is %s. It expires in %d minutes.\n\nIf you did not request this code, you can ignore this email.",
			code, minutes,
		),
		HTMLBody: fmt.Sprintf(
			`<p>Your verification code is:</p><p style="font-size:24px;font-weight:bold;letter-spacing:4px">%s</p><p>It expires in %d minutes.</p><p>If you did not request this code, you can ignore this email.</p>`,
			code, minutes,
		),
	})
}
