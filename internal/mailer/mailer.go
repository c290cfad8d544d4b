// internal/mailer/mailer.go
package mailer

import (
	"fmt"

	"github.com/wneessen/go-mail"

	"pharmaguard-back/internal/config"
)

// Mailer sends transactional mail over SMTP.
type Mailer struct {
	client *mail.Client
	sender string
}

// New builds a Mailer from SMTP settings. Returns nil without error when
// SMTP is not configured; callers treat a nil Mailer as "dispatch disabled".
func New(cfg config.SMTPConfig) (*Mailer, error) {
	if !cfg.Configured() {
		return nil, nil
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return &Mailer{client: client, sender: cfg.Sender}, nil
}

// SendResetOTP mails a password-reset code to the given address.
func (m *Mailer) SendResetOTP(email, otp string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.sender); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(email); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}

	msg.Subject("Your password reset code")
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Your password reset code is: %s\n\n"+
			"This code will expire in 10 minutes.\n"+
			"If you did not request a password reset, please ignore this email.\n",
		otp,
	))

	if err := m.client.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}
