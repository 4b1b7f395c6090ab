// Package mailer delivers transactional email.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/safar/go-sql-shop/internal/config"
	"github.com/wneessen/go-mail"
)

const resetSubject = "Password reset request"

type SMTPMailer struct {
	cfg  config.SMTPConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg}
	m.send = m.dialAndSend
	return m
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	msg, err := newResetMessage(m.cfg.From, to, token)
	if err != nil {
		return err
	}

	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}

	return client.DialAndSendWithContext(ctx, msg)
}

func newResetMessage(from, to, token string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(resetSubject)
	msg.SetBodyString(mail.TypeTextPlain, resetBody(token))
	return msg, nil
}

func resetBody(token string) string {
	return "You requested a password reset.\n\n" +
		"Your reset token is:\n" +
		token + "\n\n" +
		"If you did not ask for this, ignore this email.\n"
}

// LogMailer writes reset tokens to the log instead of sending them. It is
// used when SMTP is not configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendPasswordReset(_ context.Context, to, token string) error {
	m.Logger.Info("password reset requested", "to", to, "token", token)
	return nil
}
