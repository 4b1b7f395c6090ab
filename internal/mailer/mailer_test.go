package mailer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/safar/go-sql-shop/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestSendPasswordResetComposesMessage(t *testing.T) {
	t.Parallel()

	m := NewSMTPMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "shop@example.com"})

	var sent *mail.Msg
	m.send = func(_ context.Context, msg *mail.Msg) error {
		sent = msg
		return nil
	}

	require.NoError(t, m.SendPasswordReset(context.Background(), "user@example.com", "reset-123"))
	require.NotNil(t, sent)

	var buf bytes.Buffer
	_, err := sent.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "user@example.com")
	assert.Contains(t, raw, "shop@example.com")
	assert.Contains(t, raw, resetSubject)
	assert.Contains(t, raw, "reset-123")
}

func TestSendPasswordResetRejectsBadAddress(t *testing.T) {
	t.Parallel()

	m := NewSMTPMailer(config.SMTPConfig{From: "shop@example.com"})
	m.send = func(context.Context, *mail.Msg) error {
		t.Fatal("send must not be called")
		return nil
	}

	require.Error(t, m.SendPasswordReset(context.Background(), "not an address", "tok"))
}

func TestSendPasswordResetWrapsSendError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	m := NewSMTPMailer(config.SMTPConfig{From: "shop@example.com"})
	m.send = func(context.Context, *mail.Msg) error { return boom }

	require.ErrorIs(t, m.SendPasswordReset(context.Background(), "user@example.com", "tok"), boom)
}

func TestLogMailer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	m := LogMailer{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	require.NoError(t, m.SendPasswordReset(context.Background(), "user@example.com", "tok-1"))
	assert.True(t, strings.Contains(buf.String(), "tok-1"))
}
