// Package mailer delivers confirmation and password-reset mail over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/contactbook/contactbook-server/internal/model"
)

var _ model.Mailer = (*SMTP)(nil)

// SMTP sends account mail through a plain SMTP relay. Links embed the
// public base URL of the API so confirmation can happen with one click.
type SMTP struct {
	addr    string
	from    string
	baseURL string
	auth    smtp.Auth
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(host string, port int, username, password, from, baseURL string) *SMTP {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTP{
		addr:    fmt.Sprintf("%s:%d", host, port),
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		send:    smtp.SendMail,
	}
}

func (m *SMTP) SendConfirmation(ctx context.Context, email, username, token string) error {
	link := fmt.Sprintf("%s/api/auth/confirmed_email/%s", m.baseURL, token)
	body := fmt.Sprintf("Hello %s,\r\n\r\nConfirm your email address by opening the link below:\r\n%s\r\n", username, link)
	return m.deliver(ctx, email, "Confirm your email", body)
}

func (m *SMTP) SendPasswordReset(ctx context.Context, email, username, token string) error {
	link := fmt.Sprintf("%s/api/auth/confirm_password_reset/%s", m.baseURL, token)
	body := fmt.Sprintf("Hello %s,\r\n\r\nReset your password by opening the link below:\r\n%s\r\n\r\nIf you did not request this, ignore this message.\r\n", username, link)
	return m.deliver(ctx, email, "Reset your password", body)
}

func (m *SMTP) deliver(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.from, to, subject, body)

	if err := m.send(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
