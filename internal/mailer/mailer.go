// Package mailer delivers contact-form notification mail over SMTP.
package mailer

import (
	"fmt"
	"net/smtp"
)

// Mailer sends a single plain-text message. The contact service depends on
// this interface so tests can capture outgoing mail instead of hitting SMTP.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer is the production Mailer, sending via an authenticated
// STARTTLS-capable SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewSMTPMailer creates and returns a new SMTPMailer.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
	}
}

// Send delivers one message. smtp.SendMail negotiates STARTTLS with the relay
// when the server offers it.
func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s",
		m.From, to, subject, body)

	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// NoopMailer discards all mail. Used when sending is disabled in config.
type NoopMailer struct{}

func (NoopMailer) Send(to, subject, body string) error { return nil }
