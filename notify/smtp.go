package notify

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

var (
	ErrNotConfigured = errors.New("notify: smtp credentials not configured")
	ErrDelivery      = errors.New("notify: delivery failed")
)

// Transport delivers an HTML message to a list of recipients.
type Transport interface {
	Send(ctx context.Context, recipients []string, subject, htmlBody string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPTransport sends through an SMTP relay. gomail upgrades the connection
// with STARTTLS when the server offers it.
type SMTPTransport struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPTransport{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Configured reports whether credentials are set.
func (t *SMTPTransport) Configured() bool {
	return t.cfg.Host != "" && t.cfg.Username != "" && t.cfg.Password != ""
}

func (t *SMTPTransport) Send(ctx context.Context, recipients []string, subject, htmlBody string) error {
	if !t.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", t.cfg.From)
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := t.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: smtp %s:%d: %w", ErrDelivery, t.cfg.Host, t.cfg.Port, err)
	}
	return nil
}
