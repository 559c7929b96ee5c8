package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	cfg    SMTPConfig
	dialer Dialer
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return NewSMTPSenderWithDialer(cfg, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password))
}

func NewSMTPSenderWithDialer(cfg SMTPConfig, dialer Dialer) *SMTPSender {
	return &SMTPSender{cfg: cfg, dialer: dialer}
}

func (s *SMTPSender) Provider() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.FromEmail, s.cfg.FromName)
	m.SetAddressHeader("To", msg.ToEmail, msg.ToName)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.PlainText)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	// gomail has no context support; the dial keeps running if ctx expires first.
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		}
		return nil
	}
}
