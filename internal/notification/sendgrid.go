package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridEndpoint = "/v3/mail/send"
	sendGridTimeout  = 10 * time.Second
)

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	// Host overrides the API base URL; empty means api.sendgrid.com.
	Host string
}

type SendGridSender struct {
	cfg    SendGridConfig
	client *rest.Client
}

func NewSendGridSender(cfg SendGridConfig) *SendGridSender {
	return &SendGridSender{
		cfg:    cfg,
		client: &rest.Client{HTTPClient: &http.Client{Timeout: sendGridTimeout}},
	}
}

func (s *SendGridSender) Provider() string { return "sendgrid" }

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromEmail)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	email := mail.NewSingleEmail(from, msg.Subject, to, msg.PlainText, msg.HTML)

	request := sendgrid.GetRequest(s.cfg.APIKey, sendGridEndpoint, s.cfg.Host)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(email)

	response, err := s.client.SendWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if response.StatusCode != http.StatusAccepted && response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, response.StatusCode, response.Body)
	}
	return nil
}
