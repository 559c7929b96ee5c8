package notification

import (
	"context"
	"errors"
)

var ErrDeliveryFailed = errors.New("email delivery failed")

type Message struct {
	ToEmail   string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
	Provider() string
}
