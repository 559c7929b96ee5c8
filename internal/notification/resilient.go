package notification

import (
	"context"

	"github.com/AlibekovAA/examination-system/internal/common/logger"
	"github.com/AlibekovAA/examination-system/internal/common/resilience"
	"github.com/AlibekovAA/examination-system/internal/observability/metrics"
)

// ResilientSender guards a provider with a circuit breaker and records
// delivery metrics. It never retries.
type ResilientSender struct {
	next    Sender
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

func NewResilientSender(next Sender, breaker *resilience.CircuitBreaker, log *logger.Logger) *ResilientSender {
	return &ResilientSender{next: next, breaker: breaker, log: log}
}

func (s *ResilientSender) Provider() string { return s.next.Provider() }

func (s *ResilientSender) Send(ctx context.Context, msg Message) error {
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		return s.next.Send(ctx, msg)
	})
	if err != nil {
		metrics.ConfirmationEmailsSent.WithLabelValues(s.next.Provider(), "failed").Inc()
		s.log.WithFields(ctx, logger.Fields{
			"provider": s.next.Provider(),
			"action":   "email_send_failed",
		}).Errorf("email delivery failed: %v", err)
		return err
	}

	metrics.ConfirmationEmailsSent.WithLabelValues(s.next.Provider(), "sent").Inc()
	s.log.WithFields(ctx, logger.Fields{
		"provider": s.next.Provider(),
		"action":   "email_sent",
	}).Debug("email delivered")
	return nil
}
