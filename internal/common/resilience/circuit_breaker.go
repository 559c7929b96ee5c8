package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	commonerrors "github.com/AlibekovAA/examination-system/internal/common/errors"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
	"github.com/AlibekovAA/examination-system/internal/observability/metrics"
)

type CircuitBreaker struct {
	failures    atomic.Int32
	lastFailure atomic.Value
	threshold   int32
	timeout     time.Duration
	resetAfter  time.Duration
	name        string
	isFailure   func(error) bool
	log         *logger.Logger
}

type CircuitBreakerConfig struct {
	Threshold  int32
	Timeout    time.Duration
	ResetAfter time.Duration
	Name       string
	// IsFailure filters which errors count towards opening the circuit.
	// Business outcomes (not found, conflicts) should return false.
	IsFailure func(error) bool
	Logger    *logger.Logger
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	isFailure := config.IsFailure
	if isFailure == nil {
		isFailure = countsAsFailure
	}
	cb := &CircuitBreaker{
		threshold:  config.Threshold,
		timeout:    config.Timeout,
		resetAfter: config.ResetAfter,
		name:       config.Name,
		isFailure:  isFailure,
		log:        config.Logger,
	}
	cb.lastFailure.Store(time.Time{})
	return cb
}

func countsAsFailure(err error) bool {
	return !commonerrors.IsDomainError(err) && !errors.Is(err, context.Canceled)
}

func (cb *CircuitBreaker) IsOpen() bool {
	if cb.failures.Load() < cb.threshold {
		cb.setState(0)
		return false
	}

	lastFailure := cb.lastFailure.Load().(time.Time)
	if lastFailure.IsZero() {
		cb.setState(0)
		return false
	}

	if time.Since(lastFailure) > cb.resetAfter {
		cb.reset()
		cb.setState(0)
		return false
	}

	cb.setState(1)
	return true
}

func (cb *CircuitBreaker) setState(state float64) {
	if cb.name != "" {
		metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(state)
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.failures.Add(1)
	cb.lastFailure.Store(time.Now())
	if cb.name != "" {
		metrics.CircuitBreakerFailures.WithLabelValues(cb.name).Inc()
	}
	if cb.log != nil {
		cb.log.Warnf("circuit breaker [%s]: failure recorded", cb.name)
	}
}

func (cb *CircuitBreaker) reset() {
	cb.failures.Store(0)
	cb.lastFailure.Store(time.Time{})
}

// Call runs fn under the breaker timeout. While the circuit is open it fails
// with ErrCircuitOpen without invoking fn.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if cb.IsOpen() {
		if cb.log != nil {
			cb.log.Warnf("circuit breaker [%s]: circuit is open, rejecting request", cb.name)
		}
		return commonerrors.ErrCircuitOpen
	}

	callCtx, cancel := context.WithTimeout(ctx, cb.timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil {
		if cb.isFailure(err) {
			cb.recordFailure()
		}
		return err
	}

	cb.reset()
	return nil
}
