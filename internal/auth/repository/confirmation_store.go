package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AlibekovAA/examination-system/internal/observability/metrics"
)

var ErrConfirmationNotFound = errors.New("confirmation record not found")

const confirmationKeyPrefix = "email_confirmation:"

// RedisConfirmationStore keeps one pending confirmation hash per user. Saving
// again replaces the previous code.
type RedisConfirmationStore struct {
	client redis.Cmdable
}

func NewRedisConfirmationStore(client redis.Cmdable) *RedisConfirmationStore {
	return &RedisConfirmationStore{client: client}
}

func (s *RedisConfirmationStore) Save(ctx context.Context, userID string, tokenHash string, ttl time.Duration) error {
	start := time.Now()
	err := s.client.Set(ctx, confirmationKey(userID), tokenHash, ttl).Err()
	observe("set_confirmation", start, err)
	if err != nil {
		return fmt.Errorf("failed to save confirmation: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes the pending hash, so a code can be used once.
func (s *RedisConfirmationStore) Consume(ctx context.Context, userID string) (string, error) {
	start := time.Now()
	hash, err := s.client.GetDel(ctx, confirmationKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		observe("consume_confirmation", start, nil)
		return "", ErrConfirmationNotFound
	}
	observe("consume_confirmation", start, err)
	if err != nil {
		return "", fmt.Errorf("failed to consume confirmation: %w", err)
	}
	return hash, nil
}

func confirmationKey(userID string) string {
	return confirmationKeyPrefix + userID
}

func observe(operation string, start time.Time, err error) {
	metrics.RedisCommandDurationSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RedisCommandErrors.WithLabelValues(operation).Inc()
	}
}
