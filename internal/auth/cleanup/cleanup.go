package cleanup

import (
	"context"
	"time"

	"github.com/AlibekovAA/examination-system/internal/common/clock"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
	"github.com/AlibekovAA/examination-system/internal/observability/metrics"
	userdomain "github.com/AlibekovAA/examination-system/internal/user/domain"
)

const batchSize = 100

type StaleTokenLister interface {
	// ListWithStaleRefreshTokens returns up to limit users ordered by id,
	// starting after afterID. An empty afterID starts from the first user.
	ListWithStaleRefreshTokens(ctx context.Context, cutoff time.Time, afterID userdomain.ID, limit int) ([]userdomain.User, error)
}

type TokenPruner interface {
	Prune(ctx context.Context, user userdomain.User) (int, error)
}

type Config struct {
	Interval  time.Duration
	Retention time.Duration
}

// StartRefreshTokenCleanup blocks until ctx is done, pruning refresh tokens
// that have been inactive for longer than the retention window.
func StartRefreshTokenCleanup(
	ctx context.Context,
	lister StaleTokenLister,
	pruner TokenPruner,
	clk clock.Clock,
	log *logger.Logger,
	cfg Config,
) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := RunOnce(ctx, lister, pruner, clk, cfg.Retention)
			if err != nil {
				log.Errorf("refresh token cleanup failed: %v", err)
				continue
			}
			if removed > 0 {
				log.Infof("refresh token cleanup: pruned %d stale tokens", removed)
			}
		}
	}
}

// RunOnce walks every user holding stale refresh tokens in id order, one batch
// at a time, so a failing user never hides the ones after it. Failures are
// reported through the first returned error and retried on the next tick.
func RunOnce(
	ctx context.Context,
	lister StaleTokenLister,
	pruner TokenPruner,
	clk clock.Clock,
	retention time.Duration,
) (int, error) {
	cutoff := clk.Now().Add(-retention)

	total := 0
	var firstErr error
	var afterID userdomain.ID
	for {
		users, err := lister.ListWithStaleRefreshTokens(ctx, cutoff, afterID, batchSize)
		if err != nil {
			firstErr = err
			break
		}

		for _, user := range users {
			removed, err := pruner.Prune(ctx, user)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			total += removed
		}

		if len(users) < batchSize || ctx.Err() != nil {
			break
		}
		afterID = users[len(users)-1].ID
	}

	if total > 0 {
		metrics.RefreshTokensCleanupPruned.Add(float64(total))
	}
	return total, firstErr
}
