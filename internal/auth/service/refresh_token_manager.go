package service

import (
	"context"
	"errors"
	"time"

	"github.com/AlibekovAA/examination-system/internal/common/clock"
	"github.com/AlibekovAA/examination-system/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/examination-system/internal/common/crypto"
	"github.com/AlibekovAA/examination-system/internal/common/db"
	commonerrors "github.com/AlibekovAA/examination-system/internal/common/errors"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
	"github.com/AlibekovAA/examination-system/internal/common/resilience"
	userdomain "github.com/AlibekovAA/examination-system/internal/user/domain"
	userrepo "github.com/AlibekovAA/examination-system/internal/user/repository"
)

type RefreshTokenService interface {
	Rotate(ctx context.Context, user userdomain.User) (userdomain.RefreshToken, error)
	Exchange(ctx context.Context, token string) (userdomain.User, userdomain.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
}

type RefreshTokenManagerConfig struct {
	TTL       time.Duration
	Retention time.Duration
	Retry     db.RetryConfig
}

// RefreshTokenManager stores tokens inline on the user row and writes them
// with a version check, retrying when another request won the race.
type RefreshTokenManager struct {
	repo    userrepo.Repository
	breaker *resilience.CircuitBreaker
	tokens  commoncrypto.TokenSource
	clock   clock.Clock
	cfg     RefreshTokenManagerConfig
	log     *logger.Logger
}

func NewRefreshTokenManager(
	repo userrepo.Repository,
	breaker *resilience.CircuitBreaker,
	tokens commoncrypto.TokenSource,
	clock clock.Clock,
	cfg RefreshTokenManagerConfig,
	log *logger.Logger,
) *RefreshTokenManager {
	if cfg.TTL <= 0 {
		cfg.TTL = constants.DefaultRefreshTokenTTL
	}
	if cfg.Retention <= 0 {
		cfg.Retention = constants.DefaultRefreshTokenRetention
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = db.DefaultRetryConfig
		cfg.Retry.MaxAttempts = constants.RefreshTokenUpdateAttempts
	}
	cfg.Retry.Retryable = func(err error) bool {
		return errors.Is(err, userrepo.ErrVersionConflict)
	}

	return &RefreshTokenManager{
		repo:    repo,
		breaker: breaker,
		tokens:  tokens,
		clock:   clock,
		cfg:     cfg,
		log:     log,
	}
}

func (m *RefreshTokenManager) Generate() (userdomain.RefreshToken, error) {
	raw, err := m.tokens.Token(constants.RefreshTokenSize)
	if err != nil {
		return userdomain.RefreshToken{}, err
	}
	now := m.clock.Now()
	return userdomain.RefreshToken{
		Token:     raw,
		CreatedOn: now,
		ExpiredOn: now.Add(m.cfg.TTL),
	}, nil
}

// Rotate returns the user's active token or mints a new one. When a
// concurrent login already minted a token, that token is returned instead.
func (m *RefreshTokenManager) Rotate(ctx context.Context, user userdomain.User) (userdomain.RefreshToken, error) {
	var result userdomain.RefreshToken
	reused := false

	err := m.withRetry(ctx, user.ID, &user, func(current userdomain.User) (int64, error) {
		now := m.clock.Now()
		if active, ok := current.ActiveRefreshToken(now); ok {
			result = active
			reused = true
			return current.Version, nil
		}

		token, err := m.Generate()
		if err != nil {
			return 0, err
		}
		next := append(userdomain.PruneRefreshTokens(current.RefreshTokens, now, m.cfg.Retention), token)
		version, err := m.update(ctx, current.ID, current.Version, next)
		if err != nil {
			return 0, err
		}
		result = token
		return version, nil
	})
	if err != nil {
		return userdomain.RefreshToken{}, err
	}

	if reused {
		incrementRefreshTokensReused()
	} else {
		incrementRefreshTokensIssued()
		m.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "refresh_token_issued",
		}).Debug("refresh token issued")
	}
	return result, nil
}

// Exchange revokes an active token and mints its replacement in one write.
func (m *RefreshTokenManager) Exchange(ctx context.Context, token string) (userdomain.User, userdomain.RefreshToken, error) {
	user, err := m.findOwner(ctx, token)
	if err != nil {
		return userdomain.User{}, userdomain.RefreshToken{}, err
	}

	var minted userdomain.RefreshToken
	err = m.withRetry(ctx, user.ID, &user, func(current userdomain.User) (int64, error) {
		now := m.clock.Now()
		next, err := revokeIn(current, token, now)
		if err != nil {
			return 0, err
		}

		fresh, err := m.Generate()
		if err != nil {
			return 0, err
		}
		next = append(userdomain.PruneRefreshTokens(next, now, m.cfg.Retention), fresh)

		version, err := m.update(ctx, current.ID, current.Version, next)
		if err != nil {
			return 0, err
		}
		minted = fresh
		return version, nil
	})
	if err != nil {
		return userdomain.User{}, userdomain.RefreshToken{}, err
	}

	incrementRefreshTokensRevoked()
	incrementRefreshTokensIssued()
	return user, minted, nil
}

func (m *RefreshTokenManager) Revoke(ctx context.Context, token string) error {
	user, err := m.findOwner(ctx, token)
	if err != nil {
		return err
	}

	err = m.withRetry(ctx, user.ID, &user, func(current userdomain.User) (int64, error) {
		now := m.clock.Now()
		next, err := revokeIn(current, token, now)
		if err != nil {
			return 0, err
		}
		return m.update(ctx, current.ID, current.Version, userdomain.PruneRefreshTokens(next, now, m.cfg.Retention))
	})
	if err != nil {
		return err
	}

	incrementRefreshTokensRevoked()
	return nil
}

// Prune drops stale tokens of one user. Used by the cleanup loop.
func (m *RefreshTokenManager) Prune(ctx context.Context, user userdomain.User) (int, error) {
	removed := 0
	err := m.withRetry(ctx, user.ID, &user, func(current userdomain.User) (int64, error) {
		kept := userdomain.PruneRefreshTokens(current.RefreshTokens, m.clock.Now(), m.cfg.Retention)
		removed = len(current.RefreshTokens) - len(kept)
		if removed == 0 {
			return current.Version, nil
		}
		return m.update(ctx, current.ID, current.Version, kept)
	})
	return removed, err
}

// withRetry runs step against the freshest copy of the user. The first
// attempt uses *user as given; later attempts reload it after a version
// conflict. On success *user holds the state that was written.
func (m *RefreshTokenManager) withRetry(
	ctx context.Context,
	id userdomain.ID,
	user *userdomain.User,
	step func(current userdomain.User) (int64, error),
) error {
	err := db.RetryWithBackoff(ctx, m.log, m.cfg.Retry, func(attempt int) error {
		if attempt > 1 {
			incrementRefreshTokenConflicts()
			reloaded, err := m.load(ctx, id)
			if err != nil {
				return err
			}
			*user = reloaded
		}

		version, err := step(*user)
		if err != nil {
			return err
		}
		user.Version = version
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, userrepo.ErrVersionConflict) {
		m.log.WithFields(ctx, logger.Fields{
			"user_id": string(id),
			"action":  "refresh_token_conflict_exhausted",
		}).Warn("refresh token update gave up after repeated version conflicts")
		return commonerrors.ErrConcurrentUpdate.WithCause(err)
	}
	return m.mapRepoError(err)
}

func (m *RefreshTokenManager) findOwner(ctx context.Context, token string) (userdomain.User, error) {
	if token == "" {
		return userdomain.User{}, ErrInvalidRefreshToken
	}
	var user userdomain.User
	err := m.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		user, err = m.repo.FindByRefreshToken(ctx, token)
		return err
	})
	if err != nil {
		return userdomain.User{}, m.mapRepoError(err)
	}
	return user, nil
}

func (m *RefreshTokenManager) load(ctx context.Context, id userdomain.ID) (userdomain.User, error) {
	var user userdomain.User
	err := m.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		user, err = m.repo.FindByID(ctx, id)
		return err
	})
	return user, err
}

func (m *RefreshTokenManager) update(ctx context.Context, id userdomain.ID, version int64, tokens []userdomain.RefreshToken) (int64, error) {
	var next int64
	err := m.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		next, err = m.repo.UpdateRefreshTokens(ctx, id, version, tokens)
		return err
	})
	return next, err
}

func (m *RefreshTokenManager) mapRepoError(err error) error {
	switch {
	case errors.Is(err, userrepo.ErrUserNotFound):
		return ErrInvalidRefreshToken
	case errors.Is(err, commonerrors.ErrCircuitOpen):
		return ErrServiceUnavailable.WithCause(err)
	default:
		return persistenceError(err)
	}
}

// revokeIn returns a copy of the user's tokens with token revoked at now.
func revokeIn(user userdomain.User, token string, now time.Time) ([]userdomain.RefreshToken, error) {
	idx, ok := user.FindRefreshToken(token)
	if !ok || !user.RefreshTokens[idx].IsActive(now) {
		return nil, ErrInvalidRefreshToken
	}
	next := make([]userdomain.RefreshToken, len(user.RefreshTokens))
	copy(next, user.RefreshTokens)
	revokedAt := now
	next[idx].RevokedOn = &revokedAt
	return next, nil
}
