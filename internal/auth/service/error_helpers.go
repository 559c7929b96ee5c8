package service

import (
	"context"
	"errors"

	commonerrors "github.com/AlibekovAA/examination-system/internal/common/errors"
	userrepo "github.com/AlibekovAA/examination-system/internal/user/repository"
)

// persistenceError keeps domain errors and an open circuit as they are and
// wraps everything else as a persistence failure.
func persistenceError(err error) error {
	if commonerrors.IsDomainError(err) {
		return err
	}
	return ErrPersistence.WithCause(err)
}

// IsRepositoryFailure reports whether err should count against the user
// store circuit breaker. Lookups that miss and version conflicts are normal.
func IsRepositoryFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, userrepo.ErrUserNotFound),
		errors.Is(err, userrepo.ErrVersionConflict),
		errors.Is(err, userrepo.ErrUsernameAlreadyExists),
		errors.Is(err, userrepo.ErrEmailAlreadyExists),
		errors.Is(err, context.Canceled):
		return false
	default:
		return !commonerrors.IsDomainError(err)
	}
}
