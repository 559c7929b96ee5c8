package service

import (
	"net/http"

	commonerrors "github.com/AlibekovAA/examination-system/internal/common/errors"
)

var (
	ErrDuplicateUsername = commonerrors.NewDomainError(
		"DUPLICATE_USERNAME",
		commonerrors.CategoryConflict,
		http.StatusConflict,
		"Username is already registered!",
	)

	ErrDuplicateEmail = commonerrors.NewDomainError(
		"DUPLICATE_EMAIL",
		commonerrors.CategoryConflict,
		http.StatusConflict,
		"Email is already registered!",
	)

	ErrWeakCredential = commonerrors.NewDomainError(
		"WEAK_CREDENTIAL",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"password does not meet the policy",
	)

	ErrInvalidRole = commonerrors.NewDomainError(
		"INVALID_ROLE",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"Type must be Student or Instructor",
	)

	ErrValidation = commonerrors.ErrValidation

	ErrInvalidCredentials = commonerrors.NewDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"Email or Password is incorrect!",
	)

	ErrEmailNotConfirmed = commonerrors.NewDomainError(
		"EMAIL_NOT_CONFIRMED",
		commonerrors.CategoryForbidden,
		http.StatusForbidden,
		"Email is not confirmed. Please check your email.",
	)

	ErrUserNotFound = commonerrors.NewDomainError(
		"USER_NOT_FOUND",
		commonerrors.CategoryNotFound,
		http.StatusNotFound,
		"user not found",
	)

	ErrConfirmationFailed = commonerrors.NewDomainError(
		"CONFIRMATION_FAILED",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"Error confirming your email.",
	)

	ErrInvalidRefreshToken = commonerrors.NewDomainError(
		"INVALID_REFRESH_TOKEN",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"Invalid token",
	)

	ErrNotificationFailure = commonerrors.NewDomainError(
		"NOTIFICATION_FAILURE",
		commonerrors.CategoryExternal,
		http.StatusBadGateway,
		"failed to send confirmation email",
	)

	ErrPersistence = commonerrors.ErrPersistence

	ErrServiceUnavailable = commonerrors.ErrCircuitOpen
)
