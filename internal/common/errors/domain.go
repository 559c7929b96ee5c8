package commonerrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCategory string

const (
	CategoryValidation   ErrorCategory = "VALIDATION"
	CategoryNotFound     ErrorCategory = "NOT_FOUND"
	CategoryConflict     ErrorCategory = "CONFLICT"
	CategoryUnauthorized ErrorCategory = "UNAUTHORIZED"
	CategoryForbidden    ErrorCategory = "FORBIDDEN"
	CategoryInternal     ErrorCategory = "INTERNAL"
	CategoryExternal     ErrorCategory = "EXTERNAL"
)

type DomainError interface {
	error
	Code() string
	Category() ErrorCategory
	HTTPStatus() int
	Message() string
	Unwrap() error
	WithCause(cause error) DomainError
	WithMessage(message string) DomainError
}

type domainError struct {
	code     string
	category ErrorCategory
	status   int
	message  string
	cause    error
	root     *domainError
}

func (e *domainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *domainError) Code() string            { return e.code }
func (e *domainError) Category() ErrorCategory { return e.category }
func (e *domainError) HTTPStatus() int         { return e.status }
func (e *domainError) Message() string         { return e.message }
func (e *domainError) Unwrap() error           { return e.cause }

// Is matches derived errors (WithCause, WithMessage) against the sentinel they came from.
func (e *domainError) Is(target error) bool {
	t, ok := target.(*domainError)
	if !ok {
		return false
	}
	return e.origin() == t.origin()
}

func (e *domainError) origin() *domainError {
	if e.root != nil {
		return e.root
	}
	return e
}

func (e *domainError) WithCause(cause error) DomainError {
	return &domainError{
		code:     e.code,
		category: e.category,
		status:   e.status,
		message:  e.message,
		cause:    cause,
		root:     e.origin(),
	}
}

func (e *domainError) WithMessage(message string) DomainError {
	return &domainError{
		code:     e.code,
		category: e.category,
		status:   e.status,
		message:  message,
		cause:    e.cause,
		root:     e.origin(),
	}
}

func NewDomainError(code string, category ErrorCategory, status int, message string) DomainError {
	return &domainError{
		code:     code,
		category: category,
		status:   status,
		message:  message,
	}
}

func IsDomainError(err error) bool {
	var de DomainError
	return errors.As(err, &de)
}

func AsDomainError(err error) (DomainError, bool) {
	var de DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

var (
	ErrCircuitOpen = NewDomainError(
		"SERVICE_UNAVAILABLE",
		CategoryExternal,
		http.StatusServiceUnavailable,
		"service temporarily unavailable",
	)

	ErrInvalidToken = NewDomainError(
		"INVALID_TOKEN",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"token is not valid",
	)

	ErrInvalidTokenSigningMethod = NewDomainError(
		"INVALID_TOKEN_SIGNING_METHOD",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid token signing method",
	)

	ErrInvalidTokenClaims = NewDomainError(
		"INVALID_TOKEN_CLAIMS",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid token claims",
	)

	ErrMissingTokenClaims = NewDomainError(
		"MISSING_TOKEN_CLAIMS",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"missing required token claims",
	)

	ErrForbidden = NewDomainError(
		"FORBIDDEN",
		CategoryForbidden,
		http.StatusForbidden,
		"insufficient role",
	)

	ErrEmptyUUID = NewDomainError(
		"EMPTY_UUID",
		CategoryValidation,
		http.StatusBadRequest,
		"uuid cannot be empty",
	)

	ErrInvalidUUID = NewDomainError(
		"INVALID_UUID",
		CategoryValidation,
		http.StatusBadRequest,
		"invalid uuid",
	)

	ErrValidation = NewDomainError(
		"VALIDATION_FAILED",
		CategoryValidation,
		http.StatusBadRequest,
		"validation failed",
	)

	ErrNotFound = NewDomainError(
		"NOT_FOUND",
		CategoryNotFound,
		http.StatusNotFound,
		"resource not found",
	)

	ErrPersistence = NewDomainError(
		"PERSISTENCE_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"database operation failed",
	)

	ErrConcurrentUpdate = NewDomainError(
		"CONCURRENT_UPDATE",
		CategoryConflict,
		http.StatusConflict,
		"record was modified concurrently",
	)

	ErrInternalError = NewDomainError(
		"INTERNAL_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"internal server error",
	)
)
