package commonerrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	commonerrors "github.com/AlibekovAA/examination-system/internal/common/errors"
)

func TestDomainError_IsMatchesDerivedErrors(t *testing.T) {
	cause := errors.New("connection reset")
	withCause := commonerrors.ErrPersistence.WithCause(cause)
	withMessage := commonerrors.ErrNotFound.WithMessage("exam not found")

	if !errors.Is(withCause, commonerrors.ErrPersistence) {
		t.Error("WithCause should match its sentinel")
	}
	if !errors.Is(withCause, cause) {
		t.Error("WithCause should unwrap to the cause")
	}
	if !errors.Is(withMessage, commonerrors.ErrNotFound) {
		t.Error("WithMessage should match its sentinel")
	}
	if errors.Is(withMessage, commonerrors.ErrPersistence) {
		t.Error("unrelated sentinels must not match")
	}
	if withMessage.Message() != "exam not found" || withMessage.HTTPStatus() != http.StatusNotFound {
		t.Errorf("message = %s, status = %d", withMessage.Message(), withMessage.HTTPStatus())
	}
}

func TestAsDomainError_Wrapped(t *testing.T) {
	err := fmt.Errorf("rotate: %w", commonerrors.ErrCircuitOpen)

	de, ok := commonerrors.AsDomainError(err)
	if !ok {
		t.Fatal("expected a domain error")
	}
	if de.Code() != "SERVICE_UNAVAILABLE" || de.Category() != commonerrors.CategoryExternal {
		t.Errorf("code = %s, category = %s", de.Code(), de.Category())
	}

	if commonerrors.IsDomainError(errors.New("plain")) {
		t.Error("plain errors are not domain errors")
	}
}

func TestDomainError_ErrorIncludesCause(t *testing.T) {
	err := commonerrors.ErrPersistence.WithCause(errors.New("timeout"))
	if got := err.Error(); got != commonerrors.ErrPersistence.Message()+": timeout" {
		t.Errorf("Error() = %q", got)
	}
}
