package http

import (
	"github.com/google/uuid"

	commonerrors "github.com/AlibekovAA/examination-system/internal/common/errors"
)

func ValidateUUID(s string) error {
	if s == "" {
		return commonerrors.ErrEmptyUUID
	}
	if _, err := uuid.Parse(s); err != nil {
		return commonerrors.ErrInvalidUUID.WithCause(err)
	}
	return nil
}
