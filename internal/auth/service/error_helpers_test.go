package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/AlibekovAA/examination-system/internal/auth/service"
	userrepo "github.com/AlibekovAA/examination-system/internal/user/repository"
)

func TestIsRepositoryFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", userrepo.ErrUserNotFound, false},
		{"wrapped version conflict", fmt.Errorf("update: %w", userrepo.ErrVersionConflict), false},
		{"duplicate email", userrepo.ErrEmailAlreadyExists, false},
		{"cancelled", context.Canceled, false},
		{"domain error", service.ErrInvalidRefreshToken, false},
		{"driver error", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := service.IsRepositoryFailure(tt.err); got != tt.want {
				t.Errorf("IsRepositoryFailure(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
