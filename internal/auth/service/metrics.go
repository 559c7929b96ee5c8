package service

import (
	"github.com/AlibekovAA/examination-system/internal/observability/metrics"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

func recordRegistration(outcome string) {
	metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
}

func recordLogin(outcome string) {
	metrics.LoginsTotal.WithLabelValues(outcome).Inc()
}

func recordEmailConfirmation(outcome string) {
	metrics.EmailConfirmationsTotal.WithLabelValues(outcome).Inc()
}

func incrementRefreshTokensIssued() {
	metrics.RefreshTokensIssued.Inc()
}

func incrementRefreshTokensReused() {
	metrics.RefreshTokensReused.Inc()
}

func incrementRefreshTokensRevoked() {
	metrics.RefreshTokensRevoked.Inc()
}

func incrementRefreshTokenConflicts() {
	metrics.RefreshTokenConflicts.Inc()
}

func incrementAccessTokensIssued() {
	metrics.AccessTokensIssued.Inc()
}
