package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Total number of registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	EmailConfirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_email_confirmations_total",
			Help: "Total number of email confirmation attempts by outcome",
		},
		[]string{"outcome"},
	)

	ConfirmationEmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_confirmation_emails_total",
			Help: "Total number of confirmation emails by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	RefreshTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_tokens_issued_total",
			Help: "Total number of refresh tokens minted",
		},
	)

	RefreshTokensReused = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_tokens_reused_total",
			Help: "Total number of logins that reused an active refresh token",
		},
	)

	RefreshTokensRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_tokens_revoked_total",
			Help: "Total number of refresh tokens revoked",
		},
	)

	RefreshTokenConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_token_version_conflicts_total",
			Help: "Total number of optimistic concurrency conflicts while writing refresh tokens",
		},
	)

	RefreshTokensCleanupPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_tokens_cleanup_pruned_total",
			Help: "Total number of stale refresh tokens pruned during cleanup",
		},
	)

	AccessTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "access_tokens_issued_total",
			Help: "Total number of access tokens issued",
		},
	)

	JWTValidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jwt_validations_total",
			Help: "Total number of JWT validations",
		},
	)

	JWTValidationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jwt_validations_failed_total",
			Help: "Total number of failed JWT validations",
		},
	)
)
