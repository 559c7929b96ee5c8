package constants

import "time"

const (
	PasswordMinLength  = 6
	JWTSecretMinLength = 32
	RefreshTokenSize   = 32

	ConfirmationTokenSize = 32

	DefaultMaxRequestSize = 1 << 20

	DefaultRefreshTokenTTL       = 10 * 24 * time.Hour
	DefaultRefreshTokenRetention = 30 * 24 * time.Hour
	DefaultEmailConfirmationTTL  = 24 * time.Hour
	RefreshTokenCleanupInterval  = time.Hour

	RefreshTokenUpdateAttempts = 3

	DBPoolMaxConns        = 25
	DBPoolMinConns        = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = 1 * time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = 1 * time.Second
	DBPoolMetricsInterval = 30 * time.Second
	DBQueryTimeout        = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultHTTPPort       = "8080"
	DefaultRequestTimeout = 10 * time.Second

	DefaultCircuitBreakerThreshold = 5
	DefaultCircuitBreakerTimeout   = 10 * time.Second
	DefaultCircuitBreakerReset     = 30 * time.Second

	RateLimitLoginRequestsPerSecond    = 1.0
	RateLimitLoginBurst                = 5
	RateLimitRegisterRequestsPerSecond = 0.2
	RateLimitRegisterBurst             = 3
	RateLimitRefreshRequestsPerSecond  = 1.0
	RateLimitRefreshBurst              = 10
	RateLimitGeneralRequestsPerSecond  = 20.0
	RateLimitGeneralBurst              = 40
	RateLimitCleanupInterval           = 10 * time.Minute

	DefaultSendGridFromName = "Exam Platform"
	DefaultSMTPPort         = 587

	RefreshTokenCookieName = "RefreshToken"

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
