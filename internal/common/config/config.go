package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AlibekovAA/examination-system/internal/common/constants"
)

var (
	ErrMissingRequiredEnv  = errors.New("missing required environment variable")
	ErrInvalidJWTSecret    = errors.New("JWT_KEY must be at least 32 bytes")
	ErrInvalidJWTDuration  = errors.New("JWT_DURATION_IN_MINUTES must be a positive number")
	ErrInvalidEnvValue     = errors.New("invalid environment variable value")
	ErrUnknownMailProvider = errors.New("EMAIL_PROVIDER must be sendgrid or smtp")
)

const (
	MailProviderSendGrid = "sendgrid"
	MailProviderSMTP     = "smtp"
)

type JWTConfig struct {
	Key         string
	ValidIssuer string
	// ValidAudience is read from JWT_VALID_AUDIENCE.
	ValidAudience string
	Duration      time.Duration
}

type MailConfig struct {
	Provider       string
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Config struct {
	HTTPPort              string
	DatabaseURL           string
	Redis                 RedisConfig
	JWT                   JWTConfig
	Mail                  MailConfig
	RefreshTokenTTL       time.Duration
	RefreshTokenRetention time.Duration
	EmailConfirmationTTL  time.Duration
	RequestTimeout        time.Duration
}

// Load reads the environment once and rejects anything that would otherwise
// surface later as broken tokens or undeliverable mail.
func Load() (Config, error) {
	var cfg Config
	var err error

	if cfg.DatabaseURL, err = mustEnv("DATABASE_URL"); err != nil {
		return Config{}, err
	}
	if cfg.Redis.Addr, err = mustEnv("REDIS_ADDR"); err != nil {
		return Config{}, err
	}
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	if cfg.Redis.DB, err = getIntEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}

	if cfg.JWT, err = loadJWTConfig(); err != nil {
		return Config{}, err
	}
	if cfg.Mail, err = loadMailConfig(); err != nil {
		return Config{}, err
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", constants.DefaultHTTPPort)

	if cfg.RefreshTokenTTL, err = getDurationEnv("REFRESH_TOKEN_TTL", constants.DefaultRefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenRetention, err = getDurationEnv("REFRESH_TOKEN_RETENTION", constants.DefaultRefreshTokenRetention); err != nil {
		return Config{}, err
	}
	if cfg.EmailConfirmationTTL, err = getDurationEnv("EMAIL_CONFIRMATION_TTL", constants.DefaultEmailConfirmationTTL); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = getDurationEnv("REQUEST_TIMEOUT", constants.DefaultRequestTimeout); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadJWTConfig() (JWTConfig, error) {
	key, err := mustEnv("JWT_KEY")
	if err != nil {
		return JWTConfig{}, err
	}
	if err := validateJWTSecret(key); err != nil {
		return JWTConfig{}, err
	}

	issuer, err := mustEnv("JWT_VALID_ISSUER")
	if err != nil {
		return JWTConfig{}, err
	}

	audience, err := mustEnv("JWT_VALID_AUDIENCE")
	if err != nil {
		return JWTConfig{}, err
	}

	rawDuration, err := mustEnv("JWT_DURATION_IN_MINUTES")
	if err != nil {
		return JWTConfig{}, err
	}
	duration, err := ParseDurationInMinutes(rawDuration)
	if err != nil {
		return JWTConfig{}, err
	}

	return JWTConfig{
		Key:           key,
		ValidIssuer:   issuer,
		ValidAudience: audience,
		Duration:      duration,
	}, nil
}

func loadMailConfig() (MailConfig, error) {
	cfg := MailConfig{
		Provider: strings.ToLower(getEnv("EMAIL_PROVIDER", MailProviderSendGrid)),
		FromName: getEnv("SENDGRID_FROM_NAME", constants.DefaultSendGridFromName),
		SMTPPort: constants.DefaultSMTPPort,
	}

	var err error
	if cfg.FromEmail, err = mustEnv("SENDGRID_FROM_EMAIL"); err != nil {
		return MailConfig{}, err
	}

	switch cfg.Provider {
	case MailProviderSendGrid:
		if cfg.SendGridAPIKey, err = mustEnv("SENDGRID_API_KEY"); err != nil {
			return MailConfig{}, err
		}
	case MailProviderSMTP:
		if cfg.SMTPHost, err = mustEnv("SMTP_HOST"); err != nil {
			return MailConfig{}, err
		}
		if cfg.SMTPPort, err = getIntEnv("SMTP_PORT", constants.DefaultSMTPPort); err != nil {
			return MailConfig{}, err
		}
		cfg.SMTPUsername = getEnv("SMTP_USERNAME", "")
		cfg.SMTPPassword = getEnv("SMTP_PASSWORD", "")
	default:
		return MailConfig{}, fmt.Errorf("%w: got %q", ErrUnknownMailProvider, cfg.Provider)
	}

	return cfg, nil
}

// ParseDurationInMinutes accepts fractional minutes ("90", "0.5") and rejects
// anything that would produce a non-positive token lifetime.
func ParseDurationInMinutes(raw string) (time.Duration, error) {
	minutes, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidJWTDuration, raw)
	}
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidJWTDuration, raw)
	}
	return time.Duration(minutes * float64(time.Minute)), nil
}

func validateJWTSecret(secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidJWTSecret, len(secret))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredEnv, key)
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidEnvValue, key, v)
	}
	return d, nil
}

func getIntEnv(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidEnvValue, key, v)
	}
	return i, nil
}
