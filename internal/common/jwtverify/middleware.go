package jwtverify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlibekovAA/examination-system/internal/common/clock"
	commonerrors "github.com/AlibekovAA/examination-system/internal/common/errors"
	commonhttp "github.com/AlibekovAA/examination-system/internal/common/http"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
	"github.com/AlibekovAA/examination-system/internal/observability/metrics"
)

const (
	ClaimRoles = "roles"
	ClaimEmail = "email"
)

type Claims struct {
	UserID    string
	Email     string
	Roles     []string
	JTI       string
	ExpiresAt time.Time
}

func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type contextKey string

const claimsKey contextKey = "jwt_claims"

type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	clock    clock.Clock
}

type VerifierOption func(*Verifier)

// WithClock makes expiry checks use clk instead of the wall clock.
func WithClock(clk clock.Clock) VerifierOption {
	return func(v *Verifier) {
		v.clock = clk
	}
}

func NewVerifier(secret, issuer, audience string, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		clock:    clock.NewRealClock(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Verifier) Middleware(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if raw == "" || !strings.HasPrefix(raw, "Bearer ") {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "jwt_missing",
				}).Warn("jwt auth failed: missing or invalid authorization header")
				commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "missing or invalid authorization", nil, "")
				return
			}

			claims, err := v.Parse(strings.TrimPrefix(raw, "Bearer "))
			if err != nil {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "jwt_invalid",
				}).Warnf("jwt auth failed: %v", err)
				commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeInvalidToken, "invalid token", nil, "")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole must run after Middleware.
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := FromContext(r.Context())
			if !ok || !claims.HasRole(role) {
				commonhttp.WriteErrorEnvelope(w, http.StatusForbidden, commonerrors.ErrForbidden.Code(), commonerrors.ErrForbidden.Message(), nil, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func FromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(Claims)
	return claims, ok
}

func (v *Verifier) Parse(tokenString string) (Claims, error) {
	metrics.JWTValidationsTotal.Inc()
	claims, err := v.parse(tokenString)
	if err != nil {
		metrics.JWTValidationsFailed.Inc()
	}
	return claims, err
}

func (v *Verifier) parse(tokenString string) (Claims, error) {
	parsed, err := jwt.Parse(
		tokenString,
		func(token *jwt.Token) (any, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, commonerrors.ErrInvalidTokenSigningMethod
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	)
	if err != nil {
		return Claims{}, commonerrors.ErrInvalidToken.WithCause(err)
	}
	if !parsed.Valid {
		return Claims{}, commonerrors.ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, commonerrors.ErrInvalidTokenClaims
	}

	sub, _ := mapClaims["sub"].(string)
	jti, _ := mapClaims["jti"].(string)
	if sub == "" || jti == "" {
		return Claims{}, commonerrors.ErrMissingTokenClaims
	}

	email, _ := mapClaims[ClaimEmail].(string)
	roles, err := stringList(mapClaims[ClaimRoles])
	if err != nil {
		return Claims{}, commonerrors.ErrInvalidTokenClaims.WithCause(err)
	}

	var expiresAt time.Time
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return Claims{
		UserID:    sub,
		Email:     email,
		Roles:     roles,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

// stringList accepts the single-string form too, since one role may be
// serialized either way by other issuers.
func stringList(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected role claim element %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return v, nil
	default:
		return nil, errors.New("unexpected role claim type")
	}
}
