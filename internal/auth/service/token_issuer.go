package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlibekovAA/examination-system/internal/common/clock"
	"github.com/AlibekovAA/examination-system/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/examination-system/internal/common/crypto"
	"github.com/AlibekovAA/examination-system/internal/common/jwtverify"
	userdomain "github.com/AlibekovAA/examination-system/internal/user/domain"
)

var (
	errWeakSigningKey      = errors.New("jwt signing key is too short")
	errNonPositiveLifetime = errors.New("access token lifetime must be positive")
)

// reservedClaims can never be overwritten by user claims.
var reservedClaims = map[string]struct{}{
	"sub": {}, "jti": {}, "iss": {}, "aud": {}, "iat": {}, "exp": {}, "nbf": {},
	jwtverify.ClaimEmail: {}, jwtverify.ClaimRoles: {},
}

type TokenIssuerConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Lifetime time.Duration
}

type SignedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

type TokenIssuer struct {
	cfg         TokenIssuerConfig
	secret      []byte
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	verifier    *jwtverify.Verifier
}

func NewTokenIssuer(cfg TokenIssuerConfig, idGenerator commoncrypto.IDGenerator, clock clock.Clock) (*TokenIssuer, error) {
	if len(cfg.Secret) < constants.JWTSecretMinLength {
		return nil, fmt.Errorf("%w: need %d bytes", errWeakSigningKey, constants.JWTSecretMinLength)
	}
	if cfg.Lifetime <= 0 {
		return nil, errNonPositiveLifetime
	}
	return &TokenIssuer{
		cfg:         cfg,
		secret:      []byte(cfg.Secret),
		idGenerator: idGenerator,
		clock:       clock,
		verifier:    jwtverify.NewVerifier(cfg.Secret, cfg.Issuer, cfg.Audience, jwtverify.WithClock(clock)),
	}, nil
}

func (ti *TokenIssuer) IssueAccessToken(user userdomain.User, roles []string, extra []userdomain.Claim) (SignedToken, error) {
	jti, err := ti.idGenerator.NewID()
	if err != nil {
		return SignedToken{}, err
	}

	now := ti.clock.Now()
	expiresAt := now.Add(ti.cfg.Lifetime)

	claims := jwt.MapClaims{}
	for name, values := range groupClaims(extra) {
		if len(values) == 1 {
			claims[name] = values[0]
		} else {
			claims[name] = values
		}
	}

	if roles == nil {
		roles = []string{}
	}
	claims["sub"] = string(user.ID)
	claims["jti"] = jti
	claims[jwtverify.ClaimEmail] = user.Email
	claims[jwtverify.ClaimRoles] = roles
	claims["iss"] = ti.cfg.Issuer
	claims["aud"] = ti.cfg.Audience
	claims["iat"] = now.Unix()
	claims["exp"] = expiresAt.Unix()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := t.SignedString(ti.secret)
	if err != nil {
		return SignedToken{}, err
	}

	incrementAccessTokensIssued()
	return SignedToken{
		Token:     tokenString,
		JTI:       jti,
		ExpiresAt: time.Unix(expiresAt.Unix(), 0).UTC(),
	}, nil
}

func (ti *TokenIssuer) ParseToken(tokenString string) (jwtverify.Claims, error) {
	return ti.verifier.Parse(tokenString)
}

func groupClaims(claims []userdomain.Claim) map[string][]string {
	grouped := make(map[string][]string, len(claims))
	for _, c := range claims {
		if _, reserved := reservedClaims[c.Type]; reserved || c.Type == "" {
			continue
		}
		grouped[c.Type] = append(grouped[c.Type], c.Value)
	}
	return grouped
}
