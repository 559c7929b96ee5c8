package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlibekovAA/examination-system/internal/auth/service"
	"github.com/AlibekovAA/examination-system/internal/common/clock"
	"github.com/AlibekovAA/examination-system/internal/common/jwtverify"
	userdomain "github.com/AlibekovAA/examination-system/internal/user/domain"
)

func newTestIssuer(t *testing.T, clk clock.Clock) *service.TokenIssuer {
	t.Helper()
	issuer, err := service.NewTokenIssuer(service.TokenIssuerConfig{
		Secret:   testJWTSecret,
		Issuer:   testIssuer,
		Audience: testAudience,
		Lifetime: 15 * time.Minute,
	}, &sequenceIDGenerator{}, clk)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return issuer
}

func TestNewTokenIssuer_RejectsBadConfig(t *testing.T) {
	clk := clock.NewMockClock(time.Now())

	if _, err := service.NewTokenIssuer(service.TokenIssuerConfig{Secret: "short", Lifetime: time.Minute}, &sequenceIDGenerator{}, clk); err == nil {
		t.Error("expected error for a short secret")
	}
	if _, err := service.NewTokenIssuer(service.TokenIssuerConfig{Secret: testJWTSecret}, &sequenceIDGenerator{}, clk); err == nil {
		t.Error("expected error for a zero lifetime")
	}
}

func TestTokenIssuer_IssueAccessToken(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	issuer := newTestIssuer(t, clock.NewMockClock(now))
	user := userdomain.User{ID: "u-1", Username: "alice", Email: "alice@example.com"}

	signed, err := issuer.IssueAccessToken(user, []string{userdomain.RoleInstructor}, []userdomain.Claim{
		{Type: "department", Value: "math"},
		{Type: "course", Value: "algebra"},
		{Type: "course", Value: "geometry"},
		{Type: "sub", Value: "attacker"},
		{Type: jwtverify.ClaimRoles, Value: "Admin"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !signed.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, want %v", signed.ExpiresAt, now.Add(15*time.Minute))
	}
	if signed.ExpiresAt.Location() != time.UTC {
		t.Error("ExpiresAt must be UTC")
	}

	claims, err := issuer.ParseToken(signed.Token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != "u-1" || claims.Email != "alice@example.com" || claims.JTI != signed.JTI {
		t.Errorf("unexpected claims %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != userdomain.RoleInstructor {
		t.Errorf("user claims must not override roles, got %v", claims.Roles)
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(signed.Token, jwt.MapClaims{})
	if err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	raw := parsed.Claims.(jwt.MapClaims)
	if raw["department"] != "math" {
		t.Errorf("department = %v", raw["department"])
	}
	if courses, ok := raw["course"].([]any); !ok || len(courses) != 2 {
		t.Errorf("repeated claim types become an array, got %v", raw["course"])
	}
	if raw["iss"] != testIssuer || raw["aud"] != testAudience {
		t.Errorf("iss=%v aud=%v", raw["iss"], raw["aud"])
	}
}

func TestTokenIssuer_UniqueJTI(t *testing.T) {
	issuer := newTestIssuer(t, clock.NewMockClock(time.Now()))
	user := userdomain.User{ID: "u-1", Email: "alice@example.com"}

	a, err := issuer.IssueAccessToken(user, nil, nil)
	if err != nil {
		t.Fatalf("first token: %v", err)
	}
	b, err := issuer.IssueAccessToken(user, nil, nil)
	if err != nil {
		t.Fatalf("second token: %v", err)
	}
	if a.JTI == b.JTI {
		t.Error("every token needs its own jti")
	}
}

func TestTokenIssuer_ParseToken_UsesIssuerClock(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(t, clk)

	signed, err := issuer.IssueAccessToken(userdomain.User{ID: "u-1"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := issuer.ParseToken(signed.Token); err != nil {
		t.Fatalf("token must verify at the time it was issued: %v", err)
	}

	clk.Advance(14 * time.Minute)
	if _, err := issuer.ParseToken(signed.Token); err != nil {
		t.Errorf("token must verify before its lifetime ends: %v", err)
	}
}

func TestTokenIssuer_ParseToken_Expired(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(t, clk)

	signed, err := issuer.IssueAccessToken(userdomain.User{ID: "u-1"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clk.Advance(16 * time.Minute)
	if _, err := issuer.ParseToken(signed.Token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestTokenIssuer_ParseToken_WrongAudience(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	issuer := newTestIssuer(t, clk)
	other, err := service.NewTokenIssuer(service.TokenIssuerConfig{
		Secret:   testJWTSecret,
		Issuer:   testIssuer,
		Audience: "someone-else",
		Lifetime: time.Minute,
	}, &sequenceIDGenerator{}, clk)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	signed, err := other.IssueAccessToken(userdomain.User{ID: "u-1"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := issuer.ParseToken(signed.Token); err == nil {
		t.Error("expected audience mismatch to be rejected")
	}
}
