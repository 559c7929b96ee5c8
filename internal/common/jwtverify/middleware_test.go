package jwtverify_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlibekovAA/examination-system/internal/common/clock"
	"github.com/AlibekovAA/examination-system/internal/common/jwtverify"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
)

const (
	testSecret   = "test-secret-key-that-is-long-enough-for-hs256"
	testIssuer   = "exam-issuer"
	testAudience = "exam-audience"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "user-1",
		"jti":   "jti-1",
		"email": "student@example.com",
		"iss":   testIssuer,
		"aud":   testAudience,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"roles": []string{"Student"},
	}
}

func TestVerifier_Parse(t *testing.T) {
	v := jwtverify.NewVerifier(testSecret, testIssuer, testAudience)

	claims, err := v.Parse(sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "student@example.com" || !claims.HasRole("Student") {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ExpiresAt.IsZero() {
		t.Error("expiry not populated")
	}
}

func TestVerifier_Parse_WithClock(t *testing.T) {
	issuedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(issuedAt)
	v := jwtverify.NewVerifier(testSecret, testIssuer, testAudience, jwtverify.WithClock(clk))

	c := validClaims()
	c["exp"] = issuedAt.Add(30 * time.Minute).Unix()
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), c)

	if _, err := v.Parse(token); err != nil {
		t.Fatalf("Parse() at issue time error = %v", err)
	}
	clk.Advance(31 * time.Minute)
	if _, err := v.Parse(token); err == nil {
		t.Error("expected expiry to follow the injected clock")
	}
}

func TestVerifier_Parse_SingleRoleString(t *testing.T) {
	v := jwtverify.NewVerifier(testSecret, testIssuer, testAudience)
	c := validClaims()
	c["roles"] = "Instructor"

	claims, err := v.Parse(sign(t, jwt.SigningMethodHS256, []byte(testSecret), c))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !claims.HasRole("Instructor") {
		t.Errorf("roles = %v", claims.Roles)
	}
}

func TestVerifier_Parse_Rejects(t *testing.T) {
	v := jwtverify.NewVerifier(testSecret, testIssuer, testAudience)

	mutate := func(f func(jwt.MapClaims)) jwt.MapClaims {
		c := validClaims()
		f(c)
		return c
	}

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("another-secret-that-is-long-enough!!"), validClaims())},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims())},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(testSecret), mutate(func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() }))},
		{"no expiry", sign(t, jwt.SigningMethodHS256, []byte(testSecret), mutate(func(c jwt.MapClaims) { delete(c, "exp") }))},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, []byte(testSecret), mutate(func(c jwt.MapClaims) { c["iss"] = "other" }))},
		{"wrong audience", sign(t, jwt.SigningMethodHS256, []byte(testSecret), mutate(func(c jwt.MapClaims) { c["aud"] = "other" }))},
		{"missing subject", sign(t, jwt.SigningMethodHS256, []byte(testSecret), mutate(func(c jwt.MapClaims) { delete(c, "sub") }))},
		{"bad roles", sign(t, jwt.SigningMethodHS256, []byte(testSecret), mutate(func(c jwt.MapClaims) { c["roles"] = 7 }))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Parse(tt.token); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestMiddleware_InjectsClaims(t *testing.T) {
	log, err := logger.New("", "test", "info")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	v := jwtverify.NewVerifier(testSecret, testIssuer, testAudience)

	var got jwtverify.Claims
	handler := v.Middleware(log)(jwtverify.RequireRole("Student")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = jwtverify.FromContext(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/exams", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got.UserID != "user-1" || got.JTI != "jti-1" {
		t.Errorf("claims = %+v", got)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	handler := jwtverify.RequireRole("Instructor")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/exams", nil)
	req = req.WithContext(jwtverify.WithClaims(req.Context(), jwtverify.Claims{UserID: "u", Roles: []string{"Student"}}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/exams", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without claims, got %d", w.Code)
	}
}
