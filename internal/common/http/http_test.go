package http_test

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AlibekovAA/examination-system/internal/common/constants"
	commonhttp "github.com/AlibekovAA/examination-system/internal/common/http"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
)

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := commonhttp.NewRateLimiter(0.001, 2)
	defer rl.Stop()

	handler := rl.Middleware("test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/account/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	req := httptest.NewRequest(http.MethodPost, "/account/login", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("other clients keep their own bucket, got %d", w.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"real ip header", map[string]string{"X-Real-IP": "1.2.3.4"}, "9.9.9.9:1", "1.2.3.4"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"}, "9.9.9.9:1", "5.6.7.8"},
		{"remote addr", nil, "9.9.9.9:1234", "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := commonhttp.GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRequestScheme(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		tls       bool
		want      string
	}{
		{"plain request", "", false, "http"},
		{"tls request", "", true, "https"},
		{"forwarded https", "HTTPS, http", false, "https"},
		{"forwarded http over tls", "http", true, "http"},
		{"unknown scheme falls back to plain", "javascript", false, "http"},
		{"unknown scheme falls back to tls", "ftp", true, "https"},
		{"blank first value", " , https", false, "http"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-Proto", tt.forwarded)
			}
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			if got := commonhttp.RequestScheme(req); got != tt.want {
				t.Errorf("RequestScheme() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Email string `json:"email"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"email":"a@b.c"}`, false},
		{"unknown field", `{"email":"a@b.c","admin":true}`, true},
		{"trailing object", `{"email":"a@b.c"}{"email":"x"}`, true},
		{"malformed", `{"email":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := commonhttp.DecodeJSON(req, &payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTraceIDMiddleware(t *testing.T) {
	var seen string
	handler := commonhttp.TraceIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = commonhttp.TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != "trace-123" || w.Header().Get("X-Trace-ID") != "trace-123" {
		t.Errorf("incoming trace id not propagated: ctx=%s header=%s", seen, w.Header().Get("X-Trace-ID"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if len(seen) != 32 {
		t.Errorf("generated trace id = %q", seen)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	log, err := logger.New("", "test", "info")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	handler := commonhttp.RecoveryMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), constants.TraceIDKey, "trace-1"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var env commonhttp.ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.TraceID != "trace-1" {
		t.Errorf("trace id = %s", env.TraceID)
	}
}

func TestWriteResult(t *testing.T) {
	w := httptest.NewRecorder()
	commonhttp.WriteResult(w, http.StatusConflict, map[string]string{"message": "taken"})

	var res struct {
		IsSuccess bool              `json:"isSuccess"`
		Data      map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.IsSuccess || res.Data["message"] != "taken" {
		t.Errorf("result = %+v", res)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %s", ct)
	}
}

func TestHealthHandler(t *testing.T) {
	log, err := logger.New("", "test", "info")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	healthy := commonhttp.HealthCheck{Name: "postgres", Check: func(context.Context) error { return nil }}
	down := commonhttp.HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	w := httptest.NewRecorder()
	commonhttp.HealthHandler(log, healthy)(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	commonhttp.HealthHandler(log, healthy, down)(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var env commonhttp.ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != "UNHEALTHY" || env.Details["redis"] != "unavailable" || env.Details["postgres"] != "ok" {
		t.Errorf("envelope = %+v", env)
	}
}
