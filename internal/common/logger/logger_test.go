package logger_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/AlibekovAA/examination-system/internal/common/constants"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "exam-api", "warn")

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(out, "[WARNING] [exam-api]") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output: %q", out)
	}
	if log.ShouldLog(logger.INFO) || !log.ShouldLog(logger.ERROR) {
		t.Error("ShouldLog disagrees with the configured level")
	}

	log.SetLevel("debug")
	if !log.ShouldLog(logger.DEBUG) {
		t.Error("SetLevel did not lower the level")
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "", "info")
	ctx := context.WithValue(context.Background(), constants.TraceIDKey, "abc")

	log.WithFields(ctx, logger.Fields{"user_id": "u1", "action": "login"}).Infof("user %s logged in", "u1")

	out := buf.String()
	if !strings.Contains(out, "[trace_id=abc action=login user_id=u1]") {
		t.Errorf("fields not sorted after trace id: %q", out)
	}
	if !strings.Contains(out, "logger_test.go:") {
		t.Errorf("caller location missing: %q", out)
	}
}

func TestNew_WithLogDir(t *testing.T) {
	dir := t.TempDir()
	log, err := logger.New(dir, "exam-api", "info")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Info("written to file")
	if err := log.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
