package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"

	"github.com/AlibekovAA/examination-system/internal/observability/metrics"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Ordered so that compound names ("exam answer") win over their parts.
var operationTables = []struct {
	keyword string
	table   string
}{
	{"exam question", "exam_questions"},
	{"exam answer", "exam_answers"},
	{"answer", "exam_answers"},
	{"attempt", "exam_students"},
	{"choice", "choices"},
	{"question", "questions"},
	{"exam", "exams"},
	{"role", "user_roles"},
	{"claim", "user_claims"},
	{"refresh", "users"},
	{"user", "users"},
	{"schema", "schema"},
}

func extractTableFromOperation(operation string) string {
	operation = strings.ToLower(operation)
	for _, candidate := range operationTables {
		if strings.Contains(operation, candidate.keyword) {
			return candidate.table
		}
	}
	return "unknown"
}

func HandleQueryError(err error, notFoundErr error, operation string, startTime time.Time) error {
	MeasureQueryDuration(operation, startTime)

	if err == nil {
		return nil
	}
	if notFoundErr != nil && errors.Is(err, pgx.ErrNoRows) {
		return notFoundErr
	}
	recordError(operation, err)
	return fmt.Errorf("failed to %s: %w", operation, err)
}

func HandleExecError(err error, operation string, startTime time.Time) error {
	MeasureQueryDuration(operation, startTime)

	if err == nil {
		return nil
	}
	recordError(operation, err)
	return fmt.Errorf("failed to %s: %w", operation, err)
}

func MeasureQueryDuration(operation string, startTime time.Time) {
	table := extractTableFromOperation(operation)
	metrics.DBQueryDurationSeconds.WithLabelValues(operation, table).Observe(time.Since(startTime).Seconds())
}

func recordError(operation string, err error) {
	errorType := fmt.Sprintf("%T", err)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		errorType = "pg_" + pgErr.Code
	}
	metrics.DBQueryErrors.WithLabelValues(operation, extractTableFromOperation(operation), errorType).Inc()
}

// UniqueViolation reports the violated constraint name when err is a unique
// constraint failure.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}
