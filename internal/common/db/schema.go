package db

import (
	"context"
	_ "embed"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema applies the idempotent DDL in schema.sql.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	start := time.Now()
	_, err := pool.Exec(ctx, schemaSQL)
	return HandleExecError(err, "apply schema", start)
}
