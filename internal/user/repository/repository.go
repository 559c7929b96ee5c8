package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/examination-system/internal/common/db"
	"github.com/AlibekovAA/examination-system/internal/user/domain"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrVersionConflict       = errors.New("user was modified concurrently")
)

const (
	constraintUsername = "users_username_key"
	constraintEmail    = "users_email_key"
)

type Repository interface {
	Create(ctx context.Context, user domain.User, role string) error
	FindByID(ctx context.Context, id domain.ID) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByRefreshToken(ctx context.Context, token string) (domain.User, error)
	GetRoles(ctx context.Context, id domain.ID) ([]string, error)
	GetClaims(ctx context.Context, id domain.ID) ([]domain.Claim, error)
	MarkEmailConfirmed(ctx context.Context, id domain.ID) error
	// UpdateRefreshTokens replaces the token list only if the stored version
	// still equals expectedVersion, and returns the new version.
	UpdateRefreshTokens(ctx context.Context, id domain.ID, expectedVersion int64, tokens []domain.RefreshToken) (int64, error)
	ListWithStaleRefreshTokens(ctx context.Context, cutoff time.Time, afterID domain.ID, limit int) ([]domain.User, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
	tx   db.TxManager
}

func NewPgRepository(pool *pgxpool.Pool, tx db.TxManager) *PgRepository {
	return &PgRepository{pool: pool, tx: tx}
}

const userColumns = `id, username, email, password_hash, email_confirmed, user_type, refresh_tokens, version, created_at`

func (r *PgRepository) Create(ctx context.Context, user domain.User, role string) error {
	tokens, err := json.Marshal(nonNilTokens(user.RefreshTokens))
	if err != nil {
		return fmt.Errorf("failed to encode refresh tokens: %w", err)
	}

	return r.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		start := time.Now()
		_, err := tx.Exec(
			ctx,
			`INSERT INTO users (id, username, email, password_hash, email_confirmed, user_type, refresh_tokens)
			 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)`,
			string(user.ID),
			user.Username,
			user.Email,
			user.PasswordHash,
			user.EmailConfirmed,
			string(user.Type),
			string(tokens),
		)
		if constraint, ok := db.UniqueViolation(err); ok {
			db.MeasureQueryDuration("create user", start)
			switch constraint {
			case constraintEmail:
				return ErrEmailAlreadyExists
			default:
				return ErrUsernameAlreadyExists
			}
		}
		if err := db.HandleExecError(err, "create user", start); err != nil {
			return err
		}

		start = time.Now()
		_, err = tx.Exec(
			ctx,
			`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`,
			string(user.ID),
			role,
		)
		return db.HandleExecError(err, "assign user role", start)
	})
}

func (r *PgRepository) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	return r.findOne(ctx, "find user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, string(id))
}

func (r *PgRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.findOne(ctx, "find user by username", `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *PgRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, "find user by email", `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *PgRepository) FindByRefreshToken(ctx context.Context, token string) (domain.User, error) {
	return r.findOne(
		ctx,
		"find user by refresh token",
		`SELECT `+userColumns+` FROM users
		 WHERE refresh_tokens @> jsonb_build_array(jsonb_build_object('token', $1::text))`,
		token,
	)
}

func (r *PgRepository) findOne(ctx context.Context, operation, query string, arg any) (domain.User, error) {
	start := time.Now()
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err := db.HandleQueryError(err, ErrUserNotFound, operation, start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgRepository) GetRoles(ctx context.Context, id domain.ID) ([]string, error) {
	start := time.Now()
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, string(id))
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "get user roles", start)
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, db.HandleQueryError(err, nil, "get user roles", start)
	}
	db.MeasureQueryDuration("get user roles", start)
	return roles, nil
}

func (r *PgRepository) GetClaims(ctx context.Context, id domain.ID) ([]domain.Claim, error) {
	start := time.Now()
	rows, err := r.pool.Query(
		ctx,
		`SELECT claim_type, claim_value FROM user_claims WHERE user_id = $1 ORDER BY claim_type, claim_value`,
		string(id),
	)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "get user claims", start)
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(&c.Type, &c.Value); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, db.HandleQueryError(err, nil, "get user claims", start)
	}
	db.MeasureQueryDuration("get user claims", start)
	return claims, nil
}

func (r *PgRepository) MarkEmailConfirmed(ctx context.Context, id domain.ID) error {
	start := time.Now()
	tag, err := r.pool.Exec(ctx, `UPDATE users SET email_confirmed = TRUE WHERE id = $1`, string(id))
	if err := db.HandleExecError(err, "confirm user email", start); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) UpdateRefreshTokens(ctx context.Context, id domain.ID, expectedVersion int64, tokens []domain.RefreshToken) (int64, error) {
	payload, err := json.Marshal(nonNilTokens(tokens))
	if err != nil {
		return 0, fmt.Errorf("failed to encode refresh tokens: %w", err)
	}

	start := time.Now()
	var version int64
	err = r.pool.QueryRow(
		ctx,
		`UPDATE users SET refresh_tokens = $3::jsonb, version = version + 1
		 WHERE id = $1 AND version = $2
		 RETURNING version`,
		string(id),
		expectedVersion,
		string(payload),
	).Scan(&version)
	if err := db.HandleQueryError(err, ErrVersionConflict, "update user refresh tokens", start); err != nil {
		return 0, err
	}
	return version, nil
}

func (r *PgRepository) ListWithStaleRefreshTokens(ctx context.Context, cutoff time.Time, afterID domain.ID, limit int) ([]domain.User, error) {
	start := time.Now()
	var after *string
	if afterID != "" {
		id := string(afterID)
		after = &id
	}
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+userColumns+` FROM users u
		 WHERE EXISTS (
		 	SELECT 1 FROM jsonb_array_elements(u.refresh_tokens) t
		 	WHERE (t->>'expiredOn')::timestamptz < $1
		 	   OR (t->>'revokedOn')::timestamptz < $1
		 )
		 AND ($3::uuid IS NULL OR u.id > $3::uuid)
		 ORDER BY u.id
		 LIMIT $2`,
		cutoff,
		limit,
		after,
	)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "list users with stale refresh tokens", start)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, db.HandleQueryError(err, nil, "list users with stale refresh tokens", start)
	}
	db.MeasureQueryDuration("list users with stale refresh tokens", start)
	return users, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user     domain.User
		userType string
		tokens   []byte
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.EmailConfirmed,
		&userType,
		&tokens,
		&user.Version,
		&user.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	user.Type = domain.UserType(userType)

	if len(tokens) > 0 {
		if err := json.Unmarshal(tokens, &user.RefreshTokens); err != nil {
			return domain.User{}, fmt.Errorf("failed to decode refresh tokens: %w", err)
		}
	}
	return user, nil
}

func nonNilTokens(tokens []domain.RefreshToken) []domain.RefreshToken {
	if tokens == nil {
		return []domain.RefreshToken{}
	}
	return tokens
}
