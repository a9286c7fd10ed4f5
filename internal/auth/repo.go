package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiftwise/shiftwise/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, email, name, passwordHash string, active bool) (*User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	RecordAttempt(ctx context.Context, attempt LoginAttempt) error
	CountFailedAttempts(ctx context.Context, email string, since time.Time) (int, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, COALESCE(name, ''), password_hash, is_active, confirmed_at, created_at, updated_at
		 FROM users WHERE email = $1`, email)
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.IsActive,
		&user.ConfirmedAt, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new account. Unique-violation on email surfaces as a
// raw pg error so the service can map it to the duplicate-account message.
func (r *PGRepository) CreateUser(ctx context.Context, email, name, passwordHash string, active bool) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, is_active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, email, COALESCE(name, ''), password_hash, is_active, confirmed_at, created_at, updated_at`,
		email, name, passwordHash, active)
	var user User
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.IsActive,
		&user.ConfirmedAt, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword replaces the stored password hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		userID, passwordHash)
	return err
}

// RecordAttempt appends to the login attempt log backing account lockout.
func (r *PGRepository) RecordAttempt(ctx context.Context, attempt LoginAttempt) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_attempts (email, attempted_at, success) VALUES ($1, $2, $3)`,
		attempt.Email, attempt.At, attempt.Success)
	return err
}

// CountFailedAttempts counts failures for email newer than since. Older
// failures are excluded; successes never reduce the count.
func (r *PGRepository) CountFailedAttempts(ctx context.Context, email string, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM login_attempts WHERE email = $1 AND success = FALSE AND attempted_at >= $2`,
		email, since).Scan(&count)
	return count, err
}

// CreateSession persists a login session record for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua) VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`,
		id, userID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)
