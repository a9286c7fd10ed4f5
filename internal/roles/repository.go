package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository provides PostgreSQL backed role lookups and mutations.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// AssignedRoles returns the explicit role assignments for a user.
func (r *PGRepository) AssignedRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assigned []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		assigned = append(assigned, role)
	}
	return assigned, rows.Err()
}

// FallbackRole returns the optional role stored on the employee record.
// A missing employee row is not an error.
func (r *PGRepository) FallbackRole(ctx context.Context, userID int64) (string, error) {
	var role string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(role, '') FROM employees WHERE user_id = $1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// UsersWithRoles returns the distinct user ids holding any of the given
// roles, used to compute the manager audience for new requests.
func (r *PGRepository) UsersWithRoles(ctx context.Context, roleNames ...string) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_id FROM user_roles WHERE role = ANY($1) ORDER BY user_id`, roleNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AssignRole adds a role assignment, ignoring duplicates.
func (r *PGRepository) AssignRole(ctx context.Context, userID int64, role string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT (user_id, role) DO NOTHING`,
		userID, role)
	return err
}

// RemoveRole deletes a role assignment.
func (r *PGRepository) RemoveRole(ctx context.Context, userID int64, role string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role)
	return err
}

var _ Repository = (*PGRepository)(nil)
