package notify

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository provides PostgreSQL backed persistence for notifications.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert writes one notification record.
func (r *PGRepository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (user_id, title, message, severity, entity_type, entity_id, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())`,
		n.UserID, n.Title, n.Message, n.Severity, n.EntityType, n.EntityID)
	return err
}

// ListForUser returns the newest notifications for a user.
func (r *PGRepository) ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, title, message, severity, entity_type, entity_id, read, created_at
		 FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Severity,
			&n.EntityType, &n.EntityID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// UnreadCount returns the number of unread notifications for a user.
func (r *PGRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&count)
	return count, err
}

// MarkRead flags a notification as read. Only the recipient may do so.
func (r *PGRepository) MarkRead(ctx context.Context, userID, notificationID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	return err
}
