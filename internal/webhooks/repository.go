package webhooks

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for webhook settings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ForUser returns the user's webhook setting, or nil when none exists.
func (r *Repository) ForUser(ctx context.Context, userID int64) (*Setting, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT user_id, channel_type, target_url, notify_shift_swaps, notify_availability, notify_leave, notify_attendance, updated_at
		 FROM webhook_settings WHERE user_id = $1`, userID)
	var s Setting
	err := row.Scan(&s.UserID, &s.ChannelType, &s.TargetURL, &s.NotifyShiftSwaps,
		&s.NotifyAvailability, &s.NotifyLeave, &s.NotifyAttendance, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert creates the setting on first save and updates it thereafter.
func (r *Repository) Upsert(ctx context.Context, s Setting) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO webhook_settings (user_id, channel_type, target_url, notify_shift_swaps, notify_availability, notify_leave, notify_attendance, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		   channel_type = EXCLUDED.channel_type,
		   target_url = EXCLUDED.target_url,
		   notify_shift_swaps = EXCLUDED.notify_shift_swaps,
		   notify_availability = EXCLUDED.notify_availability,
		   notify_leave = EXCLUDED.notify_leave,
		   notify_attendance = EXCLUDED.notify_attendance,
		   updated_at = NOW()`,
		s.UserID, s.ChannelType, s.TargetURL, s.NotifyShiftSwaps,
		s.NotifyAvailability, s.NotifyLeave, s.NotifyAttendance)
	return err
}
