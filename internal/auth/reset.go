package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrResetTokenInvalid is returned for unknown or expired reset tokens.
var ErrResetTokenInvalid = errors.New("reset token invalid or expired")

// ResetTokens stores single-use password reset tokens in Redis.
type ResetTokens struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResetTokens constructs a ResetTokens store.
func NewResetTokens(client *redis.Client, ttl time.Duration) *ResetTokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResetTokens{client: client, ttl: ttl}
}

// Issue creates a token bound to the email.
func (t *ResetTokens) Issue(ctx context.Context, email string) (string, error) {
	token := uuid.NewString()
	if err := t.client.Set(ctx, t.key(token), email, t.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Consume resolves a token to its email and deletes it. Single use.
func (t *ResetTokens) Consume(ctx context.Context, token string) (string, error) {
	email, err := t.client.GetDel(ctx, t.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrResetTokenInvalid
	}
	if err != nil {
		return "", err
	}
	return email, nil
}

func (t *ResetTokens) key(token string) string {
	return "pwreset:" + token
}
