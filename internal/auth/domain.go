package auth

import (
	"context"
	"time"

	"github.com/shiftwise/shiftwise/internal/roles"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoginAttempt is one entry of the lockout log.
type LoginAttempt struct {
	Email   string
	At      time.Time
	Success bool
}

// Principal is the authenticated actor with its resolved capability set.
type Principal struct {
	UserID       int64              `json:"userId"`
	Email        string             `json:"email"`
	Capabilities roles.Capabilities `json:"capabilities"`
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
