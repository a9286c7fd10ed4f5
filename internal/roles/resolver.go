package roles

import (
	"context"
	"log/slog"
	"strings"
)

// Repository provides the two role sources the resolver reconciles.
type Repository interface {
	// AssignedRoles returns the explicit role assignments for the user.
	AssignedRoles(ctx context.Context, userID int64) ([]string, error)
	// FallbackRole returns the optional role on the employee record, or ""
	// when the user has no employee row or no role value.
	FallbackRole(ctx context.Context, userID int64) (string, error)
}

// Resolver turns the two role sources into a single capability set.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	return &Resolver{repo: repo, logger: logger}
}

// Resolve computes the capability set for userID. Any lookup error yields
// the employee default instead of propagating.
func (r *Resolver) Resolve(ctx context.Context, userID int64) Capabilities {
	assigned, err := r.repo.AssignedRoles(ctx, userID)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("resolve assigned roles", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return EmployeeDefault()
	}
	fallback, err := r.repo.FallbackRole(ctx, userID)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("resolve fallback role", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return EmployeeDefault()
	}
	return Combine(assigned, fallback)
}

// Combine unions the explicit assignments with the employee-record fallback
// and derives flags plus the primary role by fixed precedence. Pure.
func Combine(assigned []string, fallback string) Capabilities {
	set := make(map[string]struct{}, len(assigned)+1)
	for _, role := range assigned {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" {
			set[role] = struct{}{}
		}
	}
	if fallback = strings.ToLower(strings.TrimSpace(fallback)); fallback != "" {
		set[fallback] = struct{}{}
	}

	_, hasEmployer := set[RoleEmployer]
	_, hasManager := set[RoleManager]
	_, hasEmployee := set[RoleEmployee]

	caps := Capabilities{
		IsAdmin:   contains(set, RoleAdmin),
		IsHR:      contains(set, RoleHR),
		IsManager: hasEmployer || hasManager,
		IsPayroll: contains(set, RolePayroll),
	}
	caps.IsEmployee = hasEmployee ||
		(!caps.IsAdmin && !caps.IsHR && !caps.IsManager && !caps.IsPayroll && len(set) == 0)

	// Employer precedes manager in the precedence list, so the employer
	// label wins when both are present.
	for _, role := range precedence {
		if contains(set, role) {
			caps.PrimaryRole = role
			break
		}
	}
	if caps.PrimaryRole == "" && caps.IsEmployee {
		caps.PrimaryRole = RoleEmployee
	}
	return caps
}

func contains(set map[string]struct{}, role string) bool {
	_, ok := set[role]
	return ok
}
