package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCombineDefaultsToEmployee(t *testing.T) {
	caps := Combine(nil, "")
	require.True(t, caps.IsEmployee)
	require.False(t, caps.IsAdmin)
	require.False(t, caps.IsHR)
	require.False(t, caps.IsManager)
	require.False(t, caps.IsPayroll)
	require.Equal(t, RoleEmployee, caps.PrimaryRole)
}

func TestCombineAdminPrecedence(t *testing.T) {
	sets := [][]string{
		{"admin"},
		{"employee", "admin"},
		{"payroll", "admin", "hr"},
		{"manager", "employer", "admin", "employee"},
	}
	for _, assigned := range sets {
		caps := Combine(assigned, "")
		require.True(t, caps.IsAdmin)
		require.Equal(t, RoleAdmin, caps.PrimaryRole, "assigned=%v", assigned)
	}
	// The fallback source alone can grant admin.
	caps := Combine([]string{"employee"}, "admin")
	require.True(t, caps.IsAdmin)
	require.Equal(t, RoleAdmin, caps.PrimaryRole)
}

func TestCombineManagerLabels(t *testing.T) {
	caps := Combine([]string{"manager"}, "")
	require.True(t, caps.IsManager)
	require.Equal(t, RoleManager, caps.PrimaryRole)

	caps = Combine([]string{"employer"}, "")
	require.True(t, caps.IsManager)
	require.Equal(t, RoleEmployer, caps.PrimaryRole)

	// Employer label preferred when both are present.
	caps = Combine([]string{"manager", "employer"}, "")
	require.Equal(t, RoleEmployer, caps.PrimaryRole)
}

func TestCombineUnionsFallback(t *testing.T) {
	caps := Combine([]string{"payroll"}, "hr")
	require.True(t, caps.IsPayroll)
	require.True(t, caps.IsHR)
	require.Equal(t, RoleHR, caps.PrimaryRole)

	// Duplicate fallback adds nothing.
	caps = Combine([]string{"hr"}, "hr")
	require.True(t, caps.IsHR)
	require.False(t, caps.IsEmployee)
}

func TestCombineUnknownRole(t *testing.T) {
	caps := Combine([]string{"auditor"}, "")
	require.False(t, caps.IsAdmin)
	require.False(t, caps.IsEmployee)
	require.Empty(t, caps.PrimaryRole)
}

type stubRoleRepo struct {
	assigned    []string
	assignedErr error
	fallback    string
	fallbackErr error
}

func (s *stubRoleRepo) AssignedRoles(ctx context.Context, userID int64) ([]string, error) {
	return s.assigned, s.assignedErr
}

func (s *stubRoleRepo) FallbackRole(ctx context.Context, userID int64) (string, error) {
	return s.fallback, s.fallbackErr
}

func TestResolverFailsSoft(t *testing.T) {
	resolver := NewResolver(&stubRoleRepo{assignedErr: errors.New("boom")}, nil)
	caps := resolver.Resolve(context.Background(), 7)
	require.Equal(t, EmployeeDefault(), caps)

	resolver = NewResolver(&stubRoleRepo{fallbackErr: errors.New("boom")}, nil)
	caps = resolver.Resolve(context.Background(), 7)
	require.Equal(t, EmployeeDefault(), caps)
}

func TestResolverCombinesSources(t *testing.T) {
	resolver := NewResolver(&stubRoleRepo{assigned: []string{"hr"}, fallback: "employee"}, nil)
	caps := resolver.Resolve(context.Background(), 7)
	require.True(t, caps.IsHR)
	require.True(t, caps.IsEmployee)
	require.Equal(t, RoleHR, caps.PrimaryRole)
}
