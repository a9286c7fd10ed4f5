package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shiftwise/shiftwise/internal/roles"
	"github.com/shiftwise/shiftwise/internal/shared"
)

type stubExchange struct {
	user       *User
	signInErr  error
	signUpErr  error
	confirming bool
}

func (s *stubExchange) SignIn(ctx context.Context, email, password string) (*User, error) {
	if s.signInErr != nil {
		return nil, s.signInErr
	}
	return s.user, nil
}

func (s *stubExchange) SignUp(ctx context.Context, email, name, password string) (*User, bool, error) {
	if s.signUpErr != nil {
		return nil, false, s.signUpErr
	}
	return s.user, s.confirming, nil
}

type stubResolver struct {
	caps  roles.Capabilities
	calls int
}

func (s *stubResolver) Resolve(ctx context.Context, userID int64) roles.Capabilities {
	s.calls++
	return s.caps
}

func TestGateSignInTransitions(t *testing.T) {
	exchange := &stubExchange{user: &User{ID: 42, Email: "user@example.com"}}
	resolver := &stubResolver{caps: roles.Capabilities{IsManager: true, PrimaryRole: roles.RoleManager}}
	gate := NewGate(exchange, resolver, nil)

	var seen []State
	var loadingDuringRolesPending bool
	gate.OnChange(func(s State) {
		seen = append(seen, s)
		if s == StateRolesPending {
			loadingDuringRolesPending = gate.IsLoading()
		}
	})

	require.Equal(t, StateUninitialized, gate.State())
	principal, err := gate.SignIn(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)

	require.Equal(t, []State{StateLoading, StateRolesPending, StateReady}, seen)
	require.True(t, loadingDuringRolesPending)
	require.False(t, gate.IsLoading())
	require.Equal(t, int64(42), principal.UserID)
	require.True(t, principal.Capabilities.IsManager)
	require.Equal(t, 1, resolver.calls)
}

func TestGateSignInFailure(t *testing.T) {
	gate := NewGate(&stubExchange{signInErr: shared.ErrInvalidCredentials}, &stubResolver{}, nil)
	_, err := gate.SignIn(context.Background(), "user@example.com", "bad")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.Equal(t, StateUnauthenticated, gate.State())
	_, ok := gate.Principal()
	require.False(t, ok)
}

func TestGateResume(t *testing.T) {
	resolver := &stubResolver{caps: roles.EmployeeDefault()}
	gate := NewGate(&stubExchange{}, resolver, nil)

	gate.Resume(context.Background(), 0, "")
	require.Equal(t, StateUnauthenticated, gate.State())

	gate = NewGate(&stubExchange{}, resolver, nil)
	gate.Resume(context.Background(), 7, "user@example.com")
	require.Equal(t, StateReady, gate.State())
	principal, ok := gate.Principal()
	require.True(t, ok)
	require.Equal(t, int64(7), principal.UserID)
}

func TestGateSignUpConfirmationPending(t *testing.T) {
	gate := NewGate(&stubExchange{user: &User{ID: 9}, confirming: true}, &stubResolver{}, nil)
	_, pending, err := gate.SignUp(context.Background(), "new@example.com", "New User", "password1")
	require.NoError(t, err)
	require.True(t, pending)
	require.Equal(t, StateUnauthenticated, gate.State())
}

func TestGateSignOutClearsSynchronously(t *testing.T) {
	resolver := &stubResolver{caps: roles.EmployeeDefault()}
	gate := NewGate(&stubExchange{user: &User{ID: 3}}, resolver, nil)
	_, err := gate.SignIn(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)

	// Remote cleanup failure must not leave a stale authenticated state.
	gate.SignOut(context.Background(), func(context.Context) error {
		require.Equal(t, StateUnauthenticated, gate.State())
		return errors.New("remote sign out failed")
	})
	require.Equal(t, StateUnauthenticated, gate.State())
	_, ok := gate.Principal()
	require.False(t, ok)
}

func TestGateRefreshReresolves(t *testing.T) {
	resolver := &stubResolver{caps: roles.EmployeeDefault()}
	gate := NewGate(&stubExchange{user: &User{ID: 3}}, resolver, nil)
	_, err := gate.SignIn(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)
	require.Equal(t, 1, resolver.calls)

	// Role membership changed out-of-band; refresh must re-derive.
	resolver.caps = roles.Capabilities{IsAdmin: true, PrimaryRole: roles.RoleAdmin}
	gate.Refresh(context.Background())
	require.Equal(t, 2, resolver.calls)
	principal, ok := gate.Principal()
	require.True(t, ok)
	require.True(t, principal.Capabilities.IsAdmin)
}
