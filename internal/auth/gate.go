package auth

import (
	"context"
	"log/slog"

	"github.com/shiftwise/shiftwise/internal/roles"
)

// State enumerates the session gate's finite states. Modeling the
// roles-pending window explicitly guarantees capability flags are never
// read while they are being derived.
type State int

const (
	// StateUninitialized is the state before any session load is attempted.
	StateUninitialized State = iota
	// StateLoading is the transient state while the session is fetched.
	StateLoading
	// StateUnauthenticated means no valid session exists.
	StateUnauthenticated
	// StateRolesPending means a session exists but capabilities are still
	// being resolved.
	StateRolesPending
	// StateReady means session and capabilities are both loaded.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateRolesPending:
		return "roles-pending"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// CapabilityResolver derives the capability set for a user.
type CapabilityResolver interface {
	Resolve(ctx context.Context, userID int64) roles.Capabilities
}

// CredentialExchange is the credential provider the gate delegates to.
type CredentialExchange interface {
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignUp(ctx context.Context, email, name, password string) (*User, bool, error)
}

// Gate owns the authenticated session lifecycle for one session. Every
// transition into an authenticated state passes through StateRolesPending
// and re-resolves capabilities, so they are never computed against a stale
// user id. A Gate is not safe for concurrent use; it belongs to a single
// request or test goroutine.
type Gate struct {
	exchange  CredentialExchange
	resolver  CapabilityResolver
	logger    *slog.Logger
	state     State
	principal Principal
	listeners []func(State)
}

// NewGate constructs a Gate in StateUninitialized.
func NewGate(exchange CredentialExchange, resolver CapabilityResolver, logger *slog.Logger) *Gate {
	return &Gate{exchange: exchange, resolver: resolver, logger: logger, state: StateUninitialized}
}

// OnChange registers a listener invoked after every state transition.
func (g *Gate) OnChange(fn func(State)) {
	g.listeners = append(g.listeners, fn)
}

// State returns the current state.
func (g *Gate) State() State {
	return g.state
}

// IsLoading is true while the gate is loading the session or resolving
// roles. Callers must not branch on capability flags until this is false.
func (g *Gate) IsLoading() bool {
	return g.state == StateLoading || g.state == StateRolesPending
}

// Principal returns the resolved principal once the gate is ready.
func (g *Gate) Principal() (Principal, bool) {
	if g.state != StateReady {
		return Principal{}, false
	}
	return g.principal, true
}

// Resume restores the gate from a previously stored session. A zero userID
// means no session was found.
func (g *Gate) Resume(ctx context.Context, userID int64, email string) {
	g.transition(StateLoading)
	if userID == 0 {
		g.becomeUnauthenticated()
		return
	}
	g.becomeAuthenticated(ctx, userID, email)
}

// SignIn delegates to the credential exchange and, on success, derives
// capabilities before reporting ready.
func (g *Gate) SignIn(ctx context.Context, email, password string) (Principal, error) {
	g.transition(StateLoading)
	user, err := g.exchange.SignIn(ctx, email, password)
	if err != nil {
		g.becomeUnauthenticated()
		return Principal{}, err
	}
	g.becomeAuthenticated(ctx, user.ID, user.Email)
	return g.principal, nil
}

// SignUp registers an account. When confirmation is required the gate stays
// unauthenticated and the second return value is true.
func (g *Gate) SignUp(ctx context.Context, email, name, password string) (Principal, bool, error) {
	g.transition(StateLoading)
	user, confirmationPending, err := g.exchange.SignUp(ctx, email, name, password)
	if err != nil {
		g.becomeUnauthenticated()
		return Principal{}, false, err
	}
	if confirmationPending {
		g.becomeUnauthenticated()
		return Principal{}, true, nil
	}
	g.becomeAuthenticated(ctx, user.ID, user.Email)
	return g.principal, false, nil
}

// SignOut clears the principal synchronously, then runs the remote cleanup.
// A cleanup failure never leaves the gate authenticated.
func (g *Gate) SignOut(ctx context.Context, cleanup func(context.Context) error) {
	g.becomeUnauthenticated()
	if cleanup == nil {
		return
	}
	if err := cleanup(ctx); err != nil && g.logger != nil {
		g.logger.Warn("sign out cleanup", slog.Any("error", err))
	}
}

// Refresh re-derives capabilities for the current principal, re-entering
// the roles-pending window. Role membership can change out-of-band, so a
// refreshed session never trusts previously computed flags.
func (g *Gate) Refresh(ctx context.Context) {
	if g.state != StateReady && g.state != StateRolesPending {
		return
	}
	g.becomeAuthenticated(ctx, g.principal.UserID, g.principal.Email)
}

func (g *Gate) becomeAuthenticated(ctx context.Context, userID int64, email string) {
	g.principal = Principal{UserID: userID, Email: email}
	g.transition(StateRolesPending)
	g.principal.Capabilities = g.resolver.Resolve(ctx, userID)
	g.transition(StateReady)
}

func (g *Gate) becomeUnauthenticated() {
	g.principal = Principal{}
	g.transition(StateUnauthenticated)
}

func (g *Gate) transition(next State) {
	g.state = next
	for _, fn := range g.listeners {
		fn(next)
	}
}
