package roles

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shiftwise/shiftwise/internal/shared"
)

// Middleware wires capability checks for HTTP handlers.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// RequireAny ensures the current user holds at least one of the named roles.
// Capabilities are resolved per request; they are never cached across
// session changes.
func (m Middleware) RequireAny(roleNames ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(roleNames) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := m.currentUserID(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			caps := m.Resolver.Resolve(r.Context(), userID)
			for _, role := range roleNames {
				if caps.Has(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("roles parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
