package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shiftwise/shiftwise/internal/auth"
	"github.com/shiftwise/shiftwise/internal/notify"
	"github.com/shiftwise/shiftwise/internal/platform/httpx"
	"github.com/shiftwise/shiftwise/internal/roles"
	"github.com/shiftwise/shiftwise/internal/shared"
	"github.com/shiftwise/shiftwise/internal/users"
	"github.com/shiftwise/shiftwise/internal/webhooks"
	"github.com/shiftwise/shiftwise/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler          *auth.Handler
	RolesHandler         *roles.Handler
	UsersHandler         *users.Handler
	WebhooksHandler      *webhooks.Handler
	NotificationsHandler *notify.Handler
	JobHandler           *jobs.Handler

	RolesMiddleware roles.Middleware
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Clients fetch a token here before their first mutating request.
	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
		if err != nil {
			params.Logger.Error("issue csrf token", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.OK(w, map[string]string{"csrf_token": token})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	admin := params.RolesMiddleware.RequireAny(roles.RoleAdmin)
	r.Route("/roles", func(r chi.Router) {
		r.Use(admin)
		params.RolesHandler.MountRoutes(r)
	})
	r.Route("/users", func(r chi.Router) {
		r.Use(admin)
		params.UsersHandler.MountRoutes(r)
	})

	r.Route("/webhooks", params.WebhooksHandler.MountRoutes)
	r.Route("/notifications", params.NotificationsHandler.MountRoutes)

	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(admin)
			params.JobHandler.MountRoutes(r)
		})
	}

	return r
}
