package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shiftwise/shiftwise/internal/platform/httpx"
	"github.com/shiftwise/shiftwise/internal/ratelimit"
	"github.com/shiftwise/shiftwise/internal/sanitize"
	"github.com/shiftwise/shiftwise/internal/shared"
)

const (
	loginLimit  = 5
	loginWindow = 15 * time.Minute
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	resolver       CapabilityResolver
	sessionManager *shared.SessionManager
	limiter        *ratelimit.Limiter
	tokens         *ResetTokens
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver CapabilityResolver, sessions *shared.SessionManager, limiter *ratelimit.Limiter, tokens *ResetTokens) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		resolver:       resolver,
		sessionManager: sessions,
		limiter:        limiter,
		tokens:         tokens,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signin", h.handleSignIn)
	r.Post("/signup", h.handleSignUp)
	r.Post("/signout", h.handleSignOut)
	r.Post("/reset-password", h.handleResetPassword)
	r.Post("/reset-password/confirm", h.handleResetPasswordConfirm)
	r.Post("/update-password", h.handleUpdatePassword)
	r.Post("/refresh", h.handleRefresh)
	r.Get("/session", h.handleSession)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
}

type sessionResponse struct {
	Principal Principal `json:"principal"`
	IsLoading bool      `json:"isLoading"`
	State     string    `json:"state"`
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	email := sanitize.Email(req.Email)
	if !email.Valid || req.Password == "" {
		httpx.Fail(w, http.StatusBadRequest, MsgInvalidEmail)
		return
	}

	// Throttle before any credential work; a throttled caller must not
	// learn whether the password was right.
	if !h.limiter.Allow(r.Context(), "login:"+email.Value, loginLimit, loginWindow) {
		httpx.Fail(w, http.StatusTooManyRequests, MsgRateLimited)
		return
	}

	gate := NewGate(h.service, h.resolver, h.logger)
	principal, err := gate.SignIn(r.Context(), email.Value, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, shared.ErrAccountLocked) {
			status = http.StatusTooManyRequests
		}
		httpx.Fail(w, status, UserMessage(err))
		return
	}

	h.establishSession(w, r, principal)
	httpx.OK(w, sessionResponse{Principal: principal, IsLoading: gate.IsLoading(), State: gate.State().String()})
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	email := sanitize.Email(req.Email)
	if !email.Valid {
		httpx.Fail(w, http.StatusBadRequest, MsgInvalidEmail)
		return
	}
	name := sanitize.Name(req.Name)
	if !name.Valid {
		httpx.Fail(w, http.StatusBadRequest, name.Errors[0])
		return
	}

	gate := NewGate(h.service, h.resolver, h.logger)
	principal, confirmationPending, err := gate.SignUp(r.Context(), email.Value, name.Value, req.Password)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, UserMessage(err))
		return
	}
	if confirmationPending {
		httpx.OKMessage(w, MsgCheckYourEmail)
		return
	}

	h.establishSession(w, r, principal)
	httpx.OK(w, sessionResponse{Principal: principal, IsLoading: gate.IsLoading(), State: gate.State().String()})
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	gate := NewGate(h.service, h.resolver, h.logger)
	gate.SignOut(r.Context(), func(ctx context.Context) error {
		if sess == nil {
			return nil
		}
		return h.service.RemoveSession(ctx, sess.ID)
	})
	if sess != nil {
		h.sessionManager.Destroy(sess)
	}
	httpx.OKMessage(w, "signed out")
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	email := sanitize.Email(req.Email)
	if !email.Valid {
		httpx.Fail(w, http.StatusBadRequest, MsgInvalidEmail)
		return
	}
	// Same response either way; existence is never revealed.
	h.service.RequestPasswordReset(r.Context(), h.tokens, email.Value)
	httpx.OKMessage(w, "If the account exists, a reset link has been sent")
}

func (h *Handler) handleResetPasswordConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "token and password are required")
		return
	}
	if err := h.service.ResetPassword(r.Context(), h.tokens, req.Token, req.Password); err != nil {
		httpx.Fail(w, http.StatusBadRequest, UserMessage(err))
		return
	}
	httpx.OKMessage(w, "password updated")
}

func (h *Handler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.sessionUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req struct {
		Password string `json:"password" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.UpdatePassword(r.Context(), userID, req.Password); err != nil {
		httpx.Fail(w, http.StatusBadRequest, UserMessage(err))
		return
	}
	httpx.OKMessage(w, "password updated")
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	userID, ok := h.sessionUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	gate := NewGate(h.service, h.resolver, h.logger)
	gate.Resume(r.Context(), userID, "")
	gate.Refresh(r.Context())
	principal, _ := gate.Principal()

	// Re-save extends the redis TTL; the cookie is refreshed on commit.
	if sess != nil {
		if err := h.sessionManager.Save(r.Context(), sess); err != nil {
			h.logger.Warn("refresh session save", slog.Any("error", err))
		}
	}
	httpx.OK(w, sessionResponse{Principal: principal, IsLoading: gate.IsLoading(), State: gate.State().String()})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := h.sessionUserID(r)
	gate := NewGate(h.service, h.resolver, h.logger)
	gate.Resume(r.Context(), userID, "")
	principal, _ := gate.Principal()
	httpx.OK(w, sessionResponse{Principal: principal, IsLoading: gate.IsLoading(), State: gate.State().String()})
}

func (h *Handler) establishSession(w http.ResponseWriter, r *http.Request, principal Principal) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during sign in")
		return
	}
	sess.SetUser(strconv.FormatInt(principal.UserID, 10))
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, principal.UserID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
}

func (h *Handler) sessionUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
