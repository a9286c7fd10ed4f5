package roles

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shiftwise/shiftwise/internal/platform/httpx"
	"github.com/shiftwise/shiftwise/internal/ratelimit"
	"github.com/shiftwise/shiftwise/internal/shared"
)

const (
	assignmentLimit  = 10
	assignmentWindow = 15 * time.Minute
)

// Handler exposes role-assignment endpoints. Both mutations are sensitive:
// they are admin-gated by the router and throttled per acting user here.
type Handler struct {
	logger    *slog.Logger
	repo      *PGRepository
	limiter   *ratelimit.Limiter
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo *PGRepository, limiter *ratelimit.Limiter) *Handler {
	return &Handler{
		logger:    logger,
		repo:      repo,
		limiter:   limiter,
		validator: validator.New(),
	}
}

// MountRoutes registers role routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/assign", h.handleAssign)
	r.Post("/remove", h.handleRemove)
}

type roleMutationRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Role   string `json:"role" validate:"required,oneof=admin hr employer manager payroll employee"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, h.repo.AssignRole, "role assigned")
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, h.repo.RemoveRole, "role removed")
}

func (h *Handler) handleMutation(w http.ResponseWriter, r *http.Request, mutate func(context.Context, int64, string) error, message string) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	key := fmt.Sprintf("role-assign:%s", sess.User())
	if !h.limiter.Allow(r.Context(), key, assignmentLimit, assignmentWindow) {
		httpx.RespondError(w, httpx.ErrRateLimited)
		return
	}

	var req roleMutationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "user_id and a known role are required")
		return
	}

	if err := mutate(r.Context(), req.UserID, req.Role); err != nil {
		h.logger.Error("role mutation", slog.Int64("user_id", req.UserID), slog.String("role", req.Role), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, message)
}
