package users

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shiftwise/shiftwise/internal/platform/httpx"
	"github.com/shiftwise/shiftwise/internal/ratelimit"
	"github.com/shiftwise/shiftwise/internal/shared"
)

const (
	deletionLimit  = 5
	deletionWindow = 15 * time.Minute
)

// Handler exposes account administration. Deletion is throttled per acting
// admin; the router gates the whole surface behind the admin role.
type Handler struct {
	logger  *slog.Logger
	repo    *PGRepository
	limiter *ratelimit.Limiter
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo *PGRepository, limiter *ratelimit.Limiter) *Handler {
	return &Handler{logger: logger, repo: repo, limiter: limiter}
}

// MountRoutes registers account administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/{userID}/deactivate", h.handleDeactivate)
	r.Post("/{userID}/activate", h.handleActivate)
	r.Delete("/{userID}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Summary{}
	}
	httpx.OK(w, list)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.handleSetActive(w, r, false, "account deactivated")
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	h.handleSetActive(w, r, true, "account activated")
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request, active bool, message string) {
	targetID, ok := pathUserID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.repo.SetActive(r.Context(), targetID, active); err != nil {
		h.logger.Error("set account active",
			slog.Int64("target_id", targetID), slog.Bool("active", active), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, message)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	targetID, ok := pathUserID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if strconv.FormatInt(targetID, 10) == sess.User() {
		httpx.Fail(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	key := fmt.Sprintf("account-delete:%s", sess.User())
	if !h.limiter.Allow(r.Context(), key, deletionLimit, deletionWindow) {
		httpx.RespondError(w, httpx.ErrRateLimited)
		return
	}

	if err := h.repo.Delete(r.Context(), targetID); err != nil {
		h.logger.Error("delete account", slog.Int64("target_id", targetID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, "account deleted")
}

func pathUserID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
