package notify

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shiftwise/shiftwise/internal/platform/httpx"
	"github.com/shiftwise/shiftwise/internal/shared"
)

// Handler exposes the in-app notification inbox.
type Handler struct {
	logger *slog.Logger
	repo   *PGRepository
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo *PGRepository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers inbox routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/unread-count", h.handleUnreadCount)
	r.Post("/{notificationID}/read", h.handleMarkRead)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.repo.ListForUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list notifications", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Notification{}
	}
	httpx.OK(w, list)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	count, err := h.repo.UnreadCount(r.Context(), userID)
	if err != nil {
		h.logger.Error("count unread notifications", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, map[string]int{"unread": count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	notificationID, err := strconv.ParseInt(chi.URLParam(r, "notificationID"), 10, 64)
	if err != nil || notificationID <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := h.repo.MarkRead(r.Context(), userID, notificationID); err != nil {
		h.logger.Error("mark notification read",
			slog.Int64("user_id", userID), slog.Int64("notification_id", notificationID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, "notification marked read")
}

func sessionUserID(r *http.Request) (int64, bool) {
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
