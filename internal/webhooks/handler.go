package webhooks

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shiftwise/shiftwise/internal/platform/httpx"
	"github.com/shiftwise/shiftwise/internal/sanitize"
	"github.com/shiftwise/shiftwise/internal/shared"
)

// Handler exposes per-user webhook settings.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validator: validator.New()}
}

// MountRoutes registers webhook settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/settings", h.handleGet)
	r.Put("/settings", h.handleSave)
}

type settingRequest struct {
	ChannelType        string `json:"channel_type" validate:"required,oneof=chat webhook"`
	TargetURL          string `json:"target_url" validate:"omitempty,url,max=500"`
	NotifyShiftSwaps   bool   `json:"notify_shift_swaps"`
	NotifyAvailability bool   `json:"notify_availability"`
	NotifyLeave        bool   `json:"notify_leave"`
	NotifyAttendance   bool   `json:"notify_attendance"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	setting, err := h.repo.ForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("load webhook setting", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, setting)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req settingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "channel_type must be chat or webhook and target_url must be a valid URL")
		return
	}

	url := sanitize.Text(req.TargetURL, 500)
	setting := Setting{
		UserID:             userID,
		ChannelType:        req.ChannelType,
		TargetURL:          url.Value,
		NotifyShiftSwaps:   req.NotifyShiftSwaps,
		NotifyAvailability: req.NotifyAvailability,
		NotifyLeave:        req.NotifyLeave,
		NotifyAttendance:   req.NotifyAttendance,
	}
	if err := h.repo.Upsert(r.Context(), setting); err != nil {
		h.logger.Error("save webhook setting", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, "webhook settings saved")
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
