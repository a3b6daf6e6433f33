package notify

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/comptoir/comptoir/internal/auth"
	"github.com/comptoir/comptoir/internal/platform/httpx"
	"github.com/comptoir/comptoir/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   *auth.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, guard *auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin)
		r.Get("/notifications", h.list)
		r.Post("/notifications/dispatch-pending", h.dispatchPending)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := shared.PageParams(r)
	filter := ListFilter{Limit: limit, Offset: (page - 1) * limit}

	if v := r.URL.Query().Get("type"); v != "" {
		t := Type(v)
		filter.Type = &t
	}
	if v := r.URL.Query().Get("is_sent"); v != "" {
		sent, err := strconv.ParseBool(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "is_sent must be a boolean")
			return
		}
		filter.IsSent = &sent
	}

	notifications, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if notifications == nil {
		notifications = []Notification{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"pagination":    shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) dispatchPending(w http.ResponseWriter, r *http.Request) {
	queued, err := h.service.DispatchPending(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"queued": queued})
}
