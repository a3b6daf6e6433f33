package stock

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/comptoir/comptoir/internal/platform/httpx"
	"github.com/comptoir/comptoir/internal/shared"
)

// Handler exposes the stock alert endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the stock Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches stock alert routes. Callers wrap them with the admin guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock-alerts", h.list)
	r.Patch("/stock-alerts/{id}/resolve", h.resolve)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := shared.PageParams(r)
	filter := ListFilter{Limit: limit, Offset: (page - 1) * limit}

	if v := r.URL.Query().Get("resolved"); v != "" {
		resolved := v == "true"
		filter.Resolved = &resolved
	}
	if v := r.URL.Query().Get("type"); v != "" {
		t := AlertType(v)
		if t != AlertLowStock && t != AlertOutOfStock {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "type must be low_stock or out_of_stock")
			return
		}
		filter.AlertType = &t
	}

	alerts, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list stock alerts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if alerts == nil {
		alerts = []Alert{}
	}
	httpx.JSON(w, http.StatusOK, alerts)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid alert id")
		return
	}
	alert, err := h.service.Resolve(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, alert)
}
