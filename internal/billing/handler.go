package billing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

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

// MountRoutes attaches bill routes. Clients create bills and see their own;
// everything that crosses client boundaries requires the admin role.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireClient)
		r.Post("/bills", h.create)
		r.Get("/bills/my", h.listMine)
		r.Get("/bills/my/count", h.countMine)
		r.Get("/bills/my/unpaid-count", h.countMineUnpaid)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticate)
		r.Get("/bills/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin)
		r.Get("/bills", h.list)
		r.Get("/bills/summary", h.summary)
		r.Get("/bills/statistics", h.statistics)
		r.Get("/bills/admin/{id}", h.getDetailed)
		r.Post("/bills/{id}/pay", h.pay)
		r.Patch("/bills/{id}/correct-total-paid", h.correctTotalPaid)
		r.Patch("/bills/{id}/delivery-status", h.setDeliveryStatus)
		r.Delete("/bills/{id}", h.delete)
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req CreateBillRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.Create(r.Context(), principal.ID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	page, limit := shared.PageParams(r)

	bills, err := h.service.ListByClient(r.Context(), principal.ID, page, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if bills == nil {
		bills = []Bill{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bills": bills})
}

func (h *Handler) countMine(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	count, err := h.service.CountByClient(r.Context(), principal.ID, nil)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) countMineUnpaid(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	status := StatusNotPaid
	count, err := h.service.CountByClient(r.Context(), principal.ID, &status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"count": count})
}

// get serves a single bill to its owner or to any admin.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	principal, _ := auth.PrincipalFromContext(r.Context())

	bill, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !principal.IsAdmin() && bill.ClientID != principal.ID {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) getDetailed(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	bill, err := h.service.GetWithClient(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := shared.PageParams(r)
	req := ListBillsRequest{Page: page, Limit: limit}

	if v := r.URL.Query().Get("client_id"); v != "" {
		clientID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid client id")
			return
		}
		req.ClientID = &clientID
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := Status(v)
		req.Status = &status
	}

	bills, total, err := h.service.List(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if bills == nil {
		bills = []BillWithClient{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"bills":      bills,
		"pagination": shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req PayBillRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.Pay(r.Context(), id, req.Amount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) correctTotalPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req CorrectTotalPaidRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.CorrectTotalPaid(r.Context(), id, req.TotalPaid)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) setDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	var req DeliveryStatusRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.SetDeliveryStatus(r.Context(), id, req.DeliveryStatus)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("bill summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	req := StatisticsRequest{GroupBy: "month"}
	q := r.URL.Query()

	if v := q.Get("group_by"); v != "" {
		req.GroupBy = v
	}
	if _, ok := periodFormats[req.GroupBy]; !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "group_by must be day, month or year")
		return
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
			return
		}
		req.Year = &year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid month")
			return
		}
		req.Month = &month
	}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
			return
		}
		req.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
			return
		}
		req.To = &to
	}

	buckets, err := h.service.Statistics(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if buckets == nil {
		buckets = []PeriodSummary{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"statistics": buckets, "group_by": req.GroupBy})
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid bill id")
		return 0, false
	}
	return id, true
}
