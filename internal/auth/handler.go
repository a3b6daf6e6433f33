package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/comptoir/comptoir/internal/platform/httpx"
)

// Handler exposes the login endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the auth Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// MountRoutes attaches the auth routes. Login attempts are rate limited per IP.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.Post("/auth/login/admin", h.loginAdmin)
		r.Post("/auth/login/client", h.loginClient)
	})
}

func (h *Handler) loginAdmin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.service.LoginAdmin)
}

func (h *Handler) loginClient(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.service.LoginClient)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, email, password string) (LoginResult, error)) {
	var req loginRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := fn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("login failed", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
