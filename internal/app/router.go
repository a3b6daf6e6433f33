package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/comptoir/comptoir/internal/accounts"
	"github.com/comptoir/comptoir/internal/auth"
	"github.com/comptoir/comptoir/internal/billing"
	"github.com/comptoir/comptoir/internal/catalog"
	"github.com/comptoir/comptoir/internal/notify"
	"github.com/comptoir/comptoir/internal/payments"
	"github.com/comptoir/comptoir/internal/stock"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Guard           *auth.Middleware
	AuthHandler     *auth.Handler
	CatalogHandler  *catalog.Handler
	StockHandler    *stock.Handler
	BillingHandler  *billing.Handler
	PaymentsHandler *payments.Handler
	AccountsHandler *accounts.Handler
	NotifyHandler   *notify.Handler
}

// NewRouter constructs the chi.Router with the default middleware chain and
// every module mounted under /api/v1.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
		params.CatalogHandler.MountRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(params.Guard.RequireAdmin)
			params.StockHandler.MountRoutes(r)
		})
		params.BillingHandler.MountRoutes(r)
		params.PaymentsHandler.MountRoutes(r)
		params.AccountsHandler.MountRoutes(r)
		params.NotifyHandler.MountRoutes(r)
	})

	return r
}
