package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lumenfab/lumenfab/internal/bom"
	"github.com/lumenfab/lumenfab/internal/ledger"
	"github.com/lumenfab/lumenfab/internal/masterdata"
	"github.com/lumenfab/lumenfab/internal/observability"
	"github.com/lumenfab/lumenfab/internal/orders"
	"github.com/lumenfab/lumenfab/internal/production"
	"github.com/lumenfab/lumenfab/internal/purchasing"
	"github.com/lumenfab/lumenfab/internal/sales"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	MasterDataHandler *masterdata.Handler
	LedgerHandler     *ledger.Handler
	BOMHandler        *bom.Handler
	PurchasingHandler *purchasing.Handler
	ProductionHandler *production.Handler
	SalesHandler      *sales.Handler
	OrdersHandler     *orders.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Lumenfab defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.MasterDataHandler != nil {
		r.Route("/masterdata", params.MasterDataHandler.MountRoutes)
	}
	if params.LedgerHandler != nil {
		r.Route("/stock", params.LedgerHandler.MountRoutes)
	}
	if params.BOMHandler != nil {
		r.Route("/boms", params.BOMHandler.MountRoutes)
	}
	if params.PurchasingHandler != nil {
		r.Route("/purchase-orders", params.PurchasingHandler.MountRoutes)
	}
	if params.ProductionHandler != nil {
		r.Route("/production-orders", params.ProductionHandler.MountRoutes)
	}
	if params.SalesHandler != nil {
		r.Route("/sales-orders", params.SalesHandler.MountRoutes)
	}
	if params.OrdersHandler != nil {
		r.Route("/orders", params.OrdersHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
