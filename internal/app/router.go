package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/clearbooks/clearbooks/internal/accounts"
	"github.com/clearbooks/clearbooks/internal/assets"
	"github.com/clearbooks/clearbooks/internal/auditor"
	"github.com/clearbooks/clearbooks/internal/fiscal"
	"github.com/clearbooks/clearbooks/internal/inventory"
	ledgerhttp "github.com/clearbooks/clearbooks/internal/ledger/http"
	"github.com/clearbooks/clearbooks/internal/mapping"
	"github.com/clearbooks/clearbooks/internal/observability"
	"github.com/clearbooks/clearbooks/internal/reports"
	"github.com/clearbooks/clearbooks/internal/reval"
	"github.com/clearbooks/clearbooks/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	LedgerHandler    *ledgerhttp.Handler
	AccountsHandler  *accounts.Handler
	MappingHandler   *mapping.Handler
	FiscalHandler    *fiscal.Handler
	AssetsHandler    *assets.Handler
	RevalHandler     *reval.Handler
	AuditorHandler   *auditor.Handler
	ReportsHandler   *reports.Handler
	InventoryHandler *inventory.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Clearbooks defaults.
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

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if params.LedgerHandler != nil {
			api.Route("/journal-entries", params.LedgerHandler.MountRoutes)
		}
		if params.AccountsHandler != nil {
			api.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
		if params.MappingHandler != nil {
			api.Route("/account-map", params.MappingHandler.MountRoutes)
		}
		if params.FiscalHandler != nil {
			api.Route("/fiscal-years", params.FiscalHandler.MountRoutes)
		}
		if params.AssetsHandler != nil {
			api.Route("/assets", params.AssetsHandler.MountRoutes)
		}
		if params.RevalHandler != nil {
			api.Route("/revaluation", params.RevalHandler.MountRoutes)
		}
		if params.AuditorHandler != nil {
			api.Route("/audit", params.AuditorHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			api.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			api.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
