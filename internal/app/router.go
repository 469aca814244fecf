package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/medcabinet/cabinet/internal/analysis"
	"github.com/medcabinet/cabinet/internal/billing"
	"github.com/medcabinet/cabinet/internal/observability"
	"github.com/medcabinet/cabinet/internal/rbac"
	statshttp "github.com/medcabinet/cabinet/internal/statistics/http"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	RBACMiddleware    rbac.Middleware
	BillingHandler    *billing.Handler
	AnalysisHandler   *analysis.Handler
	StatisticsHandler *statshttp.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with cabinet defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		RBAC:    params.RBACMiddleware,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.BillingHandler != nil {
			params.BillingHandler.MountRoutes(r)
		}
		if params.AnalysisHandler != nil {
			params.AnalysisHandler.MountRoutes(r)
		}
		if params.StatisticsHandler != nil {
			params.StatisticsHandler.MountRoutes(r)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
