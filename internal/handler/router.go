package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/observability"
	"github.com/boddenberg/branch-dashboard-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// RouterOptions carries the HTTP-surface settings from config.
type RouterOptions struct {
	// RateLimitPerMinute caps /v1 requests per client IP. 0 disables the limit.
	RateLimitPerMinute int
	// DefaultPageSize applies when the dashboard omits page_size.
	DefaultPageSize int
	// Development relaxes the security headers middleware.
	Development bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(reportSvc *service.ProfitReportService, healthSvc *service.HealthService, metrics *observability.Metrics, logger *zap.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'",
		IsDevelopment:         opts.Development,
	})

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(secureMiddleware.Handler)

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(healthSvc))
	r.Get("/readyz", readyzHandler())
	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.Use(httprate.Limit(opts.RateLimitPerMinute, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				}),
			))
		}

		// =============================================
		// Profit distribution report
		// =============================================
		r.Get("/reports/profit-distribution", listShareholdersHandler(reportSvc, opts.DefaultPageSize, logger))
		r.Post("/reports/profit-distribution", distributeBranchesHandler(reportSvc, logger))
		r.Get("/reports/profit-distribution/export", exportReportHandler(reportSvc, logger))
		r.Delete("/reports/profit-distribution/cache", invalidateReportHandler(reportSvc, logger))

		// =============================================
		// Metrics
		// =============================================
		r.Get("/metrics/reports", reportMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(healthSvc *service.HealthService) http.HandlerFunc {
	if healthSvc == nil {
		healthSvc = service.NewHealthService(nil)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthSvc.Check(r.Context()))
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func reportMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if metrics == nil {
			writeError(w, http.StatusServiceUnavailable, "metrics disabled")
			return
		}
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
