package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/branch-dashboard-bfa/internal/config"
	"github.com/boddenberg/branch-dashboard-bfa/internal/distribution"
	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
	"github.com/boddenberg/branch-dashboard-bfa/internal/handler"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/cache"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/client"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/observability"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/resilience"
	"github.com/boddenberg/branch-dashboard-bfa/internal/port"
	"github.com/boddenberg/branch-dashboard-bfa/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("dashboard_api_url", cfg.DashboardAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("report_cache_ttl", cfg.ReportCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.String("default_key_policy", cfg.DefaultKeyPolicy),
	)

	policy, err := distribution.ParseKeyPolicy(cfg.DefaultKeyPolicy)
	if err != nil {
		logger.Fatal("invalid DEFAULT_KEY_POLICY", zap.Error(err))
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "branch-dashboard-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	deps := map[string]port.Pinger{}
	var reportCache port.Cache[*domain.ProfitDistribution]
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer rdb.Close()
		redisCache := cache.NewRedis[*domain.ProfitDistribution](rdb, "bfa:", cfg.ReportCacheTTL, logger)
		reportCache = redisCache
		deps["redis"] = redisCache
		logger.Info("using redis report cache", zap.String("addr", cfg.RedisAddr))
	} else {
		memCache := cache.New[*domain.ProfitDistribution](cfg.ReportCacheTTL)
		defer memCache.Close()
		reportCache = memCache
		logger.Info("using in-memory report cache")
	}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	branchesCB := resilience.NewCircuitBreaker("dashboard-branches", logger)
	savingsCB := resilience.NewTransportCircuitBreaker("dashboard-savings", logger)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	dashboard := client.NewDashboardClient(httpClient, cfg.DashboardAPIURL, cfg.DashboardAPIToken, branchesCB, savingsCB, resilienceCfg)

	var pdf port.PDFRenderer
	if cfg.GotenbergURL != "" {
		gotenberg := client.NewGotenbergClient(
			&http.Client{Timeout: 2 * cfg.HTTPTimeout},
			cfg.GotenbergURL,
			resilience.NewCircuitBreaker("gotenberg", logger),
		)
		pdf = gotenberg
		deps["gotenberg"] = gotenberg
		logger.Info("pdf export enabled", zap.String("gotenberg_url", cfg.GotenbergURL))
	} else {
		logger.Warn("pdf export: GOTENBERG_URL not configured, pdf format unavailable")
	}

	// --- Services ---
	calc := distribution.New(dashboard,
		distribution.WithKeyPolicy(policy),
		distribution.WithMaxConcurrency(cfg.MaxConcurrency),
		distribution.WithLogger(logger),
	)
	reportSvc := service.NewProfitReportService(dashboard, calc, reportCache, pdf, metrics, logger)
	healthSvc := service.NewHealthService(deps)

	// --- Router ---
	router := handler.NewRouter(reportSvc, healthSvc, metrics, logger, handler.RouterOptions{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DefaultPageSize:    cfg.DefaultPageSize,
		Development:        cfg.IsDevelopment(),
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
