package observability

import (
	"time"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	reportsTotal    *prometheus.CounterVec
	branchesSkipped prometheus.Counter
	exportsTotal    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		reportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_reports_total",
				Help: "Profit distribution reports by outcome (complete, partial, error).",
			},
			[]string{"status"},
		),
		branchesSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bfa_branches_skipped_total",
				Help: "Branches excluded from a report because their savings fetch failed.",
			},
		),
		exportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_exports_total",
				Help: "Report exports by format.",
			},
			[]string{"format"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordReport counts a finished report and the branches it skipped.
func (m *Metrics) RecordReport(dist *domain.ProfitDistribution) {
	status := "complete"
	if dist.Partial() {
		status = "partial"
	}
	m.reportsTotal.WithLabelValues(status).Inc()
	m.branchesSkipped.Add(float64(len(dist.SkippedBranches)))
}

// IncrReportError counts a report that could not be produced at all.
func (m *Metrics) IncrReportError() {
	m.reportsTotal.WithLabelValues("error").Inc()
}

// IncrExport counts an export by format.
func (m *Metrics) IncrExport(format string) {
	m.exportsTotal.WithLabelValues(format).Inc()
}

// Snapshot returns cumulative report metrics suitable for the
// GET /v1/metrics/reports endpoint.
func (m *Metrics) Snapshot() *domain.ReportMetrics {
	complete := getCounterValue(m.reportsTotal, "complete")
	partial := getCounterValue(m.reportsTotal, "partial")
	failed := getCounterValue(m.reportsTotal, "error")
	hits := getCounterValue(m.cacheHits, "report")
	misses := getCounterValue(m.cacheMisses, "report")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.ReportMetrics{
		TotalReports:    int64(complete + partial + failed),
		PartialReports:  int64(partial),
		SkippedBranches: int64(metricValue(m.branchesSkipped)),
		CacheHitRate:    hitRate,
		ExternalErrors: int64(getCounterValue(m.externalErrors, "branches") +
			getCounterValue(m.externalErrors, "savings")),
		Period: "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return metricValue(cv.WithLabelValues(label))
}

func metricValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
