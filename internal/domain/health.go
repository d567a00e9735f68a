package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// ReportMetrics is returned by GET /v1/metrics/reports.
type ReportMetrics struct {
	TotalReports    int64   `json:"totalReports"`
	PartialReports  int64   `json:"partialReports"`
	SkippedBranches int64   `json:"skippedBranches"`
	CacheHitRate    float64 `json:"cacheHitRate"`
	ExternalErrors  int64   `json:"externalErrors"`
	Period          string  `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps paginated list results.
type ListResponse[T any] struct {
	Data     []T  `json:"data"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}
