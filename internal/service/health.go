package service

import (
	"context"
	"sort"
	"time"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
	"github.com/boddenberg/branch-dashboard-bfa/internal/port"
)

const healthCheckTimeout = 2 * time.Second

// HealthService reports the state of the BFA's dependencies.
type HealthService struct {
	deps map[string]port.Pinger
}

// NewHealthService creates a health service over named dependencies.
// Nil pingers are ignored.
func NewHealthService(deps map[string]port.Pinger) *HealthService {
	clean := make(map[string]port.Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			clean[name] = p
		}
	}
	return &HealthService{deps: clean}
}

// Check pings every dependency. A failing dependency degrades the BFA; the
// report still works without a cache or PDF renderer.
func (h *HealthService) Check(ctx context.Context) domain.HealthStatus {
	now := time.Now().UTC().Format(time.RFC3339)
	services := []domain.ServiceHealth{
		{Name: "bfa-api", Status: "healthy", LastChecked: now},
	}

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := "healthy"
	for _, name := range names {
		pctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		start := time.Now()
		err := h.deps[name].Ping(pctx)
		cancel()

		s := domain.ServiceHealth{
			Name:        name,
			Status:      "healthy",
			LatencyMs:   time.Since(start).Milliseconds(),
			LastChecked: now,
		}
		if err != nil {
			s.Status = "degraded"
			s.Error = err.Error()
			overall = "degraded"
		}
		services = append(services, s)
	}

	return domain.HealthStatus{Status: overall, Services: services}
}
