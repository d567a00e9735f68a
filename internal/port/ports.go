// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
)

// BranchFetcher retrieves branches (with embedded shareholders) from the dashboard API.
type BranchFetcher interface {
	ListBranches(ctx context.Context) ([]domain.Branch, error)
}

// SavingsFetcher retrieves the monthly savings deductions of one branch.
type SavingsFetcher interface {
	GetMonthlySavings(ctx context.Context, branchID string, month, year int) ([]domain.MonthlySaving, error)
}

// PDFRenderer converts an HTML document into PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
