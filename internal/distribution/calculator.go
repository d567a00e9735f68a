package distribution

import (
	"context"
	"time"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/resilience"
	"github.com/boddenberg/branch-dashboard-bfa/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("distribution")

const defaultMaxConcurrency = 8

// Calculator fetches monthly savings for every branch concurrently and then
// reduces them with Calculate.
type Calculator struct {
	savings        port.SavingsFetcher
	policy         KeyPolicy
	maxConcurrency int
	logger         *zap.Logger
	now            func() time.Time
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithKeyPolicy sets the default shareholder key policy.
func WithKeyPolicy(p KeyPolicy) Option {
	return func(c *Calculator) { c.policy = p }
}

// WithMaxConcurrency bounds the number of in-flight savings fetches.
func WithMaxConcurrency(n int) Option {
	return func(c *Calculator) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithLogger sets the logger used for per-branch fetch failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Calculator) { c.logger = l }
}

// WithClock overrides the clock stamping GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

// New creates a Calculator reading savings from fetcher.
func New(fetcher port.SavingsFetcher, opts ...Option) *Calculator {
	c := &Calculator{
		savings:        fetcher,
		policy:         KeyByName,
		maxConcurrency: defaultMaxConcurrency,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// KeyPolicy returns the calculator's default key policy.
func (c *Calculator) KeyPolicy() KeyPolicy {
	return c.policy
}

// Distribute runs a report for month/year with the default key policy.
func (c *Calculator) Distribute(ctx context.Context, branches []domain.Branch, month, year int) (*domain.ProfitDistribution, error) {
	return c.DistributeBy(ctx, c.policy, branches, month, year)
}

// DistributeBy runs a report with an explicit key policy.
//
// A failed savings fetch never fails the report: the branch is logged and
// listed in SkippedBranches. The only error is the context's, when the caller
// gave up before the fetches completed.
func (c *Calculator) DistributeBy(ctx context.Context, policy KeyPolicy, branches []domain.Branch, month, year int) (*domain.ProfitDistribution, error) {
	ctx, span := tracer.Start(ctx, "Calculator.Distribute")
	defer span.End()
	span.SetAttributes(
		attribute.Int("report.month", month),
		attribute.Int("report.year", year),
		attribute.Int("report.branches", len(branches)),
		attribute.String("report.key", string(policy)),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	savings := c.fetchAll(ctx, branches, month, year)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dist := Calculate(branches, savings, policy)
	dist.ReportID = uuid.NewString()
	dist.Month = month
	dist.Year = year
	dist.GeneratedAt = c.now().UTC()

	span.SetAttributes(attribute.Int("report.skipped", len(dist.SkippedBranches)))
	c.logger.Debug("profit distribution computed",
		zap.String("report_id", dist.ReportID),
		zap.Int("branches", dist.BranchCount),
		zap.Int("skipped", len(dist.SkippedBranches)),
		zap.Int("shareholders", len(dist.ShareholderData)),
	)
	return &dist, nil
}

// fetchAll issues one savings read per branch. Each goroutine writes only its
// own slot, so the reduce sees results in input order.
func (c *Calculator) fetchAll(ctx context.Context, branches []domain.Branch, month, year int) []BranchSavings {
	results := make([]BranchSavings, len(branches))
	bulkhead := resilience.NewBulkhead(c.maxConcurrency)

	var g errgroup.Group
	for i, branch := range branches {
		g.Go(func() error {
			if err := bulkhead.Acquire(ctx); err != nil {
				results[i].Err = err
				return nil
			}
			defer bulkhead.Release()

			s, err := c.savings.GetMonthlySavings(ctx, branch.ID, month, year)
			if err != nil {
				c.logger.Warn("savings fetch failed, branch excluded from report",
					zap.String("branch_id", branch.ID),
					zap.String("branch_name", branch.Name),
					zap.Int("month", month),
					zap.Int("year", year),
					zap.Error(err),
				)
				results[i].Err = err
				return nil
			}
			results[i].Savings = s
			return nil
		})
	}
	_ = g.Wait()

	return results
}
