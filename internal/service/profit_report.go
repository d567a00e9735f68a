// Package service provides the business logic layer (use cases).
// ProfitReportService produces shareholder profit distribution reports from
// the dashboard API and renders their exports.
package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/branch-dashboard-bfa/internal/distribution"
	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/observability"
	"github.com/boddenberg/branch-dashboard-bfa/internal/port"
	"github.com/boddenberg/branch-dashboard-bfa/internal/report"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/profit_report")

// Export formats.
const (
	FormatHTML = "html"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// ProfitReportService orchestrates branch fetch, distribution, caching and export.
type ProfitReportService struct {
	branches port.BranchFetcher
	calc     *distribution.Calculator
	cache    port.Cache[*domain.ProfitDistribution]
	pdf      port.PDFRenderer
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewProfitReportService creates the report service with all dependencies
// injected. pdf may be nil, which disables PDF export.
func NewProfitReportService(
	branches port.BranchFetcher,
	calc *distribution.Calculator,
	cache port.Cache[*domain.ProfitDistribution],
	pdf port.PDFRenderer,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ProfitReportService {
	return &ProfitReportService{
		branches: branches,
		calc:     calc,
		cache:    cache,
		pdf:      pdf,
		metrics:  metrics,
		logger:   logger,
	}
}

func cacheKey(policy distribution.KeyPolicy, month, year int) string {
	return fmt.Sprintf("report:%s:%04d-%02d", policy, year, month)
}

func (s *ProfitReportService) resolve(req domain.ReportRequest) (distribution.KeyPolicy, error) {
	if req.Month < 1 || req.Month > 12 {
		return "", &domain.ErrValidation{Field: "month", Message: "must be between 1 and 12"}
	}
	if req.Year < 1000 || req.Year > 9999 {
		return "", &domain.ErrValidation{Field: "year", Message: "must be a 4-digit year"}
	}
	if req.KeyPolicy == "" {
		return s.calc.KeyPolicy(), nil
	}
	return distribution.ParseKeyPolicy(req.KeyPolicy)
}

// Generate fetches all branches from the dashboard API and distributes their
// profit for the requested period. Complete reports are cached; partial ones
// (a branch's savings could not be fetched) are not.
func (s *ProfitReportService) Generate(ctx context.Context, req domain.ReportRequest) (*domain.ProfitDistribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ProfitReportService.Generate")
	defer span.End()
	span.SetAttributes(attribute.Int("report.month", req.Month), attribute.Int("report.year", req.Year))

	policy, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("profit_report", time.Since(start))
	}()

	key := cacheKey(policy, req.Month, req.Year)
	if cached, ok := s.cache.Get(key); ok && cached != nil {
		s.metrics.IncrCacheHit("report")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("report")

	branches, err := s.branches.ListBranches(ctx)
	if err != nil {
		s.logger.Error("failed to fetch branches",
			zap.Int("month", req.Month),
			zap.Int("year", req.Year),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("branches")
		s.metrics.IncrReportError()
		return nil, fmt.Errorf("branches fetch: %w", err)
	}

	dist, err := s.distribute(ctx, policy, branches, req)
	if err != nil {
		return nil, err
	}

	if !dist.Partial() {
		s.cache.Set(key, dist)
	}
	return dist, nil
}

// GenerateFromBranches distributes caller-supplied branches. Nothing is cached.
func (s *ProfitReportService) GenerateFromBranches(ctx context.Context, branches []domain.Branch, req domain.ReportRequest) (*domain.ProfitDistribution, error) {
	ctx, span := tracer.Start(ctx, "ProfitReportService.GenerateFromBranches")
	defer span.End()

	policy, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	return s.distribute(ctx, policy, branches, req)
}

func (s *ProfitReportService) distribute(ctx context.Context, policy distribution.KeyPolicy, branches []domain.Branch, req domain.ReportRequest) (*domain.ProfitDistribution, error) {
	dist, err := s.calc.DistributeBy(ctx, policy, branches, req.Month, req.Year)
	if err != nil {
		s.metrics.IncrReportError()
		return nil, fmt.Errorf("distribute: %w", err)
	}

	s.metrics.RecordReport(dist)
	for range dist.SkippedBranches {
		s.metrics.IncrExternalError("savings")
	}
	if dist.Partial() {
		s.logger.Warn("partial profit distribution",
			zap.String("report_id", dist.ReportID),
			zap.Strings("skipped_branches", dist.SkippedBranches),
		)
	}

	s.logger.Info("profit distribution generated",
		zap.String("report_id", dist.ReportID),
		zap.Int("month", dist.Month),
		zap.Int("year", dist.Year),
		zap.String("key", dist.KeyPolicy),
		zap.Int("branches", dist.BranchCount),
		zap.Int("shareholders", len(dist.ShareholderData)),
		zap.Float64("total_profit", dist.TotalProfit),
	)
	return dist, nil
}

// Invalidate drops cached reports of a period for every key policy.
func (s *ProfitReportService) Invalidate(month, year int) {
	for _, p := range []distribution.KeyPolicy{distribution.KeyByName, distribution.KeyByQuid} {
		s.cache.Delete(cacheKey(p, month, year))
	}
	s.logger.Info("report cache invalidated", zap.Int("month", month), zap.Int("year", year))
}

// Export renders the full distribution in the given format.
func (s *ProfitReportService) Export(ctx context.Context, dist *domain.ProfitDistribution, format string) (*domain.ExportDocument, error) {
	ctx, span := tracer.Start(ctx, "ProfitReportService.Export")
	defer span.End()
	span.SetAttributes(attribute.String("export.format", format))

	base := fmt.Sprintf("profit-distribution-%04d-%02d", dist.Year, dist.Month)

	var doc *domain.ExportDocument
	switch format {
	case FormatHTML:
		var buf bytes.Buffer
		if err := report.RenderHTML(&buf, dist, report.HTMLOptions{AutoPrint: true}); err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
		doc = &domain.ExportDocument{Filename: base + ".html", ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}

	case FormatXLSX:
		var buf bytes.Buffer
		if err := report.RenderXLSX(&buf, dist); err != nil {
			return nil, fmt.Errorf("render xlsx: %w", err)
		}
		doc = &domain.ExportDocument{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        buf.Bytes(),
		}

	case FormatPDF:
		if s.pdf == nil {
			return nil, &domain.ErrUnavailable{Feature: "pdf export"}
		}
		html, err := report.HTMLString(dist, report.HTMLOptions{})
		if err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
		pdf, err := s.pdf.RenderHTML(ctx, html)
		if err != nil {
			s.metrics.IncrExternalError("gotenberg")
			return nil, fmt.Errorf("render pdf: %w", err)
		}
		doc = &domain.ExportDocument{Filename: base + ".pdf", ContentType: "application/pdf", Body: pdf}

	default:
		return nil, &domain.ErrValidation{Field: "format", Message: "must be one of: html, xlsx, pdf"}
	}

	s.metrics.IncrExport(format)
	return doc, nil
}
