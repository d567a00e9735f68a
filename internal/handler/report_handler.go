package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
	"github.com/boddenberg/branch-dashboard-bfa/internal/report"
	"github.com/boddenberg/branch-dashboard-bfa/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const maxBodyBytes = 4 << 20

// ============================================================
// Profit distribution report
// ============================================================

// GET /v1/reports/profit-distribution
func listShareholdersHandler(svc *service.ProfitReportService, defaultPageSize int, logger *zap.Logger) http.HandlerFunc {
	if defaultPageSize < 1 {
		defaultPageSize = report.DefaultPageSize
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/profit-distribution")
		defer span.End()

		q, err := parseListQuery(r)
		if err == nil {
			err = validateStruct(q)
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("report.month", q.Month), attribute.Int("report.year", q.Year))

		dist, err := svc.Generate(ctx, q.request())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		pageSize := q.PageSize
		if pageSize == 0 {
			pageSize = defaultPageSize
		}
		writeJSON(w, http.StatusOK, report.Apply(dist, report.Query{
			Search:   q.Search,
			SortBy:   report.SortField(q.Sort),
			Order:    report.SortOrder(q.Order),
			Page:     q.Page,
			PageSize: pageSize,
		}))
	}
}

// POST /v1/reports/profit-distribution
func distributeBranchesHandler(svc *service.ProfitReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports/profit-distribution")
		defer span.End()

		var req distributeRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validateStruct(req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("report.branches", len(req.Branches)))

		dist, err := svc.GenerateFromBranches(ctx, req.Branches, domain.ReportRequest{
			Month:     req.Month,
			Year:      req.Year,
			KeyPolicy: req.Key,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dist)
	}
}

// GET /v1/reports/profit-distribution/export
func exportReportHandler(svc *service.ProfitReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/profit-distribution/export")
		defer span.End()

		period, err := parsePeriod(r)
		q := exportQuery{periodQuery: period, Format: r.URL.Query().Get("format")}
		if err == nil {
			err = validateStruct(q)
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("export.format", q.Format))

		dist, err := svc.Generate(ctx, q.request())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		doc, err := svc.Export(ctx, dist, q.Format)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeDocument(w, doc)
	}
}

// DELETE /v1/reports/profit-distribution/cache
func invalidateReportHandler(svc *service.ProfitReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parsePeriod(r)
		if err == nil {
			err = validateStruct(q)
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		svc.Invalidate(q.Month, q.Year)
		w.WriteHeader(http.StatusNoContent)
	}
}
