package handler

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeDocument sends an export as a download. HTML opens inline so the
// browser can show its print dialog.
func writeDocument(w http.ResponseWriter, doc *domain.ExportDocument) {
	disposition := "attachment"
	if doc.ContentType == "text/html; charset=utf-8" {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": doc.Filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Body)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var validation *domain.ErrValidation
	var unavailable *domain.ErrUnavailable
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &unavailable):
		logger.Warn("feature unavailable", zap.String("feature", unavailable.Feature))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, "upstream timeout")
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
