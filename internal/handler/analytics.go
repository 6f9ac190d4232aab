package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lynks/portal/internal/model"
	"github.com/lynks/portal/internal/service"
)

// AnalyticsProvider assembles dashboard responses.
type AnalyticsProvider interface {
	BusinessAnalytics(ctx context.Context, businessID string, days int) (*model.BusinessAnalytics, error)
	PlatformAnalytics(ctx context.Context, days int) (*model.PlatformAnalytics, error)
	ExportBusinessAnalytics(ctx context.Context, businessID string, days int, format string) ([]byte, string, error)
}

// AnalyticsHandler handles the authenticated dashboard API.
type AnalyticsHandler struct {
	svc    AnalyticsProvider
	logger *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc AnalyticsProvider, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		svc:    svc,
		logger: logger.With("component", "handler.analytics"),
	}
}

// GetPlatformAnalytics handles GET /api/v1/analytics/platform.
func (h *AnalyticsHandler) GetPlatformAnalytics(w http.ResponseWriter, r *http.Request) {
	response, err := h.svc.PlatformAnalytics(r.Context(), parseDays(r))
	if err != nil {
		h.logger.Error("failed to build platform analytics", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch analytics")
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// GetBusinessAnalytics handles GET /api/v1/analytics/businesses/{businessID}.
func (h *AnalyticsHandler) GetBusinessAnalytics(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Business ID is required")
		return
	}

	response, err := h.svc.BusinessAnalytics(r.Context(), businessID, parseDays(r))
	if err != nil {
		if errors.Is(err, service.ErrBusinessNotFound) {
			writeError(w, http.StatusNotFound, "BUSINESS_NOT_FOUND", "Business not found")
			return
		}
		h.logger.Error("failed to build business analytics", "business_id", businessID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch analytics")
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// ExportBusinessAnalytics handles GET /api/v1/analytics/businesses/{businessID}/export.
func (h *AnalyticsHandler) ExportBusinessAnalytics(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Business ID is required")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = service.FormatCSV
	}

	body, contentType, err := h.svc.ExportBusinessAnalytics(r.Context(), businessID, parseDays(r), format)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBusinessNotFound):
			writeError(w, http.StatusNotFound, "BUSINESS_NOT_FOUND", "Business not found")
		case errors.Is(err, service.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, "INVALID_FORMAT", "Supported formats: csv, json")
		default:
			h.logger.Error("failed to export analytics", "business_id", businessID, "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export analytics")
		}
		return
	}

	filename := fmt.Sprintf("analytics-%s-%s.%s", businessID, time.Now().UTC().Format("2006-01-02"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// parseDays reads the days query parameter. Invalid or missing values fall
// through to zero; the service applies the default and cap.
func parseDays(r *http.Request) int {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return days
}
