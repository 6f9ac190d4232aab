package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/lynks/portal/internal/model"
	"github.com/lynks/portal/internal/service"
)

type stubAnalyticsProvider struct {
	business     *model.BusinessAnalytics
	platform     *model.PlatformAnalytics
	exportBody   []byte
	exportType   string
	err          error
	lastDays     int
	lastFormat   string
	lastBusiness string
}

func (s *stubAnalyticsProvider) BusinessAnalytics(_ context.Context, businessID string, days int) (*model.BusinessAnalytics, error) {
	s.lastBusiness = businessID
	s.lastDays = days
	if s.err != nil {
		return nil, s.err
	}
	return s.business, nil
}

func (s *stubAnalyticsProvider) PlatformAnalytics(_ context.Context, days int) (*model.PlatformAnalytics, error) {
	s.lastDays = days
	if s.err != nil {
		return nil, s.err
	}
	return s.platform, nil
}

func (s *stubAnalyticsProvider) ExportBusinessAnalytics(_ context.Context, businessID string, days int, format string) ([]byte, string, error) {
	s.lastBusiness = businessID
	s.lastDays = days
	s.lastFormat = format
	if s.err != nil {
		return nil, "", s.err
	}
	return s.exportBody, s.exportType, nil
}

// analyticsRouter mounts the handler the way the real router does, so
// chi.URLParam extraction is exercised.
func analyticsRouter(h *AnalyticsHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/v1/analytics/platform", h.GetPlatformAnalytics)
	r.Get("/api/v1/analytics/businesses/{businessID}", h.GetBusinessAnalytics)
	r.Get("/api/v1/analytics/businesses/{businessID}/export", h.ExportBusinessAnalytics)
	return r
}

func TestGetPlatformAnalytics(t *testing.T) {
	stub := &stubAnalyticsProvider{platform: &model.PlatformAnalytics{
		Summary: model.PlatformSummary{PageViews: 120},
	}}
	router := analyticsRouter(NewAnalyticsHandler(stub, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/platform?days=14", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if stub.lastDays != 14 {
		t.Errorf("days = %d, want 14", stub.lastDays)
	}

	var response model.PlatformAnalytics
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Summary.PageViews != 120 {
		t.Errorf("page views = %d, want 120", response.Summary.PageViews)
	}
}

func TestGetPlatformAnalyticsDefaultsDays(t *testing.T) {
	stub := &stubAnalyticsProvider{platform: &model.PlatformAnalytics{}}
	router := analyticsRouter(NewAnalyticsHandler(stub, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/platform?days=banana", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if stub.lastDays != 0 {
		t.Errorf("unparseable days should pass 0 to the service, got %d", stub.lastDays)
	}
}

func TestGetBusinessAnalytics(t *testing.T) {
	stub := &stubAnalyticsProvider{business: &model.BusinessAnalytics{BusinessID: "biz-1"}}
	router := analyticsRouter(NewAnalyticsHandler(stub, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/businesses/biz-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if stub.lastBusiness != "biz-1" {
		t.Errorf("business ID = %q, want biz-1", stub.lastBusiness)
	}
}

func TestGetBusinessAnalyticsNotFound(t *testing.T) {
	stub := &stubAnalyticsProvider{err: service.ErrBusinessNotFound}
	router := analyticsRouter(NewAnalyticsHandler(stub, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/businesses/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var response ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Code != "BUSINESS_NOT_FOUND" {
		t.Errorf("code = %q, want BUSINESS_NOT_FOUND", response.Code)
	}
}

func TestExportBusinessAnalyticsCSVDownload(t *testing.T) {
	stub := &stubAnalyticsProvider{
		exportBody: []byte("date,views\n2024-03-10,12\n"),
		exportType: "text/csv",
	}
	router := analyticsRouter(NewAnalyticsHandler(stub, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/businesses/biz-1/export", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if stub.lastFormat != service.FormatCSV {
		t.Errorf("format = %q, want csv default", stub.lastFormat)
	}
	if rec.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "attachment") {
		t.Errorf("content disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rec.Body.String(), "2024-03-10,12") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestExportBusinessAnalyticsBadFormat(t *testing.T) {
	stub := &stubAnalyticsProvider{err: service.ErrUnsupportedFormat}
	router := analyticsRouter(NewAnalyticsHandler(stub, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/businesses/biz-1/export?format=xml", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
