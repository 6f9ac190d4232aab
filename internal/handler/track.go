package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lynks/portal/internal/analytics"
	"github.com/lynks/portal/internal/model"
	"github.com/lynks/portal/internal/service"
)

// DefaultMaxTrackBodySize caps the track request body at 1MB.
const DefaultMaxTrackBodySize = 1 << 20

// Tracker ingests one visitor event.
type Tracker interface {
	Track(ctx context.Context, input model.TrackRequest, clientIP string) (*model.AnalyticsEvent, error)
}

// TrackHandler handles the public event ingestion endpoint. The endpoint is
// called cross-origin by the browser tracker on every portal page, so it is
// fully permissive on CORS and unauthenticated.
type TrackHandler struct {
	svc     Tracker
	logger  *slog.Logger
	maxBody int64
}

// NewTrackHandler creates a new TrackHandler. A non-positive maxBody falls
// back to DefaultMaxTrackBodySize.
func NewTrackHandler(svc Tracker, logger *slog.Logger, maxBody int64) *TrackHandler {
	if maxBody <= 0 {
		maxBody = DefaultMaxTrackBodySize
	}
	return &TrackHandler{
		svc:     svc,
		logger:  logger.With("component", "handler.track"),
		maxBody: maxBody,
	}
}

// Track handles POST /api/analytics/track.
func (h *TrackHandler) Track(w http.ResponseWriter, r *http.Request) {
	setTrackCORSHeaders(w)

	var req model.TrackRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid JSON body",
		})
		return
	}

	event, err := h.svc.Track(r.Context(), req, analytics.ClientIP(r))
	if err != nil {
		if errors.Is(err, service.ErrMissingFields) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Missing required fields",
			})
			return
		}
		h.logger.Error("event ingestion failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to track event",
		})
		return
	}

	writeJSON(w, http.StatusOK, model.TrackResponse{
		Success: true,
		EventID: event.ID,
	})
}

// Preflight handles OPTIONS /api/analytics/track.
func (h *TrackHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	setTrackCORSHeaders(w)
	w.WriteHeader(http.StatusOK)
}

func setTrackCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
