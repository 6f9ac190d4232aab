package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/lynks/portal/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "lynks_events_tracked_total %d\n", snap.EventsTracked)
	writeMetric(w, "lynks_events_rejected_total %d\n", snap.EventsRejected)

	writeLabeledCounters(w, "lynks_geo_lookups_total", "outcome", snap.GeoLookups)
	writeLabeledCounters(w, "lynks_aggregation_jobs_published_total", "status", snap.JobsPublished)
	writeLabeledCounters(w, "lynks_aggregation_jobs_processed_total", "status", snap.JobsProcessed)

	writeMetric(w, "lynks_aggregation_runs_total %d\n", snap.AggregationRuns)
	writeMetric(w, "lynks_aggregation_duration_seconds_sum %.6f\n", snap.AggregationTotalDuration.Seconds())
	writeMetric(w, "lynks_aggregation_queue_depth %d\n", snap.QueueDepth)
}

func writeLabeledCounters(w http.ResponseWriter, name, label string, counters map[string]uint64) {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, k, counters[k])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
