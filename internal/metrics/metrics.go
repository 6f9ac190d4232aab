// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Ingestion metrics
	IncEventTracked(kind string)
	IncEventRejected(reason string) // reason: "validation", "persistence"

	// Geolocation metrics
	IncGeoLookup(outcome string) // outcome: "hit", "miss", "local", "error"

	// Aggregation pipeline metrics
	IncAggregationJobPublished(status string) // status: "success" or "dropped"
	IncAggregationJobProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveAggregationDuration(scope string, duration time.Duration)
	SetAggregationQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
