package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncEventTracked is a no-op.
func (n *NoopRecorder) IncEventTracked(kind string) {}

// IncEventRejected is a no-op.
func (n *NoopRecorder) IncEventRejected(reason string) {}

// IncGeoLookup is a no-op.
func (n *NoopRecorder) IncGeoLookup(outcome string) {}

// IncAggregationJobPublished is a no-op.
func (n *NoopRecorder) IncAggregationJobPublished(status string) {}

// IncAggregationJobProcessed is a no-op.
func (n *NoopRecorder) IncAggregationJobProcessed(status string) {}

// ObserveAggregationDuration is a no-op.
func (n *NoopRecorder) ObserveAggregationDuration(scope string, duration time.Duration) {}

// SetAggregationQueueDepth is a no-op.
func (n *NoopRecorder) SetAggregationQueueDepth(depth int64) {}
