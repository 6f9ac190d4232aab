package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	EventsTracked            uint64
	EventsRejected           uint64
	GeoLookups               map[string]uint64
	JobsPublished            map[string]uint64
	JobsProcessed            map[string]uint64
	AggregationRuns          uint64
	AggregationTotalDuration time.Duration
	QueueDepth               int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu sync.Mutex

	eventsTracked  uint64
	eventsRejected uint64
	geoLookups     map[string]uint64
	jobsPublished  map[string]uint64
	jobsProcessed  map[string]uint64
	aggRuns        uint64
	aggTotal       time.Duration
	queueDepth     int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		geoLookups:    make(map[string]uint64),
		jobsPublished: make(map[string]uint64),
		jobsProcessed: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		EventsTracked:            m.eventsTracked,
		EventsRejected:           m.eventsRejected,
		GeoLookups:               make(map[string]uint64, len(m.geoLookups)),
		JobsPublished:            make(map[string]uint64, len(m.jobsPublished)),
		JobsProcessed:            make(map[string]uint64, len(m.jobsProcessed)),
		AggregationRuns:          m.aggRuns,
		AggregationTotalDuration: m.aggTotal,
		QueueDepth:               atomic.LoadInt64(&m.queueDepth),
	}
	for k, v := range m.geoLookups {
		s.GeoLookups[k] = v
	}
	for k, v := range m.jobsPublished {
		s.JobsPublished[k] = v
	}
	for k, v := range m.jobsProcessed {
		s.JobsProcessed[k] = v
	}
	return s
}

// IncEventTracked increments the tracked-event counter.
func (m *InMemoryRecorder) IncEventTracked(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsTracked++
}

// IncEventRejected increments the rejected-event counter.
func (m *InMemoryRecorder) IncEventRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsRejected++
}

// IncGeoLookup counts a geolocation lookup by outcome.
func (m *InMemoryRecorder) IncGeoLookup(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geoLookups[outcome]++
}

// IncAggregationJobPublished counts a published aggregation job.
func (m *InMemoryRecorder) IncAggregationJobPublished(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobsPublished[status]++
}

// IncAggregationJobProcessed counts a processed aggregation job.
func (m *InMemoryRecorder) IncAggregationJobProcessed(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobsProcessed[status]++
}

// ObserveAggregationDuration records one aggregation run.
func (m *InMemoryRecorder) ObserveAggregationDuration(scope string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggRuns++
	m.aggTotal += duration
}

// SetAggregationQueueDepth records the current queue depth.
func (m *InMemoryRecorder) SetAggregationQueueDepth(depth int64) {
	atomic.StoreInt64(&m.queueDepth, depth)
}
