package aggregate

import (
	"context"
	"log/slog"
	"time"

	"github.com/lynks/portal/internal/metrics"
	"github.com/lynks/portal/internal/model"
)

// EventSource reads raw events for aggregation. Filtering by date happens in
// the store; narrowing business-path events to one business happens here.
type EventSource interface {
	ListBusinessPathEventsByDate(ctx context.Context, date time.Time) ([]*model.AnalyticsEvent, error)
	ListEventsByDate(ctx context.Context, date time.Time) ([]*model.AnalyticsEvent, error)
}

// RollupStore persists rollup rows with full-replace upsert semantics.
type RollupStore interface {
	UpsertBusinessRollup(ctx context.Context, rollup *model.BusinessDailyRollup) error
	UpsertPlatformRollup(ctx context.Context, rollup *model.PlatformDailyRollup) error
}

// BusinessDirectory resolves business records owned by the CRUD subsystem.
type BusinessDirectory interface {
	GetByID(ctx context.Context, id string) (*model.Business, error)
}

// Aggregator recomputes daily rollups. It runs detached from the requests
// that trigger it: every failure is logged and swallowed, never propagated.
// Re-invoking it for the same key is always safe (idempotent full replace).
type Aggregator struct {
	events     EventSource
	rollups    RollupStore
	businesses BusinessDirectory
	logger     *slog.Logger
	metrics    metrics.Recorder

	// now is swappable for tests of the active-session window.
	now func() time.Time
}

// NewAggregator creates an Aggregator.
func NewAggregator(events EventSource, rollups RollupStore, businesses BusinessDirectory, logger *slog.Logger, recorder metrics.Recorder) *Aggregator {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Aggregator{
		events:     events,
		rollups:    rollups,
		businesses: businesses,
		logger:     logger.With("component", "aggregate.aggregator"),
		metrics:    recorder,
		now:        time.Now,
	}
}

// SetNow overrides the clock. Tests only.
func (a *Aggregator) SetNow(now func() time.Time) {
	if now != nil {
		a.now = now
	}
}

// AggregateBusiness recomputes one business's rollup for one date.
// No-ops silently when the business has no events that day.
func (a *Aggregator) AggregateBusiness(ctx context.Context, businessID string, date time.Time) {
	start := a.now()

	business, err := a.businesses.GetByID(ctx, businessID)
	if err != nil {
		a.fail("business", err, "business_id", businessID)
		return
	}

	events, err := a.events.ListBusinessPathEventsByDate(ctx, date)
	if err != nil {
		a.fail("business", err, "business_id", businessID)
		return
	}

	rollup := ComputeBusinessRollup(businessID, date, FilterBySlug(events, business.Slug))
	if rollup == nil {
		return
	}

	if err := a.rollups.UpsertBusinessRollup(ctx, rollup); err != nil {
		a.fail("business", err, "business_id", businessID)
		return
	}

	a.metrics.ObserveAggregationDuration("business", a.now().Sub(start))
	a.logger.Debug("business rollup recomputed",
		"business_id", businessID,
		"date", rollup.Date.Format("2006-01-02"),
		"views", rollup.Views,
		"unique_visitors", rollup.UniqueVisitors,
	)
}

// AggregatePlatform recomputes the platform-wide rollup for one date.
// Same no-op/swallow contract as AggregateBusiness.
func (a *Aggregator) AggregatePlatform(ctx context.Context, date time.Time) {
	start := a.now()

	events, err := a.events.ListEventsByDate(ctx, date)
	if err != nil {
		a.fail("platform", err)
		return
	}

	rollup := ComputePlatformRollup(date, a.now(), events)
	if rollup == nil {
		return
	}

	if err := a.rollups.UpsertPlatformRollup(ctx, rollup); err != nil {
		a.fail("platform", err)
		return
	}

	a.metrics.ObserveAggregationDuration("platform", a.now().Sub(start))
	a.logger.Debug("platform rollup recomputed",
		"date", rollup.Date.Format("2006-01-02"),
		"total_visitors", rollup.TotalVisitors,
		"active_sessions", rollup.ActiveSessions,
	)
}

func (a *Aggregator) fail(scope string, err error, args ...any) {
	a.metrics.IncAggregationJobProcessed("failed")
	a.logger.Error("aggregation failed", append([]any{"scope", scope, "error", err}, args...)...)
}
