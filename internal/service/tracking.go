// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lynks/portal/internal/aggregate"
	"github.com/lynks/portal/internal/analytics"
	"github.com/lynks/portal/internal/cache"
	"github.com/lynks/portal/internal/geoip"
	"github.com/lynks/portal/internal/metrics"
	"github.com/lynks/portal/internal/model"
	"github.com/lynks/portal/internal/repository"
)

// Service errors.
var (
	ErrMissingFields     = errors.New("missing required fields: event, sessionId, url, pathname")
	ErrBusinessNotFound  = errors.New("business not found")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// EventStore persists analytics events.
type EventStore interface {
	Insert(ctx context.Context, event *model.AnalyticsEvent) error
}

// BusinessFinder resolves directory entries by slug.
type BusinessFinder interface {
	FindBySlug(ctx context.Context, slug string) (*model.Business, error)
}

// BusinessCache is the Redis-backed slug lookup cache.
type BusinessCache interface {
	GetBusinessBySlug(ctx context.Context, slug string) (*model.Business, error)
	SetBusiness(ctx context.Context, business *model.Business) error
	IsNegativelyCached(ctx context.Context, slug string) (bool, error)
	SetNegativeCache(ctx context.Context, slug string) error
}

// JobPublisher enqueues aggregation jobs.
type JobPublisher interface {
	PublishAsync(job analytics.AggregationJobPayload)
}

// GeoResolver resolves an IP to a best-effort location.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) geoip.Location
}

// TrackingService handles event ingestion: validation, enrichment, the
// durable event write, and the fire-and-forget aggregation signal.
type TrackingService struct {
	events     EventStore
	businesses BusinessFinder
	cache      BusinessCache
	geo        GeoResolver
	publisher  JobPublisher
	logger     *slog.Logger
	metrics    metrics.Recorder
	now        func() time.Time
}

// NewTrackingService creates a new TrackingService.
func NewTrackingService(events EventStore, businesses BusinessFinder, businessCache BusinessCache, geo GeoResolver, publisher JobPublisher, logger *slog.Logger, recorder metrics.Recorder) *TrackingService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TrackingService{
		events:     events,
		businesses: businesses,
		cache:      businessCache,
		geo:        geo,
		publisher:  publisher,
		logger:     logger.With("component", "service.tracking"),
		metrics:    recorder,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock. Test hook.
func (s *TrackingService) SetNow(now func() time.Time) {
	s.now = now
}

// Client timestamps outside this window around the server clock are
// replaced with the server time. Trackers that flush queued events after
// coming back online stay inside it; a skewed clock cannot write events
// into arbitrary past or future days.
const (
	maxPastSkew   = 48 * time.Hour
	maxFutureSkew = 5 * time.Minute
)

func clampOccurred(received, occurred time.Time) time.Time {
	if occurred.Before(received.Add(-maxPastSkew)) || occurred.After(received.Add(maxFutureSkew)) {
		return received
	}
	return occurred
}

// Track validates and persists one visitor event, then signals the
// aggregation pipeline. The event is durable once Track returns; the
// aggregation signal is best-effort and never fails the call.
func (s *TrackingService) Track(ctx context.Context, input model.TrackRequest, clientIP string) (*model.AnalyticsEvent, error) {
	if input.Event == "" || input.SessionID == "" || input.URL == "" || input.Path == "" {
		s.metrics.IncEventRejected("validation")
		return nil, ErrMissingFields
	}

	received := s.now()
	occurred := received
	if input.Timestamp != nil {
		occurred = clampOccurred(received, input.Timestamp.UTC())
	}

	device := input.DeviceType
	if device == "" {
		device = analytics.DeviceFromUserAgent(input.UserAgent)
	}
	browser := input.Browser
	if browser == "" {
		browser = analytics.BrowserFromUserAgent(input.UserAgent)
	}

	event := &model.AnalyticsEvent{
		ID:           ulid.Make().String(),
		Kind:         input.Event,
		SessionID:    input.SessionID,
		UserID:       input.UserID,
		URL:          input.URL,
		Path:         input.Path,
		Referrer:     input.Referrer,
		UserAgent:    input.UserAgent,
		IP:           clientIP,
		DeviceType:   device,
		Browser:      browser,
		ScreenWidth:  input.ScreenWidth,
		ScreenHeight: input.ScreenHeight,
		Metadata:     input.Metadata,
		OccurredAt:   occurred,
		ReceivedAt:   received,
	}

	s.resolveLocation(ctx, event)

	if err := s.events.Insert(ctx, event); err != nil {
		s.metrics.IncEventRejected("persistence")
		return nil, fmt.Errorf("persist event: %w", err)
	}
	s.metrics.IncEventTracked(event.Kind)

	s.signalAggregation(ctx, event)

	return event, nil
}

// resolveLocation fills the event's location fields. Browser-supplied GPS
// coordinates in the metadata win over IP geolocation; the resolver is only
// consulted when the client reported nothing.
func (s *TrackingService) resolveLocation(ctx context.Context, event *model.AnalyticsEvent) {
	lat, okLat := event.MetadataFloat("latitude")
	lon, okLon := event.MetadataFloat("longitude")
	if okLat && okLon {
		event.Latitude = &lat
		event.Longitude = &lon
		return
	}

	loc := s.geo.Resolve(ctx, event.IP)
	event.Region = loc.Region
	event.Country = loc.Country
	event.City = loc.City
	event.Latitude = loc.Latitude
	event.Longitude = loc.Longitude
}

// signalAggregation enqueues the rollup recompute jobs for the event's day.
// A platform job is always published; a business job only when the path is a
// business profile whose slug resolves in the directory.
func (s *TrackingService) signalAggregation(ctx context.Context, event *model.AnalyticsEvent) {
	day := event.OccurredAt.UTC().Truncate(24 * time.Hour)
	s.publisher.PublishAsync(analytics.NewPlatformJob(day))

	slug := aggregate.BusinessSlugFromPath(event.Path)
	if slug == "" {
		return
	}

	business, err := s.resolveBusiness(ctx, slug)
	if err != nil {
		if !errors.Is(err, repository.ErrBusinessNotFound) {
			s.logger.Warn("business lookup failed", "slug", slug, "error", err)
		}
		return
	}

	s.publisher.PublishAsync(analytics.NewBusinessJob(business.ID, day))
}

// resolveBusiness maps a slug to its directory entry, cache first. Misses
// fall through to the database and backfill the cache; unknown slugs are
// negatively cached so hot 404 paths stop hitting Postgres.
func (s *TrackingService) resolveBusiness(ctx context.Context, slug string) (*model.Business, error) {
	business, err := s.cache.GetBusinessBySlug(ctx, slug)
	if err == nil {
		return business, nil
	}
	if errors.Is(err, cache.ErrCacheMiss) {
		if negative, _ := s.cache.IsNegativelyCached(ctx, slug); negative {
			return nil, repository.ErrBusinessNotFound
		}
	}

	business, err = s.businesses.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrBusinessNotFound) {
			_ = s.cache.SetNegativeCache(ctx, slug)
		}
		return nil, err
	}

	if err := s.cache.SetBusiness(ctx, business); err != nil {
		s.logger.Warn("business cache backfill failed", "slug", slug, "error", err)
	}
	return business, nil
}
