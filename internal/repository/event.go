package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lynks/portal/internal/aggregate"
	"github.com/lynks/portal/internal/model"
)

const eventColumns = `
	id, kind, session_id, user_id, url, path, referrer, user_agent, ip,
	device_type, browser, screen_width, screen_height,
	region, country, city, latitude, longitude,
	metadata, occurred_at, received_at
`

// EventRepository provides database access for analytics events.
type EventRepository struct {
	repo *Repository
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(repo *Repository) *EventRepository {
	return &EventRepository{repo: repo}
}

// Insert appends a single analytics event.
// The event log is append-only; there are no update or delete paths.
func (r *EventRepository) Insert(ctx context.Context, event *model.AnalyticsEvent) error {
	var metadataJSON []byte
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadataJSON = data
	}

	query := `
		INSERT INTO analytics_events (
			id, kind, session_id, user_id, url, path, referrer, user_agent, ip,
			device_type, browser, screen_width, screen_height,
			region, country, city, latitude, longitude,
			metadata, occurred_at, received_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17, $18,
			$19, $20, $21
		)
	`

	_, err := r.repo.pool.Exec(ctx, query,
		event.ID,
		event.Kind,
		event.SessionID,
		nullableString(event.UserID),
		event.URL,
		event.Path,
		nullableString(event.Referrer),
		nullableString(event.UserAgent),
		nullableString(event.IP),
		nullableString(event.DeviceType),
		nullableString(event.Browser),
		nullableInt(event.ScreenWidth),
		nullableInt(event.ScreenHeight),
		nullableString(event.Region),
		nullableString(event.Country),
		nullableString(event.City),
		event.Latitude,
		event.Longitude,
		metadataJSON,
		event.OccurredAt,
		event.ReceivedAt,
	)

	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}

	return nil
}

// ListBusinessPathEventsByDate returns all events on business profile pages
// for one UTC day.
func (r *EventRepository) ListBusinessPathEventsByDate(ctx context.Context, date time.Time) ([]*model.AnalyticsEvent, error) {
	start := date.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	query := `
		SELECT ` + eventColumns + `
		FROM analytics_events
		WHERE path LIKE '/business/%' AND occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at
	`

	return r.queryEvents(ctx, query, start, end)
}

// ListEventsByDate returns every event for one UTC day, any path.
func (r *EventRepository) ListEventsByDate(ctx context.Context, date time.Time) ([]*model.AnalyticsEvent, error) {
	start := date.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	query := `
		SELECT ` + eventColumns + `
		FROM analytics_events
		WHERE occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at
	`

	return r.queryEvents(ctx, query, start, end)
}

// ListSessionKindsBySlug returns (session, kind) tuples for one business
// profile over a date range. This is the funnel's raw input; anything more
// would drag full event rows across the wire for no benefit.
func (r *EventRepository) ListSessionKindsBySlug(ctx context.Context, slug string, from, to time.Time) ([]aggregate.SessionEvent, error) {
	query := `
		SELECT session_id, kind
		FROM analytics_events
		WHERE (path = '/business/' || $1 OR path LIKE '/business/' || $1 || '/%')
		  AND occurred_at >= $2 AND occurred_at < $3
	`

	rows, err := r.repo.pool.Query(ctx, query, slug, from, to)
	if err != nil {
		return nil, fmt.Errorf("query session kinds: %w", err)
	}
	defer rows.Close()

	var tuples []aggregate.SessionEvent
	for rows.Next() {
		var t aggregate.SessionEvent
		if err := rows.Scan(&t.SessionID, &t.Kind); err != nil {
			return nil, fmt.Errorf("scan session kind: %w", err)
		}
		tuples = append(tuples, t)
	}

	return tuples, rows.Err()
}

// ListBusinessPathSessionKinds returns (session, kind) tuples for every
// business profile page over a date range. Feeds the platform-wide funnel.
func (r *EventRepository) ListBusinessPathSessionKinds(ctx context.Context, from, to time.Time) ([]aggregate.SessionEvent, error) {
	query := `
		SELECT session_id, kind
		FROM analytics_events
		WHERE path LIKE '/business/%' AND occurred_at >= $1 AND occurred_at < $2
	`

	rows, err := r.repo.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query session kinds: %w", err)
	}
	defer rows.Close()

	var tuples []aggregate.SessionEvent
	for rows.Next() {
		var t aggregate.SessionEvent
		if err := rows.Scan(&t.SessionID, &t.Kind); err != nil {
			return nil, fmt.Errorf("scan session kind: %w", err)
		}
		tuples = append(tuples, t)
	}

	return tuples, rows.Err()
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*model.AnalyticsEvent, error) {
	rows, err := r.repo.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analytics events: %w", err)
	}
	defer rows.Close()

	var events []*model.AnalyticsEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// scanEvent scans a row into an AnalyticsEvent.
func scanEvent(rows pgx.Rows) (*model.AnalyticsEvent, error) {
	var event model.AnalyticsEvent
	var userID, referrer, userAgent, ip, deviceType, browser *string
	var region, country, city *string
	var screenWidth, screenHeight *int
	var metadataJSON []byte

	err := rows.Scan(
		&event.ID,
		&event.Kind,
		&event.SessionID,
		&userID,
		&event.URL,
		&event.Path,
		&referrer,
		&userAgent,
		&ip,
		&deviceType,
		&browser,
		&screenWidth,
		&screenHeight,
		&region,
		&country,
		&city,
		&event.Latitude,
		&event.Longitude,
		&metadataJSON,
		&event.OccurredAt,
		&event.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}

	event.UserID = deref(userID)
	event.Referrer = deref(referrer)
	event.UserAgent = deref(userAgent)
	event.IP = deref(ip)
	event.DeviceType = deref(deviceType)
	event.Browser = deref(browser)
	event.Region = deref(region)
	event.Country = deref(country)
	event.City = deref(city)
	if screenWidth != nil {
		event.ScreenWidth = *screenWidth
	}
	if screenHeight != nil {
		event.ScreenHeight = *screenHeight
	}
	if len(metadataJSON) > 0 {
		_ = json.Unmarshal(metadataJSON, &event.Metadata)
	}

	return &event, nil
}

// nullableString returns nil for empty strings.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullableInt returns nil for zero values.
func nullableInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
