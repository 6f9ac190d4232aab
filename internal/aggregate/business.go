// Package aggregate recomputes daily rollups from the raw event log.
//
// Every computation here is a full recompute over the day's events followed
// by a full-replace upsert. Rollups are disposable caches: concurrent runs
// for the same key converge because each run derives the whole row from the
// same underlying event set (last write wins, no increments, no locks).
package aggregate

import (
	"fmt"
	"regexp"
	"time"

	"github.com/lynks/portal/internal/model"
)

// businessPathPattern matches business card pages: /business/<slug>.
var businessPathPattern = regexp.MustCompile(`^/business/([^/]+)/?$`)

// BusinessSlugFromPath extracts the slug from a business page path.
// Returns "" when the path is not a business page.
func BusinessSlugFromPath(path string) string {
	m := businessPathPattern.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

// FilterBySlug narrows a business-path event set to one business's page.
// Events for other businesses sharing the same date must never leak into a
// rollup, so the match is on the exact parsed slug, not a prefix.
func FilterBySlug(events []*model.AnalyticsEvent, slug string) []*model.AnalyticsEvent {
	filtered := make([]*model.AnalyticsEvent, 0, len(events))
	for _, e := range events {
		if BusinessSlugFromPath(e.Path) == slug {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// ComputeBusinessRollup derives one business's rollup row from its events
// for one day. Returns nil when the event set is empty: no events, no row.
func ComputeBusinessRollup(businessID string, date time.Time, events []*model.AnalyticsEvent) *model.BusinessDailyRollup {
	if len(events) == 0 {
		return nil
	}

	day := date.UTC().Truncate(24 * time.Hour)
	rollup := &model.BusinessDailyRollup{
		ID:              fmt.Sprintf("%s:%s", businessID, day.Format("2006-01-02")),
		BusinessID:      businessID,
		Date:            day,
		HourBreakdown:   make(map[string]int64),
		DeviceBreakdown: make(map[string]int64),
		RegionBreakdown: make(map[string]int64),
	}

	sessions := make(map[string]bool)
	var heartbeats, scrolls int64
	var scrollTotal float64

	for _, e := range events {
		if e.SessionID != "" && !sessions[e.SessionID] {
			sessions[e.SessionID] = true
			rollup.UniqueVisitors++
		}

		switch e.Kind {
		case model.EventPageView:
			rollup.Views++
		case model.EventCall:
			rollup.Calls++
		case model.EventEmail:
			rollup.Emails++
		case model.EventWhatsApp:
			rollup.WhatsApps++
		case model.EventWebsiteClick:
			rollup.WebsiteClicks++
		case model.EventHeartbeat:
			if v, ok := e.MetadataFloat("timeOnPage"); ok {
				rollup.TotalTimeOnPage += v
				heartbeats++
			}
		case model.EventScrollDepth:
			if v, ok := e.MetadataFloat("depth"); ok {
				scrollTotal += v
				scrolls++
			}
		}

		hour := fmt.Sprintf("%d", e.OccurredAt.UTC().Hour())
		rollup.HourBreakdown[hour]++

		if e.DeviceType != "" {
			rollup.DeviceBreakdown[e.DeviceType]++
		}
		if e.Region != "" {
			rollup.RegionBreakdown[e.Region]++
		}
	}

	if heartbeats > 0 {
		rollup.AvgTimeOnPage = rollup.TotalTimeOnPage / float64(heartbeats)
	}
	if scrolls > 0 {
		rollup.AvgScrollDepth = scrollTotal / float64(scrolls)
	}

	return rollup
}
