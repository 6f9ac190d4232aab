package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/lynks/portal/internal/model"
)

// ActiveSessionWindow is the trailing window that defines an active session.
const ActiveSessionWindow = 30 * time.Minute

// MaxTopBusinesses caps the ranked business list stored on a platform rollup.
const MaxTopBusinesses = 10

// ComputePlatformRollup derives the platform-wide rollup row for one day.
// The active-session count is measured against now, not against the target
// date: it is a snapshot of the moment the aggregation runs and is only
// meaningful when aggregating today. Returns nil for an empty event set.
func ComputePlatformRollup(date time.Time, now time.Time, events []*model.AnalyticsEvent) *model.PlatformDailyRollup {
	if len(events) == 0 {
		return nil
	}

	day := date.UTC().Truncate(24 * time.Hour)
	rollup := &model.PlatformDailyRollup{
		ID:               day.Format("2006-01-02"),
		Date:             day,
		DeviceBreakdown:  make(map[string]int64),
		BrowserBreakdown: make(map[string]int64),
		RegionBreakdown:  make(map[string]int64),
		HourBreakdown:    make(map[string]int64),
	}

	sessions := make(map[string]bool)
	activeSessions := make(map[string]bool)
	slugCounts := make(map[string]int64)
	activeCutoff := now.Add(-ActiveSessionWindow)

	for _, e := range events {
		rollup.TotalVisitors++

		if e.SessionID != "" {
			if !sessions[e.SessionID] {
				sessions[e.SessionID] = true
				rollup.UniqueVisitors++
			}
			if e.OccurredAt.After(activeCutoff) {
				activeSessions[e.SessionID] = true
			}
		}

		if e.Kind == model.EventPageView {
			rollup.PageViews++
		}

		if slug := BusinessSlugFromPath(e.Path); slug != "" {
			slugCounts[slug]++
		}

		hour := fmt.Sprintf("%d", e.OccurredAt.UTC().Hour())
		rollup.HourBreakdown[hour]++

		if e.DeviceType != "" {
			rollup.DeviceBreakdown[e.DeviceType]++
		}
		if e.Browser != "" {
			rollup.BrowserBreakdown[e.Browser]++
		}
		if e.Region != "" {
			rollup.RegionBreakdown[e.Region]++
		}
	}

	rollup.ActiveSessions = int64(len(activeSessions))
	rollup.TopBusinesses = rankSlugs(slugCounts, MaxTopBusinesses)

	return rollup
}

// rankSlugs sorts slug counts descending and keeps the top n.
// Ties break alphabetically so the ranking is deterministic.
func rankSlugs(counts map[string]int64, n int) []model.TopBusiness {
	if len(counts) == 0 {
		return nil
	}

	ranked := make([]model.TopBusiness, 0, len(counts))
	for slug, count := range counts {
		ranked = append(ranked, model.TopBusiness{Slug: slug, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Slug < ranked[j].Slug
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
