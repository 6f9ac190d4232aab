package model

import "time"

// BusinessDailyRollup is the derived daily aggregate for one business.
// At most one row per (business_id, date). Every recomputation fully replaces
// the derived fields, so the row is a disposable cache over the event log.
type BusinessDailyRollup struct {
	ID         string    `json:"id"` // Composite: business_id:date
	BusinessID string    `json:"business_id"`
	Date       time.Time `json:"date"` // UTC date, time component zeroed

	Views          int64 `json:"views"`
	UniqueVisitors int64 `json:"unique_visitors"`

	// Contact actions split by channel
	Calls         int64 `json:"calls"`
	Emails        int64 `json:"emails"`
	WhatsApps     int64 `json:"whatsapps"`
	WebsiteClicks int64 `json:"website_clicks"`

	AvgTimeOnPage   float64 `json:"avg_time_on_page"`   // seconds
	TotalTimeOnPage float64 `json:"total_time_on_page"` // seconds
	AvgScrollDepth  float64 `json:"avg_scroll_depth"`   // percent

	// Breakdowns (stored as JSONB)
	HourBreakdown   map[string]int64 `json:"hour_breakdown,omitempty"`
	DeviceBreakdown map[string]int64 `json:"device_breakdown,omitempty"`
	RegionBreakdown map[string]int64 `json:"region_breakdown,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalActions sums the per-channel contact counts.
func (r *BusinessDailyRollup) TotalActions() int64 {
	return r.Calls + r.Emails + r.WhatsApps + r.WebsiteClicks
}

// TopBusiness is one entry of a platform rollup's ranked business list.
type TopBusiness struct {
	Slug  string `json:"slug"`
	Count int64  `json:"count"`
}

// PlatformDailyRollup is the derived platform-wide aggregate for one date.
// At most one row per date; same full-replace upsert discipline as the
// business rollup.
type PlatformDailyRollup struct {
	ID   string    `json:"id"` // date as 2006-01-02
	Date time.Time `json:"date"`

	TotalVisitors  int64 `json:"total_visitors"` // every event counts
	UniqueVisitors int64 `json:"unique_visitors"`
	PageViews      int64 `json:"page_views"`

	// Sessions with an event inside the trailing 30 minutes at aggregation
	// run time. A snapshot of "right now", only meaningful for today.
	ActiveSessions int64 `json:"active_sessions"`

	TopBusinesses []TopBusiness `json:"top_businesses,omitempty"` // capped at 10

	DeviceBreakdown  map[string]int64 `json:"device_breakdown,omitempty"`
	BrowserBreakdown map[string]int64 `json:"browser_breakdown,omitempty"`
	RegionBreakdown  map[string]int64 `json:"region_breakdown,omitempty"`
	HourBreakdown    map[string]int64 `json:"hour_breakdown,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
