package model

import "time"

// TrackRequest is the ingestion endpoint's JSON body.
type TrackRequest struct {
	Event        string         `json:"event"`
	SessionID    string         `json:"sessionId"`
	UserID       string         `json:"userId,omitempty"`
	URL          string         `json:"url"`
	Path         string         `json:"pathname"`
	Referrer     string         `json:"referrer,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	DeviceType   string         `json:"deviceType,omitempty"`
	Browser      string         `json:"browser,omitempty"`
	ScreenWidth  int            `json:"screenWidth,omitempty"`
	ScreenHeight int            `json:"screenHeight,omitempty"`
	Timestamp    *time.Time     `json:"timestamp,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// TrackResponse acknowledges an accepted event.
type TrackResponse struct {
	Success bool   `json:"success"`
	EventID string `json:"eventId"`
}

// BusinessSummary holds the summary cards for one business dashboard.
type BusinessSummary struct {
	TotalViews      int64   `json:"total_views"`
	UniqueVisitors  int64   `json:"unique_visitors"`
	TotalActions    int64   `json:"total_actions"`
	Calls           int64   `json:"calls"`
	Emails          int64   `json:"emails"`
	WhatsApps       int64   `json:"whatsapps"`
	WebsiteClicks   int64   `json:"website_clicks"`
	AvgTimeOnPage   float64 `json:"avg_time_on_page"`
	TotalTimeOnPage float64 `json:"total_time_on_page"`
	AvgScrollDepth  float64 `json:"avg_scroll_depth"`
}

// PlatformSummary holds the summary cards for the admin dashboard.
type PlatformSummary struct {
	TotalVisitors  int64 `json:"total_visitors"`
	UniqueVisitors int64 `json:"unique_visitors"`
	PageViews      int64 `json:"page_views"`
	ActiveSessions int64 `json:"active_sessions"`
}

// SeriesPoint is one day of a trend chart. Days without a rollup row are
// reported as zero so charts always cover the full requested range.
type SeriesPoint struct {
	Date     string `json:"date"` // ISO date
	Views    int64  `json:"views"`
	Visitors int64  `json:"visitors"`
	Actions  int64  `json:"actions"`
}

// FunnelStage is one step of the visit -> engage -> contact funnel.
// Percent is relative to the first stage.
type FunnelStage struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	Percent float64 `json:"percent"`
}

// ActionCount is a contact channel with its count, for "top actions" lists.
type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// RankedBusiness is a top-businesses entry enriched with display fields.
type RankedBusiness struct {
	Slug     string `json:"slug"`
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty"`
	Views    int64  `json:"views"`
}

// RankedCategory is a top-categories entry.
type RankedCategory struct {
	Category string `json:"category"`
	Views    int64  `json:"views"`
}

// Period describes the date range a response covers.
type Period struct {
	From string `json:"from"` // ISO date
	To   string `json:"to"`   // ISO date
	Days int    `json:"days"`
}

// BusinessBreakdowns groups the merged per-business histogram maps.
type BusinessBreakdowns struct {
	Devices map[string]int64 `json:"devices,omitempty"`
	Regions map[string]int64 `json:"regions,omitempty"`
	Hours   map[string]int64 `json:"hours,omitempty"`
}

// PlatformBreakdowns groups the merged platform histogram maps.
type PlatformBreakdowns struct {
	Devices  map[string]int64 `json:"devices,omitempty"`
	Browsers map[string]int64 `json:"browsers,omitempty"`
	Regions  map[string]int64 `json:"regions,omitempty"`
	Hours    map[string]int64 `json:"hours,omitempty"`
}

// BusinessAnalytics is the per-business dashboard response.
type BusinessAnalytics struct {
	BusinessID  string             `json:"business_id"`
	Period      Period             `json:"period"`
	Summary     BusinessSummary    `json:"summary"`
	Breakdown   BusinessBreakdowns `json:"breakdown"`
	Daily       []SeriesPoint      `json:"daily"`
	Funnel      []FunnelStage      `json:"funnel"`
	TopActions  []ActionCount      `json:"top_actions,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// PlatformAnalytics is the admin dashboard response.
type PlatformAnalytics struct {
	Period        Period             `json:"period"`
	Summary       PlatformSummary    `json:"summary"`
	Breakdown     PlatformBreakdowns `json:"breakdown"`
	Daily         []SeriesPoint      `json:"daily"`
	Funnel        []FunnelStage      `json:"funnel"`
	TopBusinesses []RankedBusiness   `json:"top_businesses,omitempty"`
	TopCategories []RankedCategory   `json:"top_categories,omitempty"`
	GeneratedAt   time.Time          `json:"generated_at"`
}
