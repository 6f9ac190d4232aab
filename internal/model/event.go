// Package model defines domain entities for the application.
package model

import (
	"encoding/json"
	"time"
)

// Event kind tags reported by the browser tracker.
// The kind field is free-form; these are the tags the aggregators interpret.
const (
	EventPageView     = "page_view"
	EventHeartbeat    = "heartbeat"
	EventScrollDepth  = "scroll_depth"
	EventCall         = "business_call"
	EventEmail        = "business_email"
	EventWhatsApp     = "business_whatsapp"
	EventWebsiteClick = "website_click"
)

// AnalyticsEvent is one observed visitor action.
// Rows are append-only: never updated or deleted by this service.
type AnalyticsEvent struct {
	ID        string `json:"id"` // ULID (time-sortable)
	Kind      string `json:"event"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`

	// Page context
	URL      string `json:"url"`
	Path     string `json:"pathname"`
	Referrer string `json:"referrer,omitempty"`

	// Client context
	UserAgent    string `json:"user_agent,omitempty"`
	IP           string `json:"ip,omitempty"`
	DeviceType   string `json:"device_type,omitempty"`
	Browser      string `json:"browser,omitempty"`
	ScreenWidth  int    `json:"screen_width,omitempty"`
	ScreenHeight int    `json:"screen_height,omitempty"`

	// Resolved location (every field optional)
	Region    string   `json:"region,omitempty"`
	Country   string   `json:"country,omitempty"`
	City      string   `json:"city,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// Opaque per-kind payload (timeOnPage, depth, device sub-fields, ...).
	// Interpreted only at the point of use inside each aggregator.
	Metadata map[string]any `json:"metadata,omitempty"`

	OccurredAt time.Time `json:"occurred_at"` // client-supplied
	ReceivedAt time.Time `json:"received_at"` // server ingestion time
}

// MetadataFloat reads a numeric metadata field.
// JSON numbers may arrive as float64, json.Number, or int depending on the
// decoder path, so all three are accepted.
func (e *AnalyticsEvent) MetadataFloat(key string) (float64, bool) {
	if e.Metadata == nil {
		return 0, false
	}
	switch v := e.Metadata[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
