// Package analytics provides event capture and the aggregation pipeline.
package analytics

import (
	"fmt"
	"time"
)

// Aggregation job scopes.
const (
	ScopeBusiness = "business"
	ScopePlatform = "platform"
)

// AggregationJobPayload is the compressed job format for the Redis stream.
// A job names a (scope, business, date) to recompute, never the events
// themselves; the worker re-reads source events and replaces the rollup row.
type AggregationJobPayload struct {
	Scope      string `json:"s"`            // business | platform
	BusinessID string `json:"b,omitempty"`  // required for business scope
	Date       string `json:"d"`            // UTC day, 2006-01-02
	EnqueuedAt int64  `json:"t"`            // Unix milliseconds
}

// Key returns the dedupe identity of the job. Two jobs with the same key
// recompute the same rollup row, so only one per batch needs to run.
func (p AggregationJobPayload) Key() string {
	if p.Scope == ScopePlatform {
		return ScopePlatform + ":" + p.Date
	}
	return ScopeBusiness + ":" + p.BusinessID + ":" + p.Date
}

// Day parses the job date as a UTC day.
func (p AggregationJobPayload) Day() (time.Time, error) {
	return time.Parse("2006-01-02", p.Date)
}

// ValidateAggregationJob validates aggregation job payload fields.
func ValidateAggregationJob(payload AggregationJobPayload) error {
	switch payload.Scope {
	case ScopeBusiness:
		if payload.BusinessID == "" {
			return fmt.Errorf("business_id is required for business scope")
		}
	case ScopePlatform:
		// No business ID for platform jobs.
	default:
		return fmt.Errorf("unknown scope %q", payload.Scope)
	}
	if payload.Date == "" {
		return fmt.Errorf("date is required")
	}
	if _, err := time.Parse("2006-01-02", payload.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	if payload.EnqueuedAt <= 0 {
		return fmt.Errorf("enqueued_at must be set")
	}
	return nil
}
