package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lynks/portal/internal/model"
)

// RollupRepository provides database access for daily rollup rows.
type RollupRepository struct {
	repo *Repository
}

// NewRollupRepository creates a new RollupRepository.
func NewRollupRepository(repo *Repository) *RollupRepository {
	return &RollupRepository{repo: repo}
}

// UpsertBusinessRollup inserts or fully replaces a business daily rollup.
// Every derived column is overwritten from the incoming recompute; nothing is
// incremented in place, so concurrent writers converge on whole rows.
func (r *RollupRepository) UpsertBusinessRollup(ctx context.Context, rollup *model.BusinessDailyRollup) error {
	hourJSON, _ := json.Marshal(rollup.HourBreakdown)
	deviceJSON, _ := json.Marshal(rollup.DeviceBreakdown)
	regionJSON, _ := json.Marshal(rollup.RegionBreakdown)

	query := `
		INSERT INTO business_daily_rollups (
			id, business_id, date,
			views, unique_visitors,
			calls, emails, whatsapps, website_clicks,
			avg_time_on_page, total_time_on_page, avg_scroll_depth,
			hour_breakdown, device_breakdown, region_breakdown,
			created_at, updated_at
		) VALUES (
			$1, $2, $3,
			$4, $5,
			$6, $7, $8, $9,
			$10, $11, $12,
			$13, $14, $15,
			NOW(), NOW()
		)
		ON CONFLICT (business_id, date) DO UPDATE SET
			views = EXCLUDED.views,
			unique_visitors = EXCLUDED.unique_visitors,
			calls = EXCLUDED.calls,
			emails = EXCLUDED.emails,
			whatsapps = EXCLUDED.whatsapps,
			website_clicks = EXCLUDED.website_clicks,
			avg_time_on_page = EXCLUDED.avg_time_on_page,
			total_time_on_page = EXCLUDED.total_time_on_page,
			avg_scroll_depth = EXCLUDED.avg_scroll_depth,
			hour_breakdown = EXCLUDED.hour_breakdown,
			device_breakdown = EXCLUDED.device_breakdown,
			region_breakdown = EXCLUDED.region_breakdown,
			updated_at = NOW()
	`

	_, err := r.repo.pool.Exec(ctx, query,
		rollup.ID,
		rollup.BusinessID,
		rollup.Date,
		rollup.Views,
		rollup.UniqueVisitors,
		rollup.Calls,
		rollup.Emails,
		rollup.WhatsApps,
		rollup.WebsiteClicks,
		rollup.AvgTimeOnPage,
		rollup.TotalTimeOnPage,
		rollup.AvgScrollDepth,
		hourJSON,
		deviceJSON,
		regionJSON,
	)

	if err != nil {
		return fmt.Errorf("upsert business rollup: %w", err)
	}

	return nil
}

// UpsertPlatformRollup inserts or fully replaces a platform daily rollup.
func (r *RollupRepository) UpsertPlatformRollup(ctx context.Context, rollup *model.PlatformDailyRollup) error {
	topJSON, _ := json.Marshal(rollup.TopBusinesses)
	deviceJSON, _ := json.Marshal(rollup.DeviceBreakdown)
	browserJSON, _ := json.Marshal(rollup.BrowserBreakdown)
	regionJSON, _ := json.Marshal(rollup.RegionBreakdown)
	hourJSON, _ := json.Marshal(rollup.HourBreakdown)

	query := `
		INSERT INTO platform_daily_rollups (
			id, date,
			total_visitors, unique_visitors, page_views, active_sessions,
			top_businesses,
			device_breakdown, browser_breakdown, region_breakdown, hour_breakdown,
			created_at, updated_at
		) VALUES (
			$1, $2,
			$3, $4, $5, $6,
			$7,
			$8, $9, $10, $11,
			NOW(), NOW()
		)
		ON CONFLICT (date) DO UPDATE SET
			total_visitors = EXCLUDED.total_visitors,
			unique_visitors = EXCLUDED.unique_visitors,
			page_views = EXCLUDED.page_views,
			active_sessions = EXCLUDED.active_sessions,
			top_businesses = EXCLUDED.top_businesses,
			device_breakdown = EXCLUDED.device_breakdown,
			browser_breakdown = EXCLUDED.browser_breakdown,
			region_breakdown = EXCLUDED.region_breakdown,
			hour_breakdown = EXCLUDED.hour_breakdown,
			updated_at = NOW()
	`

	_, err := r.repo.pool.Exec(ctx, query,
		rollup.ID,
		rollup.Date,
		rollup.TotalVisitors,
		rollup.UniqueVisitors,
		rollup.PageViews,
		rollup.ActiveSessions,
		topJSON,
		deviceJSON,
		browserJSON,
		regionJSON,
		hourJSON,
	)

	if err != nil {
		return fmt.Errorf("upsert platform rollup: %w", err)
	}

	return nil
}

// ListBusinessRollups retrieves business rollups within a date range,
// oldest first.
func (r *RollupRepository) ListBusinessRollups(ctx context.Context, businessID string, from, to time.Time) ([]*model.BusinessDailyRollup, error) {
	query := `
		SELECT id, business_id, date,
			   views, unique_visitors,
			   calls, emails, whatsapps, website_clicks,
			   avg_time_on_page, total_time_on_page, avg_scroll_depth,
			   hour_breakdown, device_breakdown, region_breakdown,
			   created_at, updated_at
		FROM business_daily_rollups
		WHERE business_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`

	rows, err := r.repo.pool.Query(ctx, query, businessID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query business rollups: %w", err)
	}
	defer rows.Close()

	var rollups []*model.BusinessDailyRollup
	for rows.Next() {
		rollup, err := scanBusinessRollup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan business rollup: %w", err)
		}
		rollups = append(rollups, rollup)
	}

	return rollups, rows.Err()
}

// ListPlatformRollups retrieves platform rollups within a date range,
// oldest first.
func (r *RollupRepository) ListPlatformRollups(ctx context.Context, from, to time.Time) ([]*model.PlatformDailyRollup, error) {
	query := `
		SELECT id, date,
			   total_visitors, unique_visitors, page_views, active_sessions,
			   top_businesses,
			   device_breakdown, browser_breakdown, region_breakdown, hour_breakdown,
			   created_at, updated_at
		FROM platform_daily_rollups
		WHERE date >= $1 AND date <= $2
		ORDER BY date
	`

	rows, err := r.repo.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query platform rollups: %w", err)
	}
	defer rows.Close()

	var rollups []*model.PlatformDailyRollup
	for rows.Next() {
		rollup, err := scanPlatformRollup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan platform rollup: %w", err)
		}
		rollups = append(rollups, rollup)
	}

	return rollups, rows.Err()
}

func scanBusinessRollup(rows pgx.Rows) (*model.BusinessDailyRollup, error) {
	var rollup model.BusinessDailyRollup
	var hourJSON, deviceJSON, regionJSON []byte

	err := rows.Scan(
		&rollup.ID,
		&rollup.BusinessID,
		&rollup.Date,
		&rollup.Views,
		&rollup.UniqueVisitors,
		&rollup.Calls,
		&rollup.Emails,
		&rollup.WhatsApps,
		&rollup.WebsiteClicks,
		&rollup.AvgTimeOnPage,
		&rollup.TotalTimeOnPage,
		&rollup.AvgScrollDepth,
		&hourJSON,
		&deviceJSON,
		&regionJSON,
		&rollup.CreatedAt,
		&rollup.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(hourJSON) > 0 {
		_ = json.Unmarshal(hourJSON, &rollup.HourBreakdown)
	}
	if len(deviceJSON) > 0 {
		_ = json.Unmarshal(deviceJSON, &rollup.DeviceBreakdown)
	}
	if len(regionJSON) > 0 {
		_ = json.Unmarshal(regionJSON, &rollup.RegionBreakdown)
	}

	return &rollup, nil
}

func scanPlatformRollup(rows pgx.Rows) (*model.PlatformDailyRollup, error) {
	var rollup model.PlatformDailyRollup
	var topJSON, deviceJSON, browserJSON, regionJSON, hourJSON []byte

	err := rows.Scan(
		&rollup.ID,
		&rollup.Date,
		&rollup.TotalVisitors,
		&rollup.UniqueVisitors,
		&rollup.PageViews,
		&rollup.ActiveSessions,
		&topJSON,
		&deviceJSON,
		&browserJSON,
		&regionJSON,
		&hourJSON,
		&rollup.CreatedAt,
		&rollup.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(topJSON) > 0 {
		_ = json.Unmarshal(topJSON, &rollup.TopBusinesses)
	}
	if len(deviceJSON) > 0 {
		_ = json.Unmarshal(deviceJSON, &rollup.DeviceBreakdown)
	}
	if len(browserJSON) > 0 {
		_ = json.Unmarshal(browserJSON, &rollup.BrowserBreakdown)
	}
	if len(regionJSON) > 0 {
		_ = json.Unmarshal(regionJSON, &rollup.RegionBreakdown)
	}
	if len(hourJSON) > 0 {
		_ = json.Unmarshal(hourJSON, &rollup.HourBreakdown)
	}

	return &rollup, nil
}
