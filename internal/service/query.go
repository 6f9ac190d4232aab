package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/lynks/portal/internal/aggregate"
	"github.com/lynks/portal/internal/metrics"
	"github.com/lynks/portal/internal/model"
	"github.com/lynks/portal/internal/repository"
)

const (
	// DefaultDays is the dashboard range when the caller gives none.
	DefaultDays = 30
	// MaxDays caps the requested range.
	MaxDays = 365

	topBusinessLimit = 10
	topCategoryLimit = 5
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// RollupSource reads precomputed daily rollups.
type RollupSource interface {
	ListBusinessRollups(ctx context.Context, businessID string, from, to time.Time) ([]*model.BusinessDailyRollup, error)
	ListPlatformRollups(ctx context.Context, from, to time.Time) ([]*model.PlatformDailyRollup, error)
}

// FunnelSource reads the raw (session, kind) tuples behind the funnels.
type FunnelSource interface {
	ListSessionKindsBySlug(ctx context.Context, slug string, from, to time.Time) ([]aggregate.SessionEvent, error)
	ListBusinessPathSessionKinds(ctx context.Context, from, to time.Time) ([]aggregate.SessionEvent, error)
}

// DirectoryStore reads business directory entries.
type DirectoryStore interface {
	GetByID(ctx context.Context, id string) (*model.Business, error)
	ListBySlugs(ctx context.Context, slugs []string) (map[string]*model.Business, error)
}

// QueryService assembles dashboard responses from rollup rows. It reads
// derived data only; the single exception is the funnel, which needs raw
// session tuples because cross-stage session identity does not survive
// aggregation.
type QueryService struct {
	rollups    RollupSource
	funnels    FunnelSource
	businesses DirectoryStore
	logger     *slog.Logger
	metrics    metrics.Recorder
	now        func() time.Time
}

// NewQueryService creates a new QueryService.
func NewQueryService(rollups RollupSource, funnels FunnelSource, businesses DirectoryStore, logger *slog.Logger, recorder metrics.Recorder) *QueryService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &QueryService{
		rollups:    rollups,
		funnels:    funnels,
		businesses: businesses,
		logger:     logger.With("component", "service.query"),
		metrics:    recorder,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock. Test hook.
func (s *QueryService) SetNow(now func() time.Time) {
	s.now = now
}

// BusinessAnalytics builds the dashboard response for one business over the
// trailing N days (today included).
func (s *QueryService) BusinessAnalytics(ctx context.Context, businessID string, days int) (*model.BusinessAnalytics, error) {
	days = clampDays(days)
	from, to := s.dateRange(days)

	business, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, repository.ErrBusinessNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("load business: %w", err)
	}

	rollups, err := s.rollups.ListBusinessRollups(ctx, businessID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load business rollups: %w", err)
	}

	summary := model.BusinessSummary{}
	breakdown := model.BusinessBreakdowns{
		Devices: map[string]int64{},
		Regions: map[string]int64{},
		Hours:   map[string]int64{},
	}
	byDate := make(map[string]*model.BusinessDailyRollup, len(rollups))

	var timeWeight, depthWeighted float64
	for _, r := range rollups {
		byDate[r.Date.Format(time.DateOnly)] = r

		summary.TotalViews += r.Views
		summary.UniqueVisitors += r.UniqueVisitors
		summary.Calls += r.Calls
		summary.Emails += r.Emails
		summary.WhatsApps += r.WhatsApps
		summary.WebsiteClicks += r.WebsiteClicks
		summary.TotalTimeOnPage += r.TotalTimeOnPage

		// Daily averages are re-weighted by that day's views so the range
		// average is exact, not an average of averages.
		timeWeight += r.AvgTimeOnPage * float64(r.Views)
		depthWeighted += r.AvgScrollDepth * float64(r.Views)

		mergeCounts(breakdown.Devices, r.DeviceBreakdown)
		mergeCounts(breakdown.Regions, r.RegionBreakdown)
		mergeCounts(breakdown.Hours, r.HourBreakdown)
	}
	summary.TotalActions = summary.Calls + summary.Emails + summary.WhatsApps + summary.WebsiteClicks
	if summary.TotalViews > 0 {
		summary.AvgTimeOnPage = timeWeight / float64(summary.TotalViews)
		summary.AvgScrollDepth = depthWeighted / float64(summary.TotalViews)
	}

	daily := make([]model.SeriesPoint, 0, days)
	for _, date := range dateKeys(from, days) {
		point := model.SeriesPoint{Date: date}
		if r, ok := byDate[date]; ok {
			point.Views = r.Views
			point.Visitors = r.UniqueVisitors
			point.Actions = r.TotalActions()
		}
		daily = append(daily, point)
	}

	funnel, err := s.businessFunnel(ctx, business.Slug, from, to)
	if err != nil {
		return nil, err
	}

	return &model.BusinessAnalytics{
		BusinessID: businessID,
		Period: model.Period{
			From: from.Format(time.DateOnly),
			To:   to.Format(time.DateOnly),
			Days: days,
		},
		Summary:     summary,
		Breakdown:   breakdown,
		Daily:       daily,
		Funnel:      funnel,
		TopActions:  rankActions(summary),
		GeneratedAt: s.now(),
	}, nil
}

// PlatformAnalytics builds the admin dashboard response over the trailing
// N days (today included).
func (s *QueryService) PlatformAnalytics(ctx context.Context, days int) (*model.PlatformAnalytics, error) {
	days = clampDays(days)
	from, to := s.dateRange(days)

	rollups, err := s.rollups.ListPlatformRollups(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load platform rollups: %w", err)
	}

	summary := model.PlatformSummary{}
	breakdown := model.PlatformBreakdowns{
		Devices:  map[string]int64{},
		Browsers: map[string]int64{},
		Regions:  map[string]int64{},
		Hours:    map[string]int64{},
	}
	byDate := make(map[string]*model.PlatformDailyRollup, len(rollups))
	slugCounts := map[string]int64{}

	for _, r := range rollups {
		byDate[r.Date.Format(time.DateOnly)] = r

		summary.TotalVisitors += r.TotalVisitors
		summary.UniqueVisitors += r.UniqueVisitors
		summary.PageViews += r.PageViews

		mergeCounts(breakdown.Devices, r.DeviceBreakdown)
		mergeCounts(breakdown.Browsers, r.BrowserBreakdown)
		mergeCounts(breakdown.Regions, r.RegionBreakdown)
		mergeCounts(breakdown.Hours, r.HourBreakdown)

		for _, tb := range r.TopBusinesses {
			slugCounts[tb.Slug] += tb.Count
		}
	}
	// Active sessions are a point-in-time snapshot; only the newest rollup's
	// value means anything.
	if len(rollups) > 0 {
		summary.ActiveSessions = rollups[len(rollups)-1].ActiveSessions
	}

	daily := make([]model.SeriesPoint, 0, days)
	for _, date := range dateKeys(from, days) {
		point := model.SeriesPoint{Date: date}
		if r, ok := byDate[date]; ok {
			point.Views = r.PageViews
			point.Visitors = r.UniqueVisitors
		}
		daily = append(daily, point)
	}

	funnel, err := s.platformFunnel(ctx, from, to)
	if err != nil {
		return nil, err
	}

	topBusinesses := s.rankBusinesses(ctx, slugCounts)

	return &model.PlatformAnalytics{
		Period: model.Period{
			From: from.Format(time.DateOnly),
			To:   to.Format(time.DateOnly),
			Days: days,
		},
		Summary:       summary,
		Breakdown:     breakdown,
		Daily:         daily,
		Funnel:        funnel,
		TopBusinesses: topBusinesses,
		TopCategories: rankCategories(topBusinesses),
		GeneratedAt:   s.now(),
	}, nil
}

// ExportBusinessAnalytics renders a business's daily rollups as a download.
// CSV carries one row per day of the range, missing days zero-filled; JSON
// reuses the dashboard response shape.
func (s *QueryService) ExportBusinessAnalytics(ctx context.Context, businessID string, days int, format string) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		analytics, err := s.BusinessAnalytics(ctx, businessID, days)
		if err != nil {
			return nil, "", err
		}
		body, err := json.MarshalIndent(analytics, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("encode export: %w", err)
		}
		return body, "application/json", nil

	case FormatCSV:
		days = clampDays(days)
		from, to := s.dateRange(days)

		if _, err := s.businesses.GetByID(ctx, businessID); err != nil {
			if errors.Is(err, repository.ErrBusinessNotFound) {
				return nil, "", ErrBusinessNotFound
			}
			return nil, "", fmt.Errorf("load business: %w", err)
		}

		rollups, err := s.rollups.ListBusinessRollups(ctx, businessID, from, to)
		if err != nil {
			return nil, "", fmt.Errorf("load business rollups: %w", err)
		}
		body, err := businessRollupsCSV(from, days, rollups)
		if err != nil {
			return nil, "", err
		}
		return body, "text/csv", nil

	default:
		return nil, "", ErrUnsupportedFormat
	}
}

func (s *QueryService) businessFunnel(ctx context.Context, slug string, from, to time.Time) ([]model.FunnelStage, error) {
	tuples, err := s.funnels.ListSessionKindsBySlug(ctx, slug, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load funnel tuples: %w", err)
	}
	return aggregate.ComputeFunnel(tuples), nil
}

func (s *QueryService) platformFunnel(ctx context.Context, from, to time.Time) ([]model.FunnelStage, error) {
	tuples, err := s.funnels.ListBusinessPathSessionKinds(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load funnel tuples: %w", err)
	}
	return aggregate.ComputeFunnel(tuples), nil
}

// rankBusinesses turns merged slug counts into the enriched top list.
// Directory lookup failures degrade to slug-only entries; ranking still
// works without display names.
func (s *QueryService) rankBusinesses(ctx context.Context, counts map[string]int64) []model.RankedBusiness {
	if len(counts) == 0 {
		return nil
	}

	slugs := make([]string, 0, len(counts))
	for slug := range counts {
		slugs = append(slugs, slug)
	}
	sort.Slice(slugs, func(i, j int) bool {
		if counts[slugs[i]] != counts[slugs[j]] {
			return counts[slugs[i]] > counts[slugs[j]]
		}
		return slugs[i] < slugs[j]
	})
	if len(slugs) > topBusinessLimit {
		slugs = slugs[:topBusinessLimit]
	}

	directory, err := s.businesses.ListBySlugs(ctx, slugs)
	if err != nil {
		s.logger.Warn("top business enrichment failed", "error", err)
		directory = nil
	}

	ranked := make([]model.RankedBusiness, 0, len(slugs))
	for _, slug := range slugs {
		entry := model.RankedBusiness{Slug: slug, Views: counts[slug]}
		if b, ok := directory[slug]; ok {
			entry.Name = b.Name
			entry.Category = b.Category
		}
		ranked = append(ranked, entry)
	}
	return ranked
}

func rankCategories(businesses []model.RankedBusiness) []model.RankedCategory {
	counts := map[string]int64{}
	for _, b := range businesses {
		if b.Category == "" {
			continue
		}
		counts[b.Category] += b.Views
	}
	if len(counts) == 0 {
		return nil
	}

	ranked := make([]model.RankedCategory, 0, len(counts))
	for category, views := range counts {
		ranked = append(ranked, model.RankedCategory{Category: category, Views: views})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Views != ranked[j].Views {
			return ranked[i].Views > ranked[j].Views
		}
		return ranked[i].Category < ranked[j].Category
	})
	if len(ranked) > topCategoryLimit {
		ranked = ranked[:topCategoryLimit]
	}
	return ranked
}

func rankActions(summary model.BusinessSummary) []model.ActionCount {
	actions := []model.ActionCount{
		{Action: "call", Count: summary.Calls},
		{Action: "email", Count: summary.Emails},
		{Action: "whatsapp", Count: summary.WhatsApps},
		{Action: "website_click", Count: summary.WebsiteClicks},
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Count > actions[j].Count
	})
	filtered := actions[:0]
	for _, a := range actions {
		if a.Count > 0 {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

func businessRollupsCSV(from time.Time, days int, rollups []*model.BusinessDailyRollup) ([]byte, error) {
	byDate := make(map[string]*model.BusinessDailyRollup, len(rollups))
	for _, r := range rollups {
		byDate[r.Date.Format(time.DateOnly)] = r
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{
		"date", "views", "unique_visitors",
		"calls", "emails", "whatsapps", "website_clicks",
		"avg_time_on_page", "avg_scroll_depth",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}

	for _, date := range dateKeys(from, days) {
		row := &model.BusinessDailyRollup{}
		if r, ok := byDate[date]; ok {
			row = r
		}
		record := []string{
			date,
			strconv.FormatInt(row.Views, 10),
			strconv.FormatInt(row.UniqueVisitors, 10),
			strconv.FormatInt(row.Calls, 10),
			strconv.FormatInt(row.Emails, 10),
			strconv.FormatInt(row.WhatsApps, 10),
			strconv.FormatInt(row.WebsiteClicks, 10),
			strconv.FormatFloat(row.AvgTimeOnPage, 'f', 2, 64),
			strconv.FormatFloat(row.AvgScrollDepth, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// dateRange returns the inclusive UTC date bounds for a trailing range
// ending today.
func (s *QueryService) dateRange(days int) (time.Time, time.Time) {
	to := s.now().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -(days - 1))
	return from, to
}

// dateKeys lists the ISO dates of the range, oldest first.
func dateKeys(from time.Time, days int) []string {
	keys := make([]string, 0, days)
	for i := 0; i < days; i++ {
		keys = append(keys, from.AddDate(0, 0, i).Format(time.DateOnly))
	}
	return keys
}

func clampDays(days int) int {
	if days <= 0 {
		return DefaultDays
	}
	if days > MaxDays {
		return MaxDays
	}
	return days
}

func mergeCounts(dst, src map[string]int64) {
	for k, v := range src {
		dst[k] += v
	}
}
