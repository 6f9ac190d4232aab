package aggregate

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/lynks/portal/internal/model"
)

func TestComputePlatformRollup_Counts(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	events := []*model.AnalyticsEvent{
		{Kind: model.EventPageView, SessionID: "s1", Path: "/business/acme",
			DeviceType: "mobile", Browser: "Chrome", Region: "Hanoi", OccurredAt: now.Add(-time.Hour)},
		{Kind: model.EventPageView, SessionID: "s1", Path: "/",
			DeviceType: "mobile", Browser: "Chrome", OccurredAt: now.Add(-time.Hour)},
		{Kind: model.EventHeartbeat, SessionID: "s2", Path: "/business/acme",
			DeviceType: "desktop", Browser: "Firefox", Region: "Hue", OccurredAt: now.Add(-5 * time.Minute)},
	}

	rollup := ComputePlatformRollup(now, now, events)
	if rollup == nil {
		t.Fatal("expected a rollup row")
	}

	if rollup.TotalVisitors != 3 {
		t.Errorf("total_visitors = %d, want 3", rollup.TotalVisitors)
	}
	if rollup.UniqueVisitors != 2 {
		t.Errorf("unique_visitors = %d, want 2", rollup.UniqueVisitors)
	}
	if rollup.PageViews != 2 {
		t.Errorf("page_views = %d, want 2", rollup.PageViews)
	}
	if rollup.DeviceBreakdown["mobile"] != 2 || rollup.DeviceBreakdown["desktop"] != 1 {
		t.Errorf("device breakdown = %v", rollup.DeviceBreakdown)
	}
	if rollup.BrowserBreakdown["Chrome"] != 2 || rollup.BrowserBreakdown["Firefox"] != 1 {
		t.Errorf("browser breakdown = %v", rollup.BrowserBreakdown)
	}
	if rollup.RegionBreakdown["Hanoi"] != 1 || rollup.RegionBreakdown["Hue"] != 1 {
		t.Errorf("region breakdown = %v", rollup.RegionBreakdown)
	}
	if rollup.HourBreakdown["11"] != 3 {
		t.Errorf("hour breakdown = %v, want {11:3}", rollup.HourBreakdown)
	}
}

func TestComputePlatformRollup_ActiveSessionsWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	events := []*model.AnalyticsEvent{
		// Inside the trailing 30 minutes.
		{Kind: model.EventPageView, SessionID: "fresh", OccurredAt: now.Add(-10 * time.Minute)},
		{Kind: model.EventPageView, SessionID: "fresh", OccurredAt: now.Add(-29 * time.Minute)},
		// Outside the window.
		{Kind: model.EventPageView, SessionID: "stale", OccurredAt: now.Add(-31 * time.Minute)},
		{Kind: model.EventPageView, SessionID: "old", OccurredAt: now.Add(-5 * time.Hour)},
	}

	rollup := ComputePlatformRollup(now, now, events)
	if rollup.ActiveSessions != 1 {
		t.Fatalf("active_sessions = %d, want 1", rollup.ActiveSessions)
	}
}

func TestComputePlatformRollup_TopBusinesses(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	var events []*model.AnalyticsEvent

	// 12 businesses: slug-0 gets 13 views, slug-1 gets 12, and so on.
	for i := 0; i < 12; i++ {
		for j := 0; j < 13-i; j++ {
			events = append(events, &model.AnalyticsEvent{
				Kind:       model.EventPageView,
				SessionID:  fmt.Sprintf("s%d-%d", i, j),
				Path:       fmt.Sprintf("/business/slug-%d", i),
				OccurredAt: now,
			})
		}
	}

	rollup := ComputePlatformRollup(now, now, events)
	if len(rollup.TopBusinesses) != MaxTopBusinesses {
		t.Fatalf("top businesses len = %d, want %d", len(rollup.TopBusinesses), MaxTopBusinesses)
	}
	if rollup.TopBusinesses[0].Slug != "slug-0" || rollup.TopBusinesses[0].Count != 13 {
		t.Errorf("top entry = %+v, want slug-0 with 13", rollup.TopBusinesses[0])
	}
	for i := 1; i < len(rollup.TopBusinesses); i++ {
		if rollup.TopBusinesses[i].Count > rollup.TopBusinesses[i-1].Count {
			t.Errorf("ranking not descending at %d: %+v", i, rollup.TopBusinesses)
		}
	}
}

func TestComputePlatformRollup_EmptyEventSet(t *testing.T) {
	t.Parallel()

	if rollup := ComputePlatformRollup(time.Now(), time.Now(), nil); rollup != nil {
		t.Fatalf("expected nil rollup for empty event set, got %+v", rollup)
	}
}

func TestComputePlatformRollup_Idempotent(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	events := []*model.AnalyticsEvent{
		{Kind: model.EventPageView, SessionID: "s1", Path: "/business/acme", OccurredAt: now.Add(-time.Minute)},
		{Kind: model.EventPageView, SessionID: "s2", Path: "/business/blue-cafe", OccurredAt: now.Add(-time.Hour)},
	}

	first := ComputePlatformRollup(now, now, events)
	second := ComputePlatformRollup(now, now, events)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("recomputation differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestRankSlugs_Deterministic(t *testing.T) {
	t.Parallel()

	counts := map[string]int64{"zeta": 2, "alpha": 2, "mid": 5}
	ranked := rankSlugs(counts, 10)

	want := []model.TopBusiness{
		{Slug: "mid", Count: 5},
		{Slug: "alpha", Count: 2},
		{Slug: "zeta", Count: 2},
	}
	if !reflect.DeepEqual(ranked, want) {
		t.Fatalf("ranked = %+v, want %+v", ranked, want)
	}
}
