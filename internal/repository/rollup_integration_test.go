//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lynks/portal/internal/model"
	"github.com/lynks/portal/internal/testutil"
)

func newRollupTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()

	databaseURL := testutil.RequireEnv(t, "TEST_DATABASE_URL")
	ctx := context.Background()

	repo, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	t.Cleanup(func() { _ = unlock() })

	if err := testutil.ResetEventsSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset events schema: %v", err)
	}
	if err := testutil.ResetRollupsSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset rollups schema: %v", err)
	}

	return ctx, repo
}

func TestIntegrationEventRepository_InsertAndList(t *testing.T) {
	ctx, repo := newRollupTestEnv(t)
	events := NewEventRepository(repo)

	event := testutil.NewTestEvent(t, "acme", "sess-1")
	event.Metadata = map[string]any{"timeOnPage": 42.0}

	if err := events.Insert(ctx, event); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	listed, err := events.ListBusinessPathEventsByDate(ctx, event.OccurredAt)
	if err != nil {
		t.Fatalf("ListBusinessPathEventsByDate failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 event, got %d", len(listed))
	}
	got := listed[0]
	if got.ID != event.ID || got.Path != event.Path || got.SessionID != event.SessionID {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
	if v, ok := got.MetadataFloat("timeOnPage"); !ok || v != 42 {
		t.Errorf("metadata timeOnPage = %v (%v), want 42", v, ok)
	}
}

func TestIntegrationEventRepository_BusinessPathFilter(t *testing.T) {
	ctx, repo := newRollupTestEnv(t)
	events := NewEventRepository(repo)

	onProfile := testutil.NewTestEvent(t, "acme", "sess-1")
	offProfile := testutil.NewTestEvent(t, "acme", "sess-2")
	offProfile.ID = testutil.UniqueID("evt")
	offProfile.Path = "/search"
	offProfile.URL = "https://portal.example.com/search"

	for _, e := range []*model.AnalyticsEvent{onProfile, offProfile} {
		if err := events.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	scoped, err := events.ListBusinessPathEventsByDate(ctx, onProfile.OccurredAt)
	if err != nil {
		t.Fatalf("ListBusinessPathEventsByDate failed: %v", err)
	}
	if len(scoped) != 1 || scoped[0].ID != onProfile.ID {
		t.Fatalf("expected only the profile-page event, got %d rows", len(scoped))
	}

	all, err := events.ListEventsByDate(ctx, onProfile.OccurredAt)
	if err != nil {
		t.Fatalf("ListEventsByDate failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}
}

func TestIntegrationEventRepository_SessionKindsBySlug(t *testing.T) {
	ctx, repo := newRollupTestEnv(t)
	events := NewEventRepository(repo)

	acme := testutil.NewTestEvent(t, "acme", "sess-1")
	acmeSub := testutil.NewTestEvent(t, "acme", "sess-1")
	acmeSub.ID = testutil.UniqueID("evt")
	acmeSub.Path = "/business/acme/photos"
	acmeSub.Kind = model.EventHeartbeat
	// Prefix collision: acme-two is a different business.
	other := testutil.NewTestEvent(t, "acme-two", "sess-9")
	other.ID = testutil.UniqueID("evt")

	for _, e := range []*model.AnalyticsEvent{acme, acmeSub, other} {
		if err := events.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	from := acme.OccurredAt.Add(-time.Hour)
	to := acme.OccurredAt.Add(time.Hour)
	tuples, err := events.ListSessionKindsBySlug(ctx, "acme", from, to)
	if err != nil {
		t.Fatalf("ListSessionKindsBySlug failed: %v", err)
	}
	if len(tuples) != 2 {
		t.Fatalf("expected 2 tuples for acme, got %d", len(tuples))
	}
	for _, tuple := range tuples {
		if tuple.SessionID != "sess-1" {
			t.Errorf("unexpected session %q leaked in", tuple.SessionID)
		}
	}
}

func TestIntegrationRollupRepository_UpsertBusinessRollupReplaces(t *testing.T) {
	ctx, repo := newRollupTestEnv(t)
	rollups := NewRollupRepository(repo)

	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	first := &model.BusinessDailyRollup{
		ID:             "biz-1:2024-01-05",
		BusinessID:     "biz-1",
		Date:           date,
		Views:          10,
		UniqueVisitors: 4,
		Calls:          2,
		HourBreakdown:  map[string]int64{"10": 10},
	}

	if err := rollups.UpsertBusinessRollup(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	// Second recompute for the same day produces lower numbers; the row must
	// be replaced, never merged.
	second := &model.BusinessDailyRollup{
		ID:             "biz-1:2024-01-05",
		BusinessID:     "biz-1",
		Date:           date,
		Views:          3,
		UniqueVisitors: 1,
		HourBreakdown:  map[string]int64{"11": 3},
	}
	if err := rollups.UpsertBusinessRollup(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	rows, err := rollups.ListBusinessRollups(ctx, "biz-1", date, date)
	if err != nil {
		t.Fatalf("ListBusinessRollups failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	if got.Views != 3 || got.UniqueVisitors != 1 || got.Calls != 0 {
		t.Errorf("row not fully replaced: %+v", got)
	}
	if got.HourBreakdown["10"] != 0 || got.HourBreakdown["11"] != 3 {
		t.Errorf("hour breakdown not replaced: %v", got.HourBreakdown)
	}
}

func TestIntegrationRollupRepository_UpsertPlatformRollup(t *testing.T) {
	ctx, repo := newRollupTestEnv(t)
	rollups := NewRollupRepository(repo)

	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	rollup := &model.PlatformDailyRollup{
		ID:             "2024-01-05",
		Date:           date,
		TotalVisitors:  100,
		UniqueVisitors: 60,
		PageViews:      80,
		TopBusinesses:  []model.TopBusiness{{Slug: "acme", Count: 40}},
	}

	if err := rollups.UpsertPlatformRollup(ctx, rollup); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := rollups.UpsertPlatformRollup(ctx, rollup); err != nil {
		t.Fatalf("repeat upsert failed: %v", err)
	}

	rows, err := rollups.ListPlatformRollups(ctx, date, date)
	if err != nil {
		t.Fatalf("ListPlatformRollups failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	if got.TotalVisitors != 100 || got.PageViews != 80 {
		t.Errorf("unexpected row: %+v", got)
	}
	if len(got.TopBusinesses) != 1 || got.TopBusinesses[0].Slug != "acme" {
		t.Errorf("top businesses = %+v", got.TopBusinesses)
	}
}
