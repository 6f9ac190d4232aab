// Package testutil provides shared helpers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lynks/portal/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 731731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// applyMigration runs a down migration followed by its up migration.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, name string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	downPath := filepath.Join(root, "migrations", name+".down.sql")
	upPath := filepath.Join(root, "migrations", name+".up.sql")

	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		return fmt.Errorf("read %s down migration: %w", name, err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		return fmt.Errorf("apply %s down migration: %w", name, err)
	}

	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		return fmt.Errorf("read %s up migration: %w", name, err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		return fmt.Errorf("apply %s up migration: %w", name, err)
	}

	return nil
}

// ResetEventsSchema drops and recreates the analytics_events schema for tests.
func ResetEventsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigration(ctx, pool, "000001_analytics_events")
}

// ResetRollupsSchema drops and recreates the rollup tables for tests.
func ResetRollupsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigration(ctx, pool, "000002_rollups")
}

// ResetBusinessesSchema drops and recreates the businesses schema for tests.
func ResetBusinessesSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigration(ctx, pool, "000003_businesses")
}

// ResetAPIKeysSchema drops and recreates the api_keys schema for tests.
func ResetAPIKeysSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigration(ctx, pool, "000004_api_keys")
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestEvent creates a page view event with sensible defaults.
func NewTestEvent(t testing.TB, slug, sessionID string) *model.AnalyticsEvent {
	t.Helper()
	now := time.Now().UTC()
	return &model.AnalyticsEvent{
		ID:         UniqueID("evt"),
		Kind:       model.EventPageView,
		SessionID:  sessionID,
		URL:        "https://portal.example.com/business/" + slug,
		Path:       "/business/" + slug,
		UserAgent:  "TestAgent/1.0",
		DeviceType: "desktop",
		Browser:    "Chrome",
		OccurredAt: now,
		ReceivedAt: now,
	}
}

// NewTestBusiness creates a test business with sensible defaults.
func NewTestBusiness(t testing.TB, slug string) *model.Business {
	t.Helper()
	return &model.Business{
		ID:        UniqueID("biz"),
		Slug:      slug,
		Name:      "Business " + slug,
		Category:  "restaurants",
		CreatedAt: time.Now().UTC(),
	}
}

// NewTestAPIKey creates a test API key with sensible defaults.
func NewTestAPIKey(t testing.TB, ownerID string) *model.APIKey {
	t.Helper()
	now := time.Now().UTC()
	return &model.APIKey{
		ID:            UniqueID("key"),
		OwnerID:       ownerID,
		KeyHash:       UniqueID("hash"),
		KeyPrefix:     "lk_test_",
		Scopes:        []string{model.ScopeRead},
		RateLimitTier: model.TierStandard,
		Name:          "Test Key",
		CreatedAt:     now,
	}
}

// NewTestAPIKeyWithTier creates a test API key with a specific tier.
func NewTestAPIKeyWithTier(t testing.TB, ownerID string, tier string) *model.APIKey {
	t.Helper()
	key := NewTestAPIKey(t, ownerID)
	key.RateLimitTier = tier
	return key
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
