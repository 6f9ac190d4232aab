//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/lynks/portal/internal/model"
	"github.com/lynks/portal/internal/testutil"
)

func newAPIKeyTestEnv(t *testing.T) (context.Context, *Repository) {
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

	if err := testutil.ResetAPIKeysSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset api_keys schema: %v", err)
	}

	return ctx, repo
}

func TestIntegrationAPIKeyRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newAPIKeyTestEnv(t)

	ownerID := testutil.UniqueID("owner")
	key := testutil.NewTestAPIKey(t, ownerID)

	if err := repo.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}

	retrieved, err := repo.GetAPIKeyByID(ctx, key.ID)
	if err != nil {
		t.Fatalf("GetAPIKeyByID failed: %v", err)
	}

	if retrieved.OwnerID != ownerID {
		t.Errorf("OwnerID mismatch: got %q, want %q", retrieved.OwnerID, ownerID)
	}
	if retrieved.KeyHash != key.KeyHash {
		t.Errorf("KeyHash mismatch: got %q, want %q", retrieved.KeyHash, key.KeyHash)
	}
	if retrieved.RateLimitTier != model.TierStandard {
		t.Errorf("RateLimitTier mismatch: got %q", retrieved.RateLimitTier)
	}
	if len(retrieved.Scopes) != 1 || retrieved.Scopes[0] != model.ScopeRead {
		t.Errorf("Scopes mismatch: got %v", retrieved.Scopes)
	}
}

func TestIntegrationAPIKeyRepository_GetByPrefixSkipsRevoked(t *testing.T) {
	ctx, repo := newAPIKeyTestEnv(t)

	ownerID := testutil.UniqueID("owner")
	active := testutil.NewTestAPIKey(t, ownerID)
	active.KeyPrefix = "abc123"
	revoked := testutil.NewTestAPIKey(t, ownerID)
	revoked.KeyPrefix = "abc123"

	if err := repo.CreateAPIKey(ctx, active); err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	if err := repo.CreateAPIKey(ctx, revoked); err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	if err := repo.RevokeAPIKey(ctx, revoked.ID); err != nil {
		t.Fatalf("RevokeAPIKey failed: %v", err)
	}

	keys, err := repo.GetAPIKeysByPrefix(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetAPIKeysByPrefix failed: %v", err)
	}
	if len(keys) != 1 || keys[0].ID != active.ID {
		t.Fatalf("expected only the active key, got %d keys", len(keys))
	}
}

func TestIntegrationAPIKeyRepository_RevokeTwice(t *testing.T) {
	ctx, repo := newAPIKeyTestEnv(t)

	key := testutil.NewTestAPIKey(t, testutil.UniqueID("owner"))
	if err := repo.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}

	if err := repo.RevokeAPIKey(ctx, key.ID); err != nil {
		t.Fatalf("first revoke failed: %v", err)
	}

	err := repo.RevokeAPIKey(ctx, key.ID)
	if !errors.Is(err, ErrAPIKeyNotFound) {
		t.Errorf("second revoke error = %v, want ErrAPIKeyNotFound", err)
	}
}

func TestIntegrationAPIKeyRepository_ListByOwner(t *testing.T) {
	ctx, repo := newAPIKeyTestEnv(t)

	ownerID := testutil.UniqueID("owner")
	otherID := testutil.UniqueID("owner")

	for i := 0; i < 2; i++ {
		if err := repo.CreateAPIKey(ctx, testutil.NewTestAPIKey(t, ownerID)); err != nil {
			t.Fatalf("CreateAPIKey failed: %v", err)
		}
	}
	if err := repo.CreateAPIKey(ctx, testutil.NewTestAPIKey(t, otherID)); err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}

	keys, err := repo.ListAPIKeysByOwnerID(ctx, ownerID)
	if err != nil {
		t.Fatalf("ListAPIKeysByOwnerID failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
}
