package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lynks/portal/internal/model"
)

// Cache key prefixes and TTLs.
const (
	businessKeyPrefix = "business:slug:"
	negCacheKeySuffix = ":neg"

	// DefaultBusinessTTL is the TTL for cached business records. Slug
	// assignments change rarely, so a long TTL is safe.
	DefaultBusinessTTL = 24 * time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetBusinessBySlug retrieves a business from cache by profile slug.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetBusinessBySlug(ctx context.Context, slug string) (*model.Business, error) {
	key := businessKeyPrefix + slug

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	business := &model.Business{
		ID:       result["id"],
		Slug:     result["slug"],
		Name:     result["name"],
		Category: result["category"],
	}
	if raw := result["created_at"]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			business.CreatedAt = t
		}
	}

	return business, nil
}

// SetBusiness stores a business in cache keyed by its slug.
func (c *Cache) SetBusiness(ctx context.Context, business *model.Business) error {
	key := businessKeyPrefix + business.Slug

	fields := map[string]any{
		"id":         business.ID,
		"slug":       business.Slug,
		"name":       business.Name,
		"created_at": business.CreatedAt.UTC().Format(time.RFC3339),
	}
	if business.Category != "" {
		fields["category"] = business.Category
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, DefaultBusinessTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to cache business: %w", err)
	}

	// Remove negative cache if exists
	c.client.Del(ctx, key+negCacheKeySuffix)

	return nil
}

// DeleteBusiness removes a business from cache.
func (c *Cache) DeleteBusiness(ctx context.Context, slug string) error {
	key := businessKeyPrefix + slug

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete business from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a slug is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, slug string) (bool, error) {
	key := businessKeyPrefix + slug + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a slug as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, slug string) error {
	key := businessKeyPrefix + slug + negCacheKeySuffix

	err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
