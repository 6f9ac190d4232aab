package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lynks/portal/internal/model"
)

// Common errors for business repository operations.
var (
	ErrBusinessNotFound = errors.New("business not found")
)

// BusinessRepository provides read access to the business directory.
// The CRUD side of the portal owns these rows; this service only reads them.
type BusinessRepository struct {
	repo *Repository
}

// NewBusinessRepository creates a new BusinessRepository.
func NewBusinessRepository(repo *Repository) *BusinessRepository {
	return &BusinessRepository{repo: repo}
}

// FindBySlug retrieves a business by its profile slug.
func (r *BusinessRepository) FindBySlug(ctx context.Context, slug string) (*model.Business, error) {
	query := `
		SELECT id, slug, name, COALESCE(category, ''), created_at
		FROM businesses
		WHERE slug = $1
	`

	return r.scanBusiness(r.repo.pool.QueryRow(ctx, query, slug))
}

// GetByID retrieves a business by its ID.
func (r *BusinessRepository) GetByID(ctx context.Context, id string) (*model.Business, error) {
	query := `
		SELECT id, slug, name, COALESCE(category, ''), created_at
		FROM businesses
		WHERE id = $1
	`

	return r.scanBusiness(r.repo.pool.QueryRow(ctx, query, id))
}

// ListBySlugs retrieves businesses for a set of slugs, keyed by slug.
// Slugs with no matching row are simply absent from the result.
func (r *BusinessRepository) ListBySlugs(ctx context.Context, slugs []string) (map[string]*model.Business, error) {
	if len(slugs) == 0 {
		return map[string]*model.Business{}, nil
	}

	query := `
		SELECT id, slug, name, COALESCE(category, ''), created_at
		FROM businesses
		WHERE slug = ANY($1)
	`

	rows, err := r.repo.pool.Query(ctx, query, slugs)
	if err != nil {
		return nil, fmt.Errorf("query businesses by slugs: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*model.Business, len(slugs))
	for rows.Next() {
		var b model.Business
		if err := rows.Scan(&b.ID, &b.Slug, &b.Name, &b.Category, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		result[b.Slug] = &b
	}

	return result, rows.Err()
}

func (r *BusinessRepository) scanBusiness(row pgx.Row) (*model.Business, error) {
	var b model.Business

	err := row.Scan(&b.ID, &b.Slug, &b.Name, &b.Category, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to scan business: %w", err)
	}

	return &b, nil
}
