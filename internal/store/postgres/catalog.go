package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pricewatch/internal/store"
)

// GetActiveStore resolves a store slug to its active row.
func (s *Store) GetActiveStore(ctx context.Context, slug string) (*store.Store, error) {
	query := `
		SELECT id, slug, name, is_active, created_at
		FROM stores
		WHERE slug = $1 AND is_active = TRUE
	`

	var st store.Store
	err := s.db.QueryRowContext(ctx, query, slug).Scan(
		&st.ID,
		&st.Slug,
		&st.Name,
		&st.IsActive,
		&st.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", store.ErrStoreNotFound, slug)
	}
	if err != nil {
		return nil, err
	}

	return &st, nil
}

// GetActiveProduct looks up an active catalog item by its catalog key.
// A miss returns (nil, nil): unmatched observations are expected and
// reported through stats, not errors.
func (s *Store) GetActiveProduct(ctx context.Context, catalogKey string) (*store.CatalogItem, error) {
	query := `
		SELECT id, catalog_key, name, reference_price_usd, is_active, created_at
		FROM products
		WHERE catalog_key = $1 AND is_active = TRUE
	`

	var item store.CatalogItem
	err := s.db.QueryRowContext(ctx, query, catalogKey).Scan(
		&item.ID,
		&item.CatalogKey,
		&item.Name,
		&item.ReferencePrice,
		&item.IsActive,
		&item.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}
