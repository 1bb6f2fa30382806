package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pricewatch/internal/store"

	"github.com/google/uuid"
)

// GetListingState returns the stored price/status snapshot for the
// (product, store) pair, or (nil, nil) when the listing does not exist yet.
// Callers capture this before the upsert for change detection.
func (s *Store) GetListingState(ctx context.Context, tx store.DBTransaction, productID, storeID uuid.UUID) (*store.ListingState, error) {
	executor := s.getExecutor(tx)

	query := `
		SELECT id, current_price, stock_status
		FROM listings
		WHERE product_id = $1 AND store_id = $2
	`

	var state store.ListingState
	err := executor.QueryRowContext(ctx, query, productID, storeID).Scan(
		&state.ID,
		&state.CurrentPrice,
		&state.StockStatus,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read listing state: %w", err)
	}

	return &state, nil
}

// UpsertListing inserts or updates the listing for its (product, store) key
// in a single statement. It returns the row ID and whether the row was newly
// inserted. xmax = 0 only holds for rows created by the current transaction,
// which distinguishes insert from update without a read-back.
func (s *Store) UpsertListing(ctx context.Context, tx store.DBTransaction, l *store.Listing) (uuid.UUID, bool, error) {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO listings (
			id, product_id, store_id,
			source_url, source_sku, affiliate_url,
			current_price, discount_pct,
			in_stock, stock_status,
			last_scraped, last_checked_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (product_id, store_id) DO UPDATE SET
			source_url      = EXCLUDED.source_url,
			source_sku      = EXCLUDED.source_sku,
			affiliate_url   = EXCLUDED.affiliate_url,
			current_price   = EXCLUDED.current_price,
			discount_pct    = EXCLUDED.discount_pct,
			in_stock        = EXCLUDED.in_stock,
			stock_status    = EXCLUDED.stock_status,
			last_scraped    = NOW(),
			last_checked_at = NOW()
		RETURNING id, (xmax = 0) AS inserted
	`

	var id uuid.UUID
	var inserted bool
	err := executor.QueryRowContext(ctx, query,
		uuid.New(),
		l.ProductID,
		l.StoreID,
		l.SourceURL,
		l.SourceSKU,
		l.AffiliateURL,
		l.CurrentPrice,
		l.DiscountPct,
		l.InStock,
		l.StockStatus,
	).Scan(&id, &inserted)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to upsert listing for product %s: %w", l.ProductID, classifyError(err))
	}

	return id, inserted, nil
}

// InsertPriceHistory appends one immutable history row, stamped NOW() at
// commit time. History rows are never updated or deleted.
func (s *Store) InsertPriceHistory(ctx context.Context, tx store.DBTransaction, h *store.PriceHistoryEntry) error {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO price_history (id, listing_id, price, discount_pct, in_stock, scraped_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err := executor.ExecContext(ctx, query,
		uuid.New(),
		h.ListingID,
		h.Price,
		h.DiscountPct,
		h.InStock,
	)
	if err != nil {
		return fmt.Errorf("failed to insert price history for listing %s: %w", h.ListingID, classifyError(err))
	}

	return nil
}
