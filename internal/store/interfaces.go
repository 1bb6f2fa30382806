package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// ErrStoreNotFound is returned when a store slug does not resolve to an
// active store row. It is fatal for that store's run only.
var ErrStoreNotFound = errors.New("store not found or inactive")

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx.
// This allows passing either a connection pool or an active transaction to
// the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// CatalogStore resolves stores and catalog items for matching. Both are
// owned by external processes; the ingestion pipeline reads them only.
type CatalogStore interface {
	// GetActiveStore returns the active store with the given slug, or an
	// error wrapping ErrStoreNotFound.
	GetActiveStore(ctx context.Context, slug string) (*Store, error)

	// GetActiveProduct returns the active catalog item with the given
	// catalog key, or (nil, nil) when no such item exists. A miss is not
	// an error; it is an unmatched observation.
	GetActiveProduct(ctx context.Context, catalogKey string) (*CatalogItem, error)
}

// ListingStore owns the Listing and PriceHistoryEntry lifecycles.
type ListingStore interface {
	// Begin opens a transaction; the engine commits once per observation.
	Begin(ctx context.Context) (Tx, error)

	// GetListingState returns the current stored price/status for the
	// (product, store) pair, or (nil, nil) when the listing does not
	// exist yet.
	GetListingState(ctx context.Context, tx DBTransaction, productID, storeID uuid.UUID) (*ListingState, error)

	// UpsertListing inserts or updates the listing in one atomic
	// statement, returning the row ID and whether the row was newly
	// created.
	UpsertListing(ctx context.Context, tx DBTransaction, l *Listing) (uuid.UUID, bool, error)

	// InsertPriceHistory appends one history row.
	InsertPriceHistory(ctx context.Context, tx DBTransaction, h *PriceHistoryEntry) error
}
