// Package store contains the database layer for pricewatch.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Store is one retail store whose prices we track.
type Store struct {
	ID        uuid.UUID
	Slug      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// CatalogItem is a canonical product. The catalog-management process owns
// these rows; this pipeline only ever reads them.
type CatalogItem struct {
	ID uuid.UUID
	// CatalogKey is the store-agnostic identifier (e.g. "48-75") scrapers
	// match against.
	CatalogKey string
	Name       string
	// ReferencePrice is the RRP in USD, the single source of truth for
	// discount computation. It may change between runs.
	ReferencePrice float64
	IsActive       bool
	CreatedAt      time.Time
}

// Listing is the durable current-state record of one catalog item's price
// and stock at one store. (ProductID, StoreID) is the unique key. Listings
// are mutated only via upsert and never deleted by the ingestion pipeline.
type Listing struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	StoreID       uuid.UUID
	SourceURL     *string
	SourceSKU     *string
	AffiliateURL  *string
	CurrentPrice  float64
	DiscountPct   float64
	InStock       bool
	StockStatus   string
	LastScraped   time.Time
	LastCheckedAt time.Time
}

// ListingState is the pre-upsert snapshot used for change detection.
type ListingState struct {
	ID           uuid.UUID
	CurrentPrice float64
	StockStatus  string
}

// PriceHistoryEntry is an append-only snapshot, written only when a
// listing's price or stock status actually changes.
type PriceHistoryEntry struct {
	ID          uuid.UUID
	ListingID   uuid.UUID
	Price       float64
	DiscountPct float64
	InStock     bool
	ScrapedAt   time.Time
}
