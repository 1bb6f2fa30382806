// Package scrape contains the store-agnostic scraping primitives: the
// normalized price observation model, stock status canonicalization, and the
// bounded, rate-limited fetch executor shared by all store pipelines.
package scrape

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// StockStatus is the canonical stock state stored on listings.
// Values must match the stock_status column exactly.
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockBackorder  StockStatus = "backorder"
	StockPreOrder   StockStatus = "pre_order"
	StockLimited    StockStatus = "limited"
)

// Purchasable reports whether an item in this state can actually be bought.
func (s StockStatus) Purchasable() bool {
	return s == StockInStock || s == StockLimited
}

// stockNormalization maps raw retailer strings to canonical values.
// Add entries as new stores expose new status strings.
var stockNormalization = map[string]StockStatus{
	// in_stock
	"in stock":                           StockInStock,
	"in-stock":                           StockInStock,
	"instock":                            StockInStock,
	"available":                          StockInStock,
	"add to cart":                        StockInStock,
	"ships now":                          StockInStock,
	"usually ships in 24 hours":          StockInStock,
	"usually ships in 1-3 business days": StockInStock,
	// out_of_stock
	"out of stock":  StockOutOfStock,
	"out-of-stock":  StockOutOfStock,
	"outofstock":    StockOutOfStock,
	"sold out":      StockOutOfStock,
	"unavailable":   StockOutOfStock,
	"not available": StockOutOfStock,
	// backorder
	"backorder":    StockBackorder,
	"back order":   StockBackorder,
	"on backorder": StockBackorder,
	"backordered":  StockBackorder,
	// pre_order
	"pre-order":   StockPreOrder,
	"preorder":    StockPreOrder,
	"pre order":   StockPreOrder,
	"coming soon": StockPreOrder,
	// limited
	"limited":              StockLimited,
	"low stock":            StockLimited,
	"limited availability": StockLimited,
	"only a few left":      StockLimited,
}

// NormalizeStockStatus maps a raw retailer stock string to a canonical
// StockStatus. Unrecognized values fall back to out_of_stock: better to show
// "unavailable" than incorrectly present a price as buyable. Unknown strings
// are logged so the normalization map can be extended.
func NormalizeStockStatus(raw string) StockStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	if status, ok := stockNormalization[key]; ok {
		return status
	}
	slog.Warn("unknown stock status string, defaulting to out_of_stock", "raw", raw)
	return StockOutOfStock
}

// Validation errors returned by NewObservation.
var (
	ErrEmptyCatalogKey = errors.New("catalog key cannot be empty")
	ErrNegativePrice   = errors.New("negative price")
)

// Observation is a single scraped product price from one store, already
// normalized. CatalogKey is the deduplication key matched against the
// products table (e.g. "48-75"). SourceSKU is optional, useful for debugging
// but not required for the upsert.
type Observation struct {
	CatalogKey   string
	Price        float64 // USD
	Status       StockStatus
	SourceURL    string
	SourceSKU    string
	AffiliateURL string
}

// NewObservation validates and builds an Observation. Invalid data fails
// here, before it can ever reach the ingestion engine.
func NewObservation(catalogKey string, price float64, status StockStatus) (Observation, error) {
	if strings.TrimSpace(catalogKey) == "" {
		return Observation{}, ErrEmptyCatalogKey
	}
	if price < 0 {
		return Observation{}, fmt.Errorf("%w: %v", ErrNegativePrice, price)
	}
	return Observation{
		CatalogKey: catalogKey,
		Price:      price,
		Status:     status,
	}, nil
}

// Purchasable reports whether the observed stock state is buyable.
func (o Observation) Purchasable() bool {
	return o.Status.Purchasable()
}
