package scrape

import (
	"errors"
	"testing"
)

func TestNormalizeStockStatus_KnownValues(t *testing.T) {
	cases := map[string]StockStatus{
		"In Stock":        StockInStock,
		"  add to cart  ": StockInStock,
		"SOLD OUT":        StockOutOfStock,
		"Backordered":     StockBackorder,
		"Pre-Order":       StockPreOrder,
		"coming soon":     StockPreOrder,
		"Low Stock":       StockLimited,
		"only a few left": StockLimited,
	}
	for raw, want := range cases {
		if got := NormalizeStockStatus(raw); got != want {
			t.Errorf("NormalizeStockStatus(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNormalizeStockStatus_UnknownDefaultsToOutOfStock(t *testing.T) {
	for _, raw := range []string{"", "???", "Ships eventually", "2 on order", "call us"} {
		if got := NormalizeStockStatus(raw); got != StockOutOfStock {
			t.Errorf("NormalizeStockStatus(%q) = %v, want out_of_stock", raw, got)
		}
	}
}

func TestStockStatus_Purchasable(t *testing.T) {
	purchasable := map[StockStatus]bool{
		StockInStock:    true,
		StockLimited:    true,
		StockOutOfStock: false,
		StockBackorder:  false,
		StockPreOrder:   false,
	}
	for status, want := range purchasable {
		if got := status.Purchasable(); got != want {
			t.Errorf("%v.Purchasable() = %v, want %v", status, got, want)
		}
	}
}

func TestNewObservation_Valid(t *testing.T) {
	obs, err := NewObservation("48-75", 42.50, StockInStock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.CatalogKey != "48-75" || obs.Price != 42.50 {
		t.Errorf("unexpected observation: %+v", obs)
	}
	if !obs.Purchasable() {
		t.Error("in_stock observation should be purchasable")
	}

	// Zero price is allowed (free promo items exist).
	if _, err := NewObservation("43-06", 0, StockOutOfStock); err != nil {
		t.Errorf("zero price should be valid: %v", err)
	}
}

func TestNewObservation_NegativePrice(t *testing.T) {
	_, err := NewObservation("48-75", -1.50, StockInStock)
	if !errors.Is(err, ErrNegativePrice) {
		t.Errorf("expected ErrNegativePrice, got %v", err)
	}
}

func TestNewObservation_EmptyCatalogKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		_, err := NewObservation(key, 10, StockInStock)
		if !errors.Is(err, ErrEmptyCatalogKey) {
			t.Errorf("NewObservation(%q): expected ErrEmptyCatalogKey, got %v", key, err)
		}
	}
}
