package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"pricewatch/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

func TestGetActiveStore_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	storeID := uuid.New()
	mock.ExpectQuery(`SELECT id, slug, name, is_active, created_at FROM stores`).
		WithArgs("miniature-market").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "is_active", "created_at"}).
			AddRow(storeID, "miniature-market", "Miniature Market", true, time.Now()))

	st, err := s.GetActiveStore(context.Background(), "miniature-market")
	if err != nil {
		t.Fatalf("GetActiveStore failed: %v", err)
	}
	if st.ID != storeID {
		t.Errorf("got store ID %v, want %v", st.ID, storeID)
	}
	if st.Slug != "miniature-market" {
		t.Errorf("got slug %q", st.Slug)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetActiveStore_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT id, slug, name, is_active, created_at FROM stores`).
		WithArgs("defunct-store").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetActiveStore(context.Background(), "defunct-store")
	if !errors.Is(err, store.ErrStoreNotFound) {
		t.Errorf("expected ErrStoreNotFound, got %v", err)
	}
}

func TestGetActiveProduct_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	productID := uuid.New()
	mock.ExpectQuery(`SELECT id, catalog_key, name, reference_price_usd, is_active, created_at FROM products`).
		WithArgs("48-75").
		WillReturnRows(sqlmock.NewRows([]string{"id", "catalog_key", "name", "reference_price_usd", "is_active", "created_at"}).
			AddRow(productID, "48-75", "Intercessors", 55.00, true, time.Now()))

	item, err := s.GetActiveProduct(context.Background(), "48-75")
	if err != nil {
		t.Fatalf("GetActiveProduct failed: %v", err)
	}
	if item == nil {
		t.Fatal("expected a catalog item")
	}
	if item.ReferencePrice != 55.00 {
		t.Errorf("got reference price %v, want 55.00", item.ReferencePrice)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetActiveProduct_MissIsNotAnError(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT id, catalog_key, name, reference_price_usd, is_active, created_at FROM products`).
		WithArgs("99-99").
		WillReturnError(sql.ErrNoRows)

	item, err := s.GetActiveProduct(context.Background(), "99-99")
	if err != nil {
		t.Fatalf("expected nil error for a miss, got %v", err)
	}
	if item != nil {
		t.Errorf("expected nil item, got %+v", item)
	}
}
