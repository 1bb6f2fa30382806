package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"pricewatch/internal/logger"
	"pricewatch/internal/scrape"
	"pricewatch/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Repository is the durable-store surface the engine needs: read-only
// catalog lookups plus the listing/history write path.
type Repository interface {
	store.CatalogStore
	store.ListingStore
}

// Engine reconciles observation streams against the catalog for one store
// at a time. It is safe for concurrent use across stores: every write is
// scoped to a (product, store) key, so pipelines never contend.
type Engine struct {
	repo   Repository
	logger *slog.Logger

	observations  metric.Int64Counter
	historyWrites metric.Int64Counter
}

// New creates an ingestion engine.
func New(repo Repository, log *slog.Logger) *Engine {
	meter := otel.Meter("pricewatch/ingest")
	observations, _ := meter.Int64Counter("ingest_observations_total",
		metric.WithDescription("Observations processed, labelled by result."))
	historyWrites, _ := meter.Int64Counter("ingest_history_writes_total",
		metric.WithDescription("Price history rows written."))

	return &Engine{
		repo:          repo,
		logger:        log,
		observations:  observations,
		historyWrites: historyWrites,
	}
}

// Ingest consumes observation batches for one store until the channel is
// closed and returns the accumulated stats. The slug must resolve to an
// active store; anything else aborts this store's run before any writes.
// Individual observation failures are isolated into Stats.Errors and never
// abort the batch.
func (e *Engine) Ingest(ctx context.Context, storeSlug string, batches <-chan []scrape.Observation) (*Stats, error) {
	st, err := e.repo.GetActiveStore(ctx, storeSlug)
	if err != nil {
		return nil, err
	}

	stats := NewStats(storeSlug)
	log := logger.FromContext(logger.WithStore(ctx, storeSlug), e.logger)

	for batch := range batches {
		for _, obs := range batch {
			stats.TotalScraped++
			if err := e.ingestOne(ctx, st, obs, stats); err != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", obs.CatalogKey, err))
				log.Error("failed to ingest observation", "catalog_key", obs.CatalogKey, "error", err)
				e.observations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "error")))
			}
		}
		if ctx.Err() != nil {
			stats.LogSummary(log)
			return stats, ctx.Err()
		}
	}

	stats.LogSummary(log)
	return stats, nil
}

// ingestOne runs the per-observation algorithm: match, compute, upsert,
// conditionally append history. Each observation commits its own
// transaction, so a crash mid-run loses at most the in-flight item.
func (e *Engine) ingestOne(ctx context.Context, st *store.Store, obs scrape.Observation, stats *Stats) error {
	item, err := e.repo.GetActiveProduct(ctx, obs.CatalogKey)
	if err != nil {
		return err
	}
	if item == nil {
		stats.Unmatched = append(stats.Unmatched, obs.CatalogKey)
		e.observations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "unmatched")))
		return nil
	}
	stats.Matched++

	// Recomputed every run: the reference price is the single source of
	// truth and may itself have changed since the last scrape.
	discount := discountPct(item.ReferencePrice, obs.Price)
	inStock := obs.Purchasable()

	tx, err := e.repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Pre-upsert snapshot for change detection.
	prev, err := e.repo.GetListingState(ctx, tx, item.ID, st.ID)
	if err != nil {
		return err
	}

	listingID, created, err := e.repo.UpsertListing(ctx, tx, &store.Listing{
		ProductID:    item.ID,
		StoreID:      st.ID,
		SourceURL:    nullable(obs.SourceURL),
		SourceSKU:    nullable(obs.SourceSKU),
		AffiliateURL: nullable(obs.AffiliateURL),
		CurrentPrice: obs.Price,
		DiscountPct:  discount,
		InStock:      inStock,
		StockStatus:  string(obs.Status),
	})
	if err != nil {
		return err
	}
	stats.Upserted++

	// A brand-new listing always gets its first history row; an existing
	// one only when price or stock status actually moved.
	changed := created || prev == nil ||
		prev.CurrentPrice != obs.Price ||
		prev.StockStatus != string(obs.Status)

	if changed {
		if err := e.repo.InsertPriceHistory(ctx, tx, &store.PriceHistoryEntry{
			ListingID:   listingID,
			Price:       obs.Price,
			DiscountPct: discount,
			InStock:     inStock,
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if changed {
		stats.HistoryWritten++
		e.historyWrites.Add(ctx, 1)
	}
	e.observations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "ingested")))
	return nil
}

// discountPct computes the discount against the reference price, rounded to
// two decimals. A non-positive reference price yields 0.
func discountPct(referencePrice, price float64) float64 {
	if referencePrice <= 0 {
		return 0
	}
	return math.Round((referencePrice-price)/referencePrice*100*100) / 100
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
