package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// FeedPipeline consumes a paginated JSON price feed through the shared
// Fetcher. It is the generic stand-in for store-specific scrapers: the feed
// endpoint owns all page parsing and serves already-extracted fields.
//
// Expected payload per page, either object-wrapped or a bare array:
//
//	{"observations":[{"catalog_key":"48-75","price":42.5,"stock_status":"In Stock", ...}]}
//
// Pagination stops at the configured page count, or on the first empty or
// 404 page when the count is zero.
type FeedPipeline struct {
	slug    string
	baseURL string
	pages   int
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewFeedPipeline builds a pipeline for one store feed.
func NewFeedPipeline(slug, baseURL string, pages int, fetcher *Fetcher, logger *slog.Logger) *FeedPipeline {
	return &FeedPipeline{
		slug:    slug,
		baseURL: baseURL,
		pages:   pages,
		fetcher: fetcher,
		logger:  logger.With("store", slug),
	}
}

type feedItem struct {
	CatalogKey   string  `json:"catalog_key"`
	Price        float64 `json:"price"`
	StockStatus  string  `json:"stock_status"`
	URL          string  `json:"url,omitempty"`
	SKU          string  `json:"sku,omitempty"`
	AffiliateURL string  `json:"affiliate_url,omitempty"`
}

func (p *FeedPipeline) StoreSlug() string { return p.slug }

// Scrape walks the feed page by page, sending one batch per page. A failed
// page is logged and skipped; it never aborts the remaining pages.
func (p *FeedPipeline) Scrape(ctx context.Context, out chan<- []Observation) error {
	for page := 1; p.pages <= 0 || page <= p.pages; page++ {
		url := fmt.Sprintf("%s?page=%d", p.baseURL, page)

		body, err := p.fetcher.Get(ctx, url)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
				// Walked past the last page.
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("feed page fetch failed, skipping", "page", page, "error", err)
			if p.pages <= 0 {
				// Unbounded pagination has no other terminator.
				return nil
			}
			continue
		}

		items, err := decodeFeedPage(body)
		if err != nil {
			p.logger.Warn("feed page parse failed, skipping", "page", page, "error", err)
			if p.pages <= 0 {
				return nil
			}
			continue
		}
		if len(items) == 0 {
			return nil
		}

		batch := make([]Observation, 0, len(items))
		for _, it := range items {
			obs, err := NewObservation(it.CatalogKey, it.Price, NormalizeStockStatus(it.StockStatus))
			if err != nil {
				p.logger.Warn("dropping invalid feed item", "catalog_key", it.CatalogKey, "error", err)
				continue
			}
			obs.SourceURL = it.URL
			obs.SourceSKU = it.SKU
			obs.AffiliateURL = it.AffiliateURL
			batch = append(batch, obs)
		}

		select {
		case out <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func decodeFeedPage(body []byte) ([]feedItem, error) {
	var wrapped struct {
		Observations []feedItem `json:"observations"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Observations != nil {
		return wrapped.Observations, nil
	}
	var items []feedItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("feed payload parse: %w", err)
	}
	return items, nil
}
