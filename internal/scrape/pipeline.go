package scrape

import "context"

// Pipeline produces normalized price observations for one store.
// Concrete implementations own all site-specific extraction; the ingestion
// side only ever sees the slug and the observation stream.
type Pipeline interface {
	// StoreSlug returns the store identifier, matching stores.slug in the DB.
	StoreSlug() string

	// Scrape sends batches of observations on out until the store is
	// exhausted, then returns. Implementations must not close out; the
	// caller owns the channel. Streaming producers send one batch per page,
	// list producers send a single terminal batch.
	Scrape(ctx context.Context, out chan<- []Observation) error
}

// staticPipeline adapts an already-materialized result list into a
// single-batch pipeline.
type staticPipeline struct {
	slug         string
	observations []Observation
}

// Static wraps a fixed observation list as a Pipeline. Useful for stores
// whose scrapers return full lists rather than yielding incrementally, and
// for tests.
func Static(slug string, observations []Observation) Pipeline {
	return &staticPipeline{slug: slug, observations: observations}
}

func (p *staticPipeline) StoreSlug() string { return p.slug }

func (p *staticPipeline) Scrape(ctx context.Context, out chan<- []Observation) error {
	if len(p.observations) == 0 {
		return nil
	}
	select {
	case out <- p.observations:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
