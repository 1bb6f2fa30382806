// Package runner orchestrates one full scrape run across every configured
// store pipeline.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"pricewatch/internal/ingest"
	"pricewatch/internal/logger"
	"pricewatch/internal/scrape"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Notifier is invoked with the slugs of stores whose listings changed.
// Notification is best effort and never affects the run result.
type Notifier interface {
	Notify(ctx context.Context, stores []string) error
}

// RunResult aggregates the outcome of one full run.
type RunResult struct {
	StoreStats          map[string]*ingest.Stats
	FailedPipelines     []string
	ChangedStores       []string
	TotalMatched        int
	TotalHistoryWritten int
}

// ExitCode derives the process exit status: non-zero only when at least one
// pipeline failed outright. Unmatched items and isolated per-item errors in
// an otherwise-completed pipeline do not count.
func (r *RunResult) ExitCode() int {
	if len(r.FailedPipelines) > 0 {
		return 1
	}
	return 0
}

// Runner fans the configured pipelines out concurrently and feeds each
// one's observation stream into the ingestion engine.
type Runner struct {
	engine   *ingest.Engine
	notifier Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates a runner. The notifier may be a no-op but must not be nil.
func New(engine *ingest.Engine, notifier Notifier, log *slog.Logger) *Runner {
	return &Runner{
		engine:   engine,
		notifier: notifier,
		logger:   log,
		tracer:   otel.Tracer("pricewatch/runner"),
	}
}

type outcome struct {
	slug  string
	stats *ingest.Stats
	err   error
}

// RunAll executes every pipeline concurrently and aggregates their stats.
// A pipeline failure, panics included, is isolated: it marks that store as
// failed and leaves the others untouched. Stores with durable changes are
// reported to the notifier once all pipelines have finished.
func (r *Runner) RunAll(ctx context.Context, pipelines []scrape.Pipeline) *RunResult {
	runID := uuid.New().String()
	ctx = logger.WithRunID(ctx, runID)
	ctx, span := r.tracer.Start(ctx, "scrape.run",
		trace.WithAttributes(attribute.Int("pipelines.count", len(pipelines))))
	defer span.End()

	log := logger.FromContext(ctx, r.logger)
	log.Info("starting scrape run", "pipelines", len(pipelines))
	start := time.Now()

	results := make(chan outcome, len(pipelines))
	var wg sync.WaitGroup
	for _, p := range pipelines {
		wg.Add(1)
		go func(p scrape.Pipeline) {
			defer wg.Done()
			stats, err := r.runOne(ctx, p)
			results <- outcome{slug: p.StoreSlug(), stats: stats, err: err}
		}(p)
	}
	wg.Wait()
	close(results)

	result := &RunResult{StoreStats: make(map[string]*ingest.Stats)}
	for out := range results {
		if out.err != nil {
			result.FailedPipelines = append(result.FailedPipelines, out.slug)
			log.Error("pipeline failed", "store", out.slug, "error", out.err)
		}
		if out.stats == nil {
			continue
		}
		result.StoreStats[out.slug] = out.stats
		result.TotalMatched += out.stats.Matched
		result.TotalHistoryWritten += out.stats.HistoryWritten
		if out.stats.Changed() {
			result.ChangedStores = append(result.ChangedStores, out.slug)
		}
	}
	sort.Strings(result.ChangedStores)
	sort.Strings(result.FailedPipelines)

	if err := r.notifier.Notify(ctx, result.ChangedStores); err != nil {
		log.Error("revalidation notify failed", "error", err)
	}

	span.SetAttributes(
		attribute.Int("run.matched", result.TotalMatched),
		attribute.Int("run.history_written", result.TotalHistoryWritten),
		attribute.Int("run.failed_pipelines", len(result.FailedPipelines)),
	)
	log.Info("scrape run complete",
		"duration", time.Since(start).Round(time.Millisecond).String(),
		"matched", result.TotalMatched,
		"history_written", result.TotalHistoryWritten,
		"changed_stores", len(result.ChangedStores),
		"failed_pipelines", len(result.FailedPipelines),
	)
	return result
}

// runOne drives a single pipeline. The runner owns the batch channel: the
// pipeline writes, the engine reads, and the channel is closed when the
// pipeline returns. Panics anywhere inside the pipeline are converted into
// a pipeline error so other stores keep running.
func (r *Runner) runOne(ctx context.Context, p scrape.Pipeline) (*ingest.Stats, error) {
	slug := p.StoreSlug()
	ctx = logger.WithStore(ctx, slug)
	ctx, span := r.tracer.Start(ctx, "scrape.store",
		trace.WithAttributes(attribute.String("store.slug", slug)))
	defer span.End()

	batches := make(chan []scrape.Observation)
	scrapeErr := make(chan error, 1)
	go func() {
		defer close(batches)
		defer func() {
			if rec := recover(); rec != nil {
				scrapeErr <- fmt.Errorf("pipeline panicked: %v", rec)
			}
		}()
		scrapeErr <- p.Scrape(ctx, batches)
	}()

	stats, ingestErr := r.engine.Ingest(ctx, slug, batches)
	if ingestErr != nil {
		// The engine bailed early; drain so the scraper can finish.
		for range batches {
		}
	}
	err := <-scrapeErr
	if ingestErr != nil {
		err = ingestErr
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}
	return stats, nil
}
