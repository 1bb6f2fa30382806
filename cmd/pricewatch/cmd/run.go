package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/ingest"
	"pricewatch/internal/logger"
	"pricewatch/internal/notify"
	"pricewatch/internal/observability"
	"pricewatch/internal/runner"
	"pricewatch/internal/scrape"
	"pricewatch/internal/store/postgres"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every configured store pipeline once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if len(cfg.Feeds) == 0 {
			return fmt.Errorf("no store feeds configured")
		}

		log := logger.New(logger.ParseLevel(cfg.LogLevel))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownTracer, err := observability.InitTracer(ctx, "pricewatch", cfg.OTELEndpoint)
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracer(shutdownCtx); err != nil {
				log.Error("failed to shut down tracer", "error", err)
			}
		}()

		if cfg.MetricsAddr != "" {
			handler, shutdownMetrics, err := observability.InitMetrics()
			if err != nil {
				return fmt.Errorf("failed to init metrics: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownMetrics(shutdownCtx)
			}()

			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("metrics server failed", "error", err)
				}
			}()
			defer srv.Close()
			log.Info("metrics server listening", "addr", cfg.MetricsAddr)
		}

		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		pipelines := make([]scrape.Pipeline, 0, len(cfg.Feeds))
		fetchers := make([]*scrape.Fetcher, 0, len(cfg.Feeds))
		for _, feed := range cfg.Feeds {
			// One fetcher per store: the politeness delay and concurrency
			// bound are per-site budgets, not global ones.
			f := scrape.NewFetcher(scrape.FetcherConfig{
				Concurrency: cfg.FetchConcurrency,
				Delay:       cfg.FetchDelay,
				Timeout:     cfg.FetchTimeout,
			})
			fetchers = append(fetchers, f)
			pipelines = append(pipelines, scrape.NewFeedPipeline(feed.Slug, feed.URL, feed.Pages, f, log))
		}
		defer func() {
			for _, f := range fetchers {
				f.Close()
			}
		}()

		engine := ingest.New(db, log)
		notifier := notify.NewRevalidator(cfg.RevalidateURL, cfg.RevalidateSecret, log)

		result := runner.New(engine, notifier, log).RunAll(ctx, pipelines)
		if result.ExitCode() != 0 {
			return fmt.Errorf("%d of %d pipelines failed", len(result.FailedPipelines), len(pipelines))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
