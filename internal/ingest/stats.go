// Package ingest reconciles scraped observations against the catalog,
// persisting listing upserts and conditional price-history writes.
package ingest

import "log/slog"

// unmatchedLogLimit caps how many unmatched keys a single summary line
// carries; the full list stays in the stats.
const unmatchedLogLimit = 20

// Stats accumulates the outcome of one store's ingestion run. It is built
// up during Ingest and immutable once returned.
type Stats struct {
	StoreSlug      string
	TotalScraped   int
	Matched        int      // found an active product row for the catalog key
	Upserted       int      // listing row created or updated
	HistoryWritten int      // price_history rows written
	Unmatched      []string // catalog keys with no product row
	Errors         []string // "catalogKey: message" per failed item
}

// NewStats returns empty stats for one store run.
func NewStats(storeSlug string) *Stats {
	return &Stats{StoreSlug: storeSlug}
}

// Changed reports whether this run touched any durable state.
func (s *Stats) Changed() bool {
	return s.Upserted > 0 || s.HistoryWritten > 0
}

// LogSummary emits the per-store run summary. The logger is expected to
// already carry the store field.
func (s *Stats) LogSummary(l *slog.Logger) {
	l.Info("ingest summary",
		"scraped", s.TotalScraped,
		"matched", s.Matched,
		"upserted", s.Upserted,
		"history_written", s.HistoryWritten,
		"unmatched", len(s.Unmatched),
		"errors", len(s.Errors),
	)
	if len(s.Unmatched) > 0 {
		preview := s.Unmatched
		if len(preview) > unmatchedLogLimit {
			preview = preview[:unmatchedLogLimit]
		}
		l.Warn("unmatched catalog keys", "keys", preview)
	}
	for _, msg := range s.Errors {
		l.Error("ingest item failed", "detail", msg)
	}
}
