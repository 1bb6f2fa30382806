package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; PricewatchBot/1.0; +https://pricewatch.example/bot)"

// StatusError is an application-level fetch failure: the origin answered,
// but not with a 2xx. It is never retried.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// RetryPolicy controls how the Fetcher retries transient network failures.
// It is a plain value so tests can exercise the backoff curve in isolation.
type RetryPolicy struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	Jitter      bool
}

// DefaultRetryPolicy matches the politeness the stores have tolerated so far:
// 3 attempts, exponential 4s..30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		MinBackoff:  4 * time.Second,
		MaxBackoff:  30 * time.Second,
		Jitter:      true,
	}
}

// Backoff returns the delay before the retry following the given attempt
// (1-based). The curve doubles from MinBackoff and is capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.MinBackoff * time.Duration(1<<uint(attempt-1))
	if d <= 0 || d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if p.Jitter {
		d += time.Duration(rand.Int63n(int64(d)/4 + 1))
	}
	return d
}

// Retryable reports whether err is a transient network-layer failure.
// Non-2xx responses surface as *StatusError and are never retried.
func (p RetryPolicy) Retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Timeouts, refused connections, resets.
		return true
	}
	return false
}

// FetcherConfig holds the per-store fetch tunables.
type FetcherConfig struct {
	// Concurrency bounds how many fetches may be in flight at once.
	Concurrency int
	// Delay is the politeness interval enforced between request starts,
	// independent of the concurrency bound.
	Delay time.Duration
	// Timeout is the hard per-attempt deadline.
	Timeout   time.Duration
	UserAgent string
	Retry     RetryPolicy
}

// Fetcher performs GET requests for one store pipeline under a concurrency
// bound with politeness delay and transient-failure retry. It keeps no state
// across calls beyond connection pooling; construct one per pipeline lifetime
// and Close it at the end.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	sem       chan struct{}
	timeout   time.Duration
	userAgent string
	retry     RetryPolicy

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher builds a Fetcher from config, applying conservative defaults.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:   limiter,
		sem:       make(chan struct{}, cfg.Concurrency),
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		retry:     cfg.Retry,
		sleep:     sleepCtx,
	}
}

// Get fetches url and returns the response body. Transient network failures
// are retried per the policy; after retries are exhausted the last error is
// returned unmodified. A non-2xx response returns *StatusError immediately.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	select {
	case f.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-f.sem }()

	// Politeness: one request start per Delay across all slots.
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= f.retry.MaxAttempts; attempt++ {
		body, err := f.do(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !f.retry.Retryable(err) || attempt == f.retry.MaxAttempts {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if serr := f.sleep(ctx, f.retry.Backoff(attempt)); serr != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (f *Fetcher) do(ctx context.Context, rawURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	if readErr != nil {
		return nil, readErr
	}
	return body, nil
}

// Close releases pooled connections.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
