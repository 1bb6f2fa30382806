package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher(concurrency int) *Fetcher {
	f := NewFetcher(FetcherConfig{
		Concurrency: concurrency,
		Timeout:     5 * time.Second,
		Retry: RetryPolicy{
			MaxAttempts: 3,
			MinBackoff:  time.Millisecond,
			MaxBackoff:  4 * time.Millisecond,
		},
	})
	// No real waiting between attempts in tests.
	f.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return f
}

func TestGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("expected a User-Agent header")
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	f := newTestFetcher(1)
	defer f.Close()

	body, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("got body %q, want hello", body)
	}
}

func TestGet_NonOKStatusNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newTestFetcher(1)
	defer f.Close()

	_, err := f.Get(context.Background(), srv.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got status %d, want 503", statusErr.StatusCode)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("non-2xx should not be retried: got %d attempts", n)
	}
}

func TestGet_TransientFailureRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			// Kill the connection so the client sees a network error.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("server does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack failed: %v", err)
			}
			conn.Close()
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newTestFetcher(1)
	defer f.Close()

	body, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get failed after retries: %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("got body %q, want recovered", body)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestGet_RetriesExhaustedSurfacesError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		hj := w.(http.Hijacker)
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatalf("hijack failed: %v", err)
		}
		conn.Close()
	}))
	defer srv.Close()

	f := newTestFetcher(1)
	defer f.Close()

	_, err := f.Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", n)
	}
}

func TestGet_ConcurrencyBound(t *testing.T) {
	var inflight, maxInflight int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt32(&inflight, 1)
		for {
			old := atomic.LoadInt32(&maxInflight)
			if cur <= old || atomic.CompareAndSwapInt32(&maxInflight, old, cur) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	const bound = 2
	f := newTestFetcher(bound)
	defer f.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Get(context.Background(), srv.URL); err != nil {
				t.Errorf("Get failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxInflight); got > bound {
		t.Errorf("observed %d concurrent fetches, bound is %d", got, bound)
	}
}

func TestGet_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(1)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Get(ctx, srv.URL); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestRetryPolicy_BackoffCurve(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts: 3,
		MinBackoff:  4 * time.Second,
		MaxBackoff:  30 * time.Second,
	}

	if got := p.Backoff(1); got != 4*time.Second {
		t.Errorf("Backoff(1) = %v, want 4s", got)
	}
	if got := p.Backoff(2); got != 8*time.Second {
		t.Errorf("Backoff(2) = %v, want 8s", got)
	}
	if got := p.Backoff(4); got != 30*time.Second {
		t.Errorf("Backoff(4) = %v, want cap 30s", got)
	}
}

func TestRetryPolicy_BackoffJitterStaysBounded(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, MinBackoff: 4 * time.Second, MaxBackoff: 30 * time.Second, Jitter: true}
	for i := 0; i < 50; i++ {
		d := p.Backoff(1)
		if d < 4*time.Second || d > 5*time.Second {
			t.Fatalf("jittered Backoff(1) = %v, want within [4s, 5s]", d)
		}
	}
}

func TestRetryPolicy_Retryable(t *testing.T) {
	p := DefaultRetryPolicy()

	if p.Retryable(&StatusError{URL: "http://x", StatusCode: 500}) {
		t.Error("status errors must not be retryable")
	}
	if p.Retryable(context.Canceled) {
		t.Error("cancellation must not be retryable")
	}
	if !p.Retryable(context.DeadlineExceeded) {
		t.Error("timeouts must be retryable")
	}
}
