// Package notify tells the storefront which stores changed so it can
// revalidate its cached pages.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const requestTimeout = 10 * time.Second

// Revalidator posts changed-store notifications to the storefront's
// revalidation endpoint. Delivery is best effort; callers log failures and
// never fail a run over them.
type Revalidator struct {
	url    string
	secret string
	client *http.Client
	logger *slog.Logger
}

// NewRevalidator creates a notifier for the given endpoint. Either value
// may be empty, in which case Notify becomes a no-op.
func NewRevalidator(url, secret string, log *slog.Logger) *Revalidator {
	return &Revalidator{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: requestTimeout},
		logger: log,
	}
}

type revalidateRequest struct {
	Secret string   `json:"secret"`
	Stores []string `json:"stores"`
}

// Notify posts the changed store slugs. An unconfigured endpoint or an
// empty store list is skipped silently apart from a log line.
func (r *Revalidator) Notify(ctx context.Context, stores []string) error {
	if len(stores) == 0 {
		return nil
	}
	if r.url == "" || r.secret == "" {
		r.logger.Warn("revalidation not configured, skipping", "stores", stores)
		return nil
	}

	body, err := json.Marshal(revalidateRequest{Secret: r.secret, Stores: stores})
	if err != nil {
		return fmt.Errorf("failed to marshal revalidate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create revalidate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("revalidate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("revalidate endpoint returned status %d", resp.StatusCode)
	}

	r.logger.Info("revalidation triggered", "stores", stores)
	return nil
}
