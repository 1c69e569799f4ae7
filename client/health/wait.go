// Package health waits for the PDVD backend to report itself healthy.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

const (
	initialInterval = 500 * time.Millisecond
	maxInterval     = 10 * time.Second
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Status is the body served by the backend root endpoint
type Status struct {
	Status string `json:"status"`
}

// HealthURL derives the root health endpoint from an API base URL
// (http://host:8080/api/v1 -> http://host:8080/).
func HealthURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if idx := strings.Index(base, "/api/"); idx >= 0 {
		base = base[:idx]
	}
	return base + "/"
}

// Check performs a single probe of the health endpoint
func Check(ctx context.Context, doer Doer, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, HealthURL(baseURL), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := doer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %s", resp.Status)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	if status.Status != "healthy" {
		return fmt.Errorf("backend reports status %q", status.Status)
	}
	return nil
}

// Wait probes the backend with exponential backoff until it is healthy,
// maxElapsed passes, or ctx is cancelled.
func Wait(ctx context.Context, doer Doer, baseURL string, maxElapsed time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Configure exponential backoff
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialInterval
	bo.MaxInterval = maxInterval
	bo.MaxElapsedTime = maxElapsed

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return Check(ctx, doer, baseURL)
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		logger.Sugar().Infof("Backend not ready (attempt %d): %v; retrying in %s", attempt, err, next)
	})
	if err != nil {
		return fmt.Errorf("backend at %s not healthy after %d attempts: %w", HealthURL(baseURL), attempt, err)
	}

	logger.Sugar().Infof("Backend at %s is healthy", HealthURL(baseURL))
	return nil
}
