// Package alerts fetches the weather-hazard polygon set.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/skydrift/balloon-track/internal/config"
	"github.com/skydrift/balloon-track/internal/domain"
	"github.com/skydrift/balloon-track/internal/observability"
)

// Client retrieves hazard features, preferring a proxy-mediated URL and
// falling back to one direct attempt. The caller fails open on error: alert
// matching proceeds with an empty hazard set rather than blocking tracking.
type Client struct {
	proxyURL   string
	directURL  string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a hazard feed client. An empty proxy URL disables the
// mediated attempt.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		proxyURL:   cfg.AlertsProxyURL,
		directURL:  cfg.AlertsDirectURL,
		httpClient: &http.Client{},
		timeout:    cfg.AlertsFetchTimeout,
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchHazards tries each configured URL in order, one attempt apiece, and
// parses the first successful response.
func (c *Client) FetchHazards(ctx context.Context) ([]domain.HazardFeature, error) {
	var errs []error
	for i, url := range c.urls() {
		if i > 0 {
			c.metrics.HazardFeedFallbacks.Inc()
			c.logger.Warn("hazard proxy fetch failed, trying direct", "error", errs[len(errs)-1])
		}

		body, err := c.fetch(ctx, url)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		hazards, err := domain.ParseHazards(body, c.logger)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return hazards, nil
	}
	return nil, fmt.Errorf("hazard feed unavailable: %w", errors.Join(errs...))
}

func (c *Client) urls() []string {
	if c.proxyURL == "" {
		return []string{c.directURL}
	}
	return []string{c.proxyURL, c.directURL}
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")
	req.Header.Set("User-Agent", "balloon-track/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hazards: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hazard feed returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
