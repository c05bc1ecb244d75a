// Package feed fetches hourly constellation snapshots from the upstream
// positional feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/skydrift/balloon-track/internal/config"
	"github.com/skydrift/balloon-track/internal/domain"
	"github.com/skydrift/balloon-track/internal/observability"
)

// Client fetches one snapshot per call. Failures are reported, not
// propagated: a refresh cycle degrades to partial data instead of aborting.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	currentTimeout time.Duration
	historyTimeout time.Duration
	logger         *slog.Logger
	metrics        *observability.Metrics
}

// NewClient creates a snapshot feed client.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:        cfg.FeedBaseURL,
		httpClient:     &http.Client{},
		limiter:        rate.NewLimiter(rate.Limit(cfg.FeedRateLimit), cfg.FeedRateBurst),
		currentTimeout: cfg.CurrentFetchTimeout,
		historyTimeout: cfg.HistoryFetchTimeout,
		logger:         logger,
		metrics:        metrics,
	}
}

// Fetch retrieves the snapshot for the given hour offset (0 = current,
// N = N hours ago). The returned slice preserves array indices, including
// nil slots for invalid elements, because a balloon's identity is its index.
// ok is false on timeout, non-2xx status, or a malformed body.
//
// The current snapshot gets a longer timeout than historical ones: it is the
// larger payload and the one the alert cycle depends on.
func (c *Client) Fetch(ctx context.Context, hourOffset int) ([]domain.RawTuple, bool) {
	timeout := c.historyTimeout
	if hourOffset == 0 {
		timeout = c.currentTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	tuples, err := c.fetch(ctx, hourOffset)
	c.metrics.SnapshotFetchSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.SnapshotFetches.WithLabelValues("failure").Inc()
		c.logger.Warn("snapshot fetch failed", "hour_offset", hourOffset, "error", err)
		return nil, false
	}

	c.metrics.SnapshotFetches.WithLabelValues("success").Inc()
	return tuples, true
}

func (c *Client) fetch(ctx context.Context, hourOffset int) ([]domain.RawTuple, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/%02d.json", c.baseURL, hourOffset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "balloon-track/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return decodeSnapshot(body)
}

// decodeSnapshot parses the snapshot array element by element so one
// corrupted entry does not poison the rest. An element that fails to decode
// as a numeric tuple keeps its index as a nil slot, to be rejected by
// validation downstream.
func decodeSnapshot(body []byte) ([]domain.RawTuple, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(body, &elements); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	tuples := make([]domain.RawTuple, len(elements))
	for i, el := range elements {
		var t domain.RawTuple
		if err := json.Unmarshal(el, &t); err != nil {
			continue
		}
		tuples[i] = t
	}
	return tuples, nil
}
