package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skydrift/balloon-track/internal/config"
	"github.com/skydrift/balloon-track/internal/domain"
	"github.com/skydrift/balloon-track/internal/observability"
)

// HazardFetcher retrieves the current hazard polygon set.
type HazardFetcher interface {
	FetchHazards(ctx context.Context) ([]domain.HazardFeature, error)
}

// SummaryPublisher pushes a completed refresh to downstream consumers.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, tracks *TrackSnapshot, alerts *AlertSnapshot) error
}

// Refresher drives the two independent refresh cycles: positional tracks on
// the hour, hazard alerts every 15 minutes. Each cycle publishes its result
// into the shared Store.
type Refresher struct {
	merger    *Merger
	hazards   HazardFetcher
	store     *Store
	publisher SummaryPublisher // nil when the summary sink is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics

	trackInterval time.Duration
	alertInterval time.Duration

	ready atomic.Bool
}

// NewRefresher wires the refresh cycles. publisher may be nil.
func NewRefresher(
	cfg *config.Config,
	merger *Merger,
	hazards HazardFetcher,
	store *Store,
	publisher SummaryPublisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Refresher {
	return &Refresher{
		merger:        merger,
		hazards:       hazards,
		store:         store,
		publisher:     publisher,
		logger:        logger,
		metrics:       metrics,
		trackInterval: cfg.TrackRefreshInterval,
		alertInterval: cfg.AlertRefreshInterval,
	}
}

// CheckReadiness returns nil once at least one positional refresh has
// completed, or an error describing why the service is not yet ready.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no positional refresh has completed yet")
	}
	return nil
}

// Run executes both refresh loops until the context is cancelled. Each loop
// refreshes once immediately, then on its interval.
func (r *Refresher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.runLoop(ctx, "tracks", r.trackInterval, r.RefreshTracks)
	}()
	go func() {
		defer wg.Done()
		r.runLoop(ctx, "alerts", r.alertInterval, r.RefreshAlerts)
	}()
	wg.Wait()
	return nil
}

func (r *Refresher) runLoop(ctx context.Context, cycle string, interval time.Duration, refresh func(context.Context) error) {
	r.logger.Info("refresh loop started", "cycle", cycle, "interval", interval)
	for {
		if err := refresh(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("refresh failed", "cycle", cycle, "error", err)
		}
		if !sleepWithContext(ctx, interval) {
			r.logger.Info("refresh loop stopping", "cycle", cycle, "reason", ctx.Err())
			return
		}
	}
}

// RefreshTracks runs one positional refresh: merge all snapshots, build the
// population stats and per-balloon classifications, and publish the snapshot.
func (r *Refresher) RefreshTracks(ctx context.Context) error {
	start := time.Now()

	histories, anyFailed, err := r.merger.MergeAll(ctx)
	if err != nil {
		r.metrics.Refreshes.WithLabelValues("tracks", "failure").Inc()
		return err
	}

	stats := domain.BuildStats(histories)
	classifications := make(map[string]domain.Classification, len(histories))
	for id, hist := range histories {
		classifications[id] = domain.Classify(hist.TotalDistanceKm, stats)
	}

	snap := &TrackSnapshot{
		Histories:       histories,
		Stats:           stats,
		Classifications: classifications,
		AnyFetchFailed:  anyFailed,
		RefreshedAt:     clock.Now(),
	}
	r.store.SetTracks(snap)
	r.ready.Store(true)

	r.metrics.Refreshes.WithLabelValues("tracks", "success").Inc()
	r.metrics.RefreshSeconds.WithLabelValues("tracks").Observe(time.Since(start).Seconds())
	r.metrics.BalloonsTracked.Set(float64(len(histories)))

	r.logger.Info("positional refresh complete",
		"balloons", len(histories),
		"max_distance_km", stats.MaxDistanceKm,
		"any_fetch_failed", anyFailed,
		"duration", time.Since(start),
	)

	r.publish(ctx, snap)
	return nil
}

// RefreshAlerts runs one alert refresh against the latest positional
// snapshot. A dead hazard feed fails open: the cycle still publishes an
// empty alert set so tracking never blocks on alerts.
func (r *Refresher) RefreshAlerts(ctx context.Context) error {
	start := time.Now()

	hazards, err := r.hazards.FetchHazards(ctx)
	if err != nil {
		r.metrics.Refreshes.WithLabelValues("alerts", "failure").Inc()
		r.logger.Warn("hazard feed unavailable, proceeding with no alerts", "error", err)
		hazards = nil
	} else {
		r.metrics.Refreshes.WithLabelValues("alerts", "success").Inc()
	}

	matches := matchAll(r.store.Tracks(), hazards)

	r.store.SetAlerts(&AlertSnapshot{
		Matches:     matches,
		HazardCount: len(hazards),
		RefreshedAt: clock.Now(),
	})

	var matched int
	for _, m := range matches {
		matched += len(m)
	}
	r.metrics.RefreshSeconds.WithLabelValues("alerts").Observe(time.Since(start).Seconds())
	r.metrics.HazardsActive.Set(float64(len(hazards)))
	r.metrics.AlertMatches.Set(float64(matched))

	r.logger.Info("alert refresh complete",
		"hazards", len(hazards),
		"matches", matched,
		"duration", time.Since(start),
	)
	return nil
}

// matchAll tests every balloon's current position against the hazard set.
// Matches run concurrently: the hazard set is read-only and each balloon
// writes only its own result slot.
func matchAll(tracks *TrackSnapshot, hazards []domain.HazardFeature) map[string][]domain.Properties {
	matches := make(map[string][]domain.Properties)
	if tracks == nil {
		return matches
	}

	type slot struct {
		id  string
		pos domain.Position
	}
	slots := make([]slot, 0, len(tracks.Histories))
	for id, hist := range tracks.Histories {
		if hist.Current != nil {
			slots = append(slots, slot{id: id, pos: *hist.Current})
		}
	}

	results := make([][]domain.Properties, len(slots))
	var wg sync.WaitGroup
	for i, s := range slots {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = domain.MatchingHazards(s.pos, hazards)
		}()
	}
	wg.Wait()

	for i, s := range slots {
		matches[s.id] = results[i]
	}
	return matches
}

func (r *Refresher) publish(ctx context.Context, snap *TrackSnapshot) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishSummary(ctx, snap, r.store.Alerts()); err != nil {
		r.metrics.KafkaPublishes.WithLabelValues("failure").Inc()
		r.logger.Warn("summary publish failed", "error", err)
		return
	}
	r.metrics.KafkaPublishes.WithLabelValues("success").Inc()
}

// sleepWithContext waits for d or until the context is cancelled. It returns
// false when the wait was cut short.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
