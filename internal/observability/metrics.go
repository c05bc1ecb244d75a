package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// tracking core.
type Metrics struct {
	// Snapshot fetch metrics.
	SnapshotFetches      *prometheus.CounterVec // labels: outcome={success,failure}
	SnapshotFetchSeconds prometheus.Histogram

	// Refresh cycle metrics.
	Refreshes      *prometheus.CounterVec   // labels: cycle={tracks,alerts}, outcome={success,failure}
	RefreshSeconds *prometheus.HistogramVec // labels: cycle={tracks,alerts}

	// Result gauges, set after each completed cycle.
	BalloonsTracked prometheus.Gauge
	HazardsActive   prometheus.Gauge
	AlertMatches    prometheus.Gauge

	// Hazard feed fallback and Kafka publishing.
	HazardFeedFallbacks prometheus.Counter
	KafkaPublishes      *prometheus.CounterVec // labels: outcome={success,failure}
}

// NewMetrics creates and registers all tracker metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SnapshotFetches,
		m.SnapshotFetchSeconds,
		m.Refreshes,
		m.RefreshSeconds,
		m.BalloonsTracked,
		m.HazardsActive,
		m.AlertMatches,
		m.HazardFeedFallbacks,
		m.KafkaPublishes,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SnapshotFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "balloon_track",
			Name:      "snapshot_fetches_total",
			Help:      "Hourly snapshot fetch attempts by outcome.",
		}, []string{"outcome"}),
		SnapshotFetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "balloon_track",
			Name:      "snapshot_fetch_duration_seconds",
			Help:      "Duration of individual snapshot fetches.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "balloon_track",
			Name:      "refreshes_total",
			Help:      "Refresh cycles by cycle type and outcome.",
		}, []string{"cycle", "outcome"}),
		RefreshSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "balloon_track",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete refresh cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"cycle"}),
		BalloonsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "balloon_track",
			Name:      "balloons_tracked",
			Help:      "Balloons with at least one valid fix in the latest refresh.",
		}),
		HazardsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "balloon_track",
			Name:      "hazards_active",
			Help:      "Hazard polygons in the latest alert refresh.",
		}),
		AlertMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "balloon_track",
			Name:      "alert_matches",
			Help:      "Balloon-hazard matches in the latest alert refresh.",
		}),
		HazardFeedFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "balloon_track",
			Name:      "hazard_feed_fallbacks_total",
			Help:      "Times the direct hazard fetch was used after the proxy failed.",
		}),
		KafkaPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "balloon_track",
			Name:      "kafka_publishes_total",
			Help:      "Refresh summary publishes by outcome.",
		}, []string{"outcome"}),
	}
}
