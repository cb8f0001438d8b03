package ranking

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricRankCallsTotal      = "feed_rank_calls_total"
	MetricRankDurationSeconds = "feed_rank_duration_seconds"
	MetricRankedItemsTotal    = "feed_ranked_items_total"
)

// Scoring path constants for labeling.
const (
	PathPersonalized = "personalized"
	PathColdStart    = "cold_start"
)

// Metrics contains Prometheus metrics for ranking operations.
// All operations are thread-safe.
type Metrics struct {
	rankCalls    *prometheus.CounterVec
	rankDuration *prometheus.HistogramVec
	rankedItems  *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		rankCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankCallsTotal,
				Help: "Total number of feed ranking calls by scoring path",
			},
			[]string{"path"},
		),
		rankDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRankDurationSeconds,
				Help:    "Histogram of feed ranking call duration in seconds by scoring path",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"path"},
		),
		rankedItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankedItemsTotal,
				Help: "Total number of items ranked by scoring path",
			},
			[]string{"path"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.rankCalls,
		m.rankDuration,
		m.rankedItems,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRank records one completed ranking call.
func (m *Metrics) ObserveRank(duration time.Duration, itemCount int, coldStart bool) {
	path := PathPersonalized
	if coldStart {
		path = PathColdStart
	}
	m.rankCalls.WithLabelValues(path).Inc()
	m.rankDuration.WithLabelValues(path).Observe(duration.Seconds())
	m.rankedItems.WithLabelValues(path).Add(float64(itemCount))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rankCalls,
		m.rankDuration,
		m.rankedItems,
	}
}
