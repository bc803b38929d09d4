// Package metrics holds the Prometheus instrumentation for crawl cycles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Phase label values.
const (
	PhaseDiscovery = "discovery"
	PhaseDetection = "detection"
)

// Metrics holds all Prometheus metrics for the pipeline. Components receive
// it by injection; there is no process-wide registry state.
type Metrics struct {
	PagesFetched    *prometheus.CounterVec
	BooksDiscovered prometheus.Counter
	ChangesDetected prometheus.Counter
	ItemsSkipped    *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bookwatch_pages_fetched_total",
			Help: "The total number of pages fetched, by phase.",
		}, []string{"phase"}),
		BooksDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookwatch_books_discovered_total",
			Help: "The total number of newly discovered books.",
		}),
		ChangesDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookwatch_changes_detected_total",
			Help: "The total number of update change records produced.",
		}),
		ItemsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bookwatch_items_skipped_total",
			Help: "The total number of items skipped, by phase and reason.",
		}, []string{"phase", "reason"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookwatch_cycle_duration_seconds",
			Help:    "Duration of full discovery + detection cycles.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		}),
	}
}

func (m *Metrics) IncPageFetched(phase string) {
	m.PagesFetched.WithLabelValues(phase).Inc()
}

func (m *Metrics) IncSkipped(phase, reason string) {
	m.ItemsSkipped.WithLabelValues(phase, reason).Inc()
}
