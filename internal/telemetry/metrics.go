package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aman-CERP/hybridsearch/internal/search"
)

const namespace = "hybridsearch"

// Metrics records engine queries into a private Prometheus registry and an
// in-memory QueryStats.
type Metrics struct {
	registry *prometheus.Registry

	queriesTotal    *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	queryErrors     *prometheus.CounterVec
	resultsReturned *prometheus.HistogramVec

	stats *QueryStats
}

var _ search.MetricsRecorder = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them, plus the Go runtime
// and process collectors, on a fresh registry.
func NewMetrics(cfg StatsConfig) *Metrics {
	registry := prometheus.NewRegistry()

	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Total search queries processed.",
		},
		[]string{"mode"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "query_duration_seconds",
			Help:      "Search query duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
	queryErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "query_errors_total",
			Help:      "Total search queries that returned an error.",
		},
		[]string{"mode"},
	)
	resultsReturned := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results_returned",
			Help:      "Number of results returned per successful query.",
			Buckets:   []float64{0, 1, 3, 5, 10, 25, 50, 100},
		},
		[]string{"mode"},
	)

	registry.MustRegister(
		queriesTotal,
		queryDuration,
		queryErrors,
		resultsReturned,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry:        registry,
		queriesTotal:    queriesTotal,
		queryDuration:   queryDuration,
		queryErrors:     queryErrors,
		resultsReturned: resultsReturned,
		stats:           NewQueryStats(cfg),
	}
}

// ObserveQuery implements search.MetricsRecorder.
func (m *Metrics) ObserveQuery(mode, query string, duration time.Duration, results int, err error) {
	m.queriesTotal.WithLabelValues(mode).Inc()
	m.queryDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if err != nil {
		m.queryErrors.WithLabelValues(mode).Inc()
	} else {
		m.resultsReturned.WithLabelValues(mode).Observe(float64(results))
	}
	m.stats.Record(mode, query, duration, results, err != nil)
}

// Stats returns a snapshot of the in-memory query stats.
func (m *Metrics) Stats() *StatsSnapshot {
	return m.stats.Snapshot()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
