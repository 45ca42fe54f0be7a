// Package metrics defines the Prometheus collectors for the search engine
// and exposes an HTTP handler for scraping.
//
// Every recording method is safe on a nil *Metrics, so components can be
// built without metrics in tests and in the REPL.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for docsearch.
type Metrics struct {
	QueriesTotal      *prometheus.CounterVec
	QueryLatency      prometheus.Histogram
	QueryResults      prometheus.Histogram
	StaleQueriesTotal prometheus.Counter
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter
	ShardLoadsTotal   *prometheus.CounterVec
	MalformedRecords  prometheus.Counter
	ResidentShards    prometheus.Gauge
	IndexKeys         prometheus.Gauge
	IndexGeneration   prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_queries_total",
				Help: "Total queries by outcome (ok, empty, degraded, stale, rejected).",
			},
			[]string{"outcome"},
		),
		QueryLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docsearch_query_latency_seconds",
				Help:    "Query latency in seconds, shard loads included.",
				Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		QueryResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docsearch_query_results",
				Help:    "Number of hits returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		StaleQueriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsearch_stale_queries_total",
				Help: "Queries discarded because a newer keystroke superseded them.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsearch_cache_hits_total",
				Help: "Total hot cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsearch_cache_misses_total",
				Help: "Total hot cache misses.",
			},
		),
		ShardLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_shard_loads_total",
				Help: "Shard fetches by status (ok, error, canceled).",
			},
			[]string{"status"},
		),
		MalformedRecords: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsearch_malformed_records_total",
				Help: "Records or entries dropped while loading shards.",
			},
		),
		ResidentShards: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsearch_resident_shards",
				Help: "Number of shards loaded into memory.",
			},
		),
		IndexKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsearch_index_keys",
				Help: "Number of distinct keys in the current index snapshot.",
			},
		),
		IndexGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsearch_index_generation",
				Help: "Generation of the current index snapshot.",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResults,
		m.StaleQueriesTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ShardLoadsTotal,
		m.MalformedRecords,
		m.ResidentShards,
		m.IndexKeys,
		m.IndexGeneration,
	)
	return m
}

// Query records one finished query.
func (m *Metrics) Query(outcome string, elapsed time.Duration, hits int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	m.QueryLatency.Observe(elapsed.Seconds())
	m.QueryResults.Observe(float64(hits))
}

// StaleQuery records a query superseded before it could publish.
func (m *Metrics) StaleQuery() {
	if m == nil {
		return
	}
	m.StaleQueriesTotal.Inc()
	m.QueriesTotal.WithLabelValues("stale").Inc()
}

// CacheHit records a hot cache lookup.
func (m *Metrics) CacheHit(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

// ShardLoad records a shard fetch by status.
func (m *Metrics) ShardLoad(status string) {
	if m == nil {
		return
	}
	m.ShardLoadsTotal.WithLabelValues(status).Inc()
}

// MalformedRecord records one dropped record or entry.
func (m *Metrics) MalformedRecord() {
	if m == nil {
		return
	}
	m.MalformedRecords.Inc()
}

// SetResidentShards sets the resident shard gauge.
func (m *Metrics) SetResidentShards(n int) {
	if m == nil {
		return
	}
	m.ResidentShards.Set(float64(n))
}

// SetIndex records the size and generation of a newly published snapshot.
func (m *Metrics) SetIndex(keys int, generation uint64) {
	if m == nil {
		return
	}
	m.IndexKeys.Set(float64(keys))
	m.IndexGeneration.Set(float64(generation))
}
