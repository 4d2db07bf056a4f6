package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics holds all Prometheus metrics for the pool ranking pipeline.
type Metrics struct {
	// Fetch metrics
	FetchRequests  *prometheus.CounterVec
	FetchLatency   *prometheus.HistogramVec
	RecordsFetched *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Normalization metrics
	RecordsNormalized prometheus.Counter
	RecordsRejected   *prometheus.CounterVec
	DuplicatesDropped prometheus.Counter

	// Cycle metrics
	CycleDuration   prometheus.Histogram
	CyclesTotal     *prometheus.CounterVec
	PoolsRanked     prometheus.Gauge
	PoolsByCategory *prometheus.GaugeVec

	server *http.Server
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		FetchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolpulse_fetch_requests_total",
				Help: "Total number of upstream requests by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		FetchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "poolpulse_fetch_latency_seconds",
				Help:    "Latency of upstream requests by source",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"source"},
		),
		RecordsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolpulse_records_fetched_total",
				Help: "Raw pool records returned by each source",
			},
			[]string{"source"},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "poolpulse_cache_hits_total",
				Help: "Response cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "poolpulse_cache_misses_total",
				Help: "Response cache misses",
			},
		),
		RecordsNormalized: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "poolpulse_records_normalized_total",
				Help: "Raw records successfully normalized to canonical pools",
			},
		),
		RecordsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolpulse_records_rejected_total",
				Help: "Raw records rejected during normalization or validation",
			},
			[]string{"reason"},
		),
		DuplicatesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "poolpulse_duplicates_dropped_total",
				Help: "Canonical pools dropped because their id was already seen",
			},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "poolpulse_cycle_duration_seconds",
				Help:    "Duration of one full refresh cycle",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7 minutes
			},
		),
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poolpulse_cycles_total",
				Help: "Refresh cycles by status",
			},
			[]string{"status"},
		),
		PoolsRanked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "poolpulse_pools_ranked",
				Help: "Pools in the last successful cycle output",
			},
		),
		PoolsByCategory: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "poolpulse_pools_by_category",
				Help: "Pools per pair-type bucket in the last cycle",
			},
			[]string{"pair_type"},
		),
	}

	// Register all metrics
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchLatency,
		m.RecordsFetched,
		m.CacheHits,
		m.CacheMisses,
		m.RecordsNormalized,
		m.RecordsRejected,
		m.DuplicatesDropped,
		m.CycleDuration,
		m.CyclesTotal,
		m.PoolsRanked,
		m.PoolsByCategory,
	)

	return m
}

// StartServer starts the HTTP server for Prometheus metrics.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	m.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Info().Int("port", port).Str("path", path).Msg("Starting metrics server")
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	return nil
}

// Shutdown gracefully stops the metrics server.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server != nil {
		return m.server.Shutdown(ctx)
	}
	return nil
}

// RecordFetch records one upstream request outcome. Safe on a nil receiver so
// components constructed without metrics stay quiet.
func (m *Metrics) RecordFetch(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchRequests.WithLabelValues(source, outcome).Inc()
	m.FetchLatency.WithLabelValues(source).Observe(d.Seconds())
}

// RecordRecordsFetched adds to the per-source raw record counter.
func (m *Metrics) RecordRecordsFetched(source string, n int) {
	if m == nil {
		return
	}
	m.RecordsFetched.WithLabelValues(source).Add(float64(n))
}

// RecordCacheHit increments the cache hit counter.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// RecordNormalized increments the normalized record counter.
func (m *Metrics) RecordNormalized() {
	if m == nil {
		return
	}
	m.RecordsNormalized.Inc()
}

// RecordRejected increments the rejected record counter for a reason.
func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.RecordsRejected.WithLabelValues(reason).Inc()
}

// RecordDuplicateDropped increments the duplicate-id counter.
func (m *Metrics) RecordDuplicateDropped() {
	if m == nil {
		return
	}
	m.DuplicatesDropped.Inc()
}

// RecordCycle records the outcome of one refresh cycle.
func (m *Metrics) RecordCycle(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

// SetPoolsRanked sets the pool count gauges for the last cycle.
func (m *Metrics) SetPoolsRanked(total int, byCategory map[string]int) {
	if m == nil {
		return
	}
	m.PoolsRanked.Set(float64(total))
	for pairType, count := range byCategory {
		m.PoolsByCategory.WithLabelValues(pairType).Set(float64(count))
	}
}
