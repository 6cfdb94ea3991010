package prometheus

import (
	"time"

	"github.com/casperlabs/engine-grpc-server/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StorageMetrics is the Prometheus implementation of metrics.StorageMetrics.
// All methods are safe on a nil receiver.
type StorageMetrics struct {
	nodeReads     *prometheus.CounterVec
	nodeWrites    prometheus.Counter
	nodeBytes     prometheus.Histogram
	commits       *prometheus.CounterVec
	commitLatency prometheus.Histogram
	cacheHitRatio *prometheus.GaugeVec
}

var _ metrics.StorageMetrics = (*StorageMetrics)(nil)

// NewStorageMetrics creates a new Prometheus-backed storage metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewStorageMetrics() *StorageMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &StorageMetrics{
		nodeReads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_trie_node_reads_total",
				Help: "Total number of trie node lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		),
		nodeWrites: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "engine_trie_node_writes_total",
				Help: "Total number of trie nodes written",
			},
		),
		nodeBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "engine_trie_node_size_bytes",
				Help:    "Encoded size of written trie nodes",
				Buckets: prometheus.ExponentialBuckets(32, 2, 10), // 32B .. 16KiB
			},
		),
		commits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_global_state_commits_total",
				Help: "Total number of global state commits by status",
			},
			[]string{"status"}, // "success", "error"
		),
		commitLatency: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "engine_global_state_commit_duration_milliseconds",
				Help:    "Duration of global state commits in milliseconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
			},
		),
		cacheHitRatio: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "engine_badger_cache_hit_ratio",
				Help: "BadgerDB cache hit ratio (0.0 to 1.0) by cache type",
			},
			[]string{"cache_type"}, // "block", "index"
		),
	}
}

// ObserveNodeRead records a trie node lookup.
func (m *StorageMetrics) ObserveNodeRead(found bool) {
	if m == nil {
		return
	}
	result := "miss"
	if found {
		result = "hit"
	}
	m.nodeReads.WithLabelValues(result).Inc()
}

// ObserveNodeWrite records a trie node write.
func (m *StorageMetrics) ObserveNodeWrite(size int) {
	if m == nil {
		return
	}
	m.nodeWrites.Inc()
	m.nodeBytes.Observe(float64(size))
}

// ObserveCommit records a global state commit.
func (m *StorageMetrics) ObserveCommit(duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.commits.WithLabelValues(status).Inc()
	m.commitLatency.Observe(float64(duration.Microseconds()) / 1000.0)
}

// RecordCacheHitRatio records the cache hit ratio for a specific cache type.
func (m *StorageMetrics) RecordCacheHitRatio(cacheType string, ratio float64) {
	if m == nil {
		return
	}
	m.cacheHitRatio.WithLabelValues(cacheType).Set(ratio)
}
