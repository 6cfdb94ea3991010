package prometheus

import (
	"time"

	"github.com/casperlabs/engine-grpc-server/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RPCMetrics is the Prometheus implementation of metrics.RPCMetrics.
// All methods are safe on a nil receiver.
type RPCMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ metrics.RPCMetrics = (*RPCMetrics)(nil)

// NewRPCMetrics creates a new Prometheus-backed RPC metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewRPCMetrics() *RPCMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &RPCMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_rpc_requests_total",
				Help: "Total number of RPC requests by method and status code",
			},
			[]string{"method", "code"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "engine_rpc_request_duration_milliseconds",
				Help:    "Duration of RPC requests in milliseconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000},
			},
			[]string{"method"},
		),
	}
}

// ObserveRequest records a completed unary call.
func (m *RPCMetrics) ObserveRequest(method, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(float64(duration.Microseconds()) / 1000.0)
}
