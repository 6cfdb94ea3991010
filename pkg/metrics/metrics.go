// Package metrics holds the process-wide Prometheus registry and the
// recorder interfaces used by the storage and RPC layers.
//
// Metrics are opt-in: until InitRegistry is called, constructors in the
// prometheus subpackage return nil recorders and callers pay nothing.
package metrics

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// StorageMetrics records trie store and global state activity.
type StorageMetrics interface {
	// ObserveNodeRead records a trie node lookup.
	ObserveNodeRead(found bool)

	// ObserveNodeWrite records a trie node write of size bytes.
	ObserveNodeWrite(size int)

	// ObserveCommit records a global state commit.
	ObserveCommit(duration time.Duration, err error)

	// RecordCacheHitRatio records a badger cache hit ratio (0.0 to 1.0).
	RecordCacheHitRatio(cacheType string, ratio float64)
}

// RPCMetrics records RPC server activity.
type RPCMetrics interface {
	// ObserveRequest records a completed unary call.
	ObserveRequest(method, code string, duration time.Duration)
}

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates a fresh registry with the Go runtime and process
// collectors registered. Calling it again replaces the registry.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mu.Lock()
	registry = reg
	mu.Unlock()

	return reg
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Reset disables metrics. Used by tests.
func Reset() {
	mu.Lock()
	registry = nil
	mu.Unlock()
}

// Gather collects every registered metric family. It returns nil when
// metrics are disabled.
func Gather() ([]*dto.MetricFamily, error) {
	reg := GetRegistry()
	if reg == nil {
		return nil, nil
	}
	families, err := reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	return families, nil
}

// WriteText writes every registered metric family to w in the Prometheus
// text exposition format.
func WriteText(w io.Writer) error {
	families, err := Gather()
	if err != nil {
		return err
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
