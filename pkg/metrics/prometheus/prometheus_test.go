package prometheus

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/casperlabs/engine-grpc-server/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsReturnNilWhenDisabled(t *testing.T) {
	metrics.Reset()

	s := NewStorageMetrics()
	r := NewRPCMetrics()
	assert.Nil(t, s)
	assert.Nil(t, r)

	// Nil receivers are no-ops.
	s.ObserveNodeRead(true)
	s.ObserveNodeWrite(10)
	s.ObserveCommit(time.Millisecond, nil)
	s.RecordCacheHitRatio("block", 0.5)
	r.ObserveRequest("/svc/M", "OK", time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, metrics.WriteText(&buf))
	assert.Empty(t, buf.String())
}

func TestRecordersExport(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	s := NewStorageMetrics()
	r := NewRPCMetrics()
	require.NotNil(t, s)
	require.NotNil(t, r)

	s.ObserveNodeRead(true)
	s.ObserveNodeRead(false)
	s.ObserveNodeWrite(128)
	s.ObserveCommit(2*time.Millisecond, nil)
	s.ObserveCommit(time.Millisecond, errors.New("x"))
	s.RecordCacheHitRatio("block", 0.75)
	r.ObserveRequest("/svc/Query", "OK", 3*time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, metrics.WriteText(&buf))
	out := buf.String()

	assert.Contains(t, out, `engine_trie_node_reads_total{result="hit"} 1`)
	assert.Contains(t, out, `engine_trie_node_reads_total{result="miss"} 1`)
	assert.Contains(t, out, "engine_trie_node_writes_total 1")
	assert.Contains(t, out, `engine_global_state_commits_total{status="error"} 1`)
	assert.Contains(t, out, `engine_badger_cache_hit_ratio{cache_type="block"} 0.75`)
	assert.Contains(t, out, `engine_rpc_requests_total{code="OK",method="/svc/Query"} 1`)
	assert.Contains(t, out, "go_goroutines")
}
