package server

import "github.com/casperlabs/engine-grpc-server/pkg/globalstate"

// QueryRequest reads Key at StateHash and follows Path through named keys.
type QueryRequest struct {
	StateHash []byte
	Key       globalstate.Key
	Path      []string
}

type QueryResponse struct {
	Value globalstate.Value
}

// CommitRequest applies Transforms on top of PrestateHash.
type CommitRequest struct {
	PrestateHash []byte
	Transforms   []globalstate.Transform
}

type CommitResponse struct {
	PoststateHash []byte
}

type StateRootRequest struct{}

type StateRootResponse struct {
	StateHash []byte
}

type MetricsRequest struct{}

// MetricsResponse carries the Prometheus text exposition of the process
// registry. Text is empty when metrics are disabled.
type MetricsResponse struct {
	Text string
}
