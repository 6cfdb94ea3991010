package telemetry

import (
	"encoding/hex"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for engine server spans.
const (
	AttrRPCMethod   = "rpc.method"
	AttrRPCService  = "rpc.service"
	AttrRequestID   = "rpc.request_id"
	AttrStateHash   = "engine.state_hash"
	AttrTransforms  = "engine.transforms"
	AttrStorageDir  = "storage.dir"
	AttrStorageStep = "storage.layer"
)

// Span names for the startup path.
const (
	SpanBootstrap = "engine.bootstrap"
	SpanQuery     = "engine.query"
	SpanCommit    = "engine.commit"
)

// RPCMethod returns the full gRPC method attribute.
func RPCMethod(method string) attribute.KeyValue {
	return attribute.String(AttrRPCMethod, method)
}

// RequestID returns the per-call identifier attribute.
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrRequestID, id)
}

// StateHash returns a state root attribute formatted as hex.
func StateHash(h []byte) attribute.KeyValue {
	return attribute.String(AttrStateHash, hex.EncodeToString(h))
}

// Transforms returns the number of writes in a commit.
func Transforms(n int) attribute.KeyValue {
	return attribute.Int(AttrTransforms, n)
}

// StorageDir returns the storage directory attribute.
func StorageDir(dir string) attribute.KeyValue {
	return attribute.String(AttrStorageDir, dir)
}

// StorageLayer names the storage layer being built.
func StorageLayer(layer string) attribute.KeyValue {
	return attribute.String(AttrStorageStep, layer)
}
