package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
const (
	// Process identity
	KeyProcess = "process"
	KeyPID     = "pid"

	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// RPC
	KeyRequestID  = "request_id"
	KeyMethod     = "method"
	KeyCode       = "code"
	KeySocket     = "socket"
	KeyListener   = "listener"
	KeyInstanceID = "instance_id"

	// Storage
	KeyPath      = "path"
	KeyLayer     = "layer"
	KeyNamespace = "namespace"
	KeyStateHash = "state_hash"
	KeyEntries   = "entries"

	// Lifecycle
	KeyPhase = "phase"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// StateHash returns a slog.Attr for a state root digest (formatted as hex)
func StateHash(h []byte) slog.Attr {
	return slog.String(KeyStateHash, fmt.Sprintf("%x", h))
}

// Path returns a slog.Attr for a filesystem path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr for a duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
