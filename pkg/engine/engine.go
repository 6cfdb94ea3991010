// Package engine exposes the execution engine state served over RPC and the
// bootstrap sequence that builds it from a storage directory.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casperlabs/engine-grpc-server/internal/telemetry"
	"github.com/casperlabs/engine-grpc-server/pkg/globalstate"
	"github.com/casperlabs/engine-grpc-server/pkg/storage/trie"
)

var (
	// ErrValueNotFound is returned when a query resolves to no value.
	ErrValueNotFound = errors.New("value not found")

	// ErrNotAccount is returned when a query path descends into a value
	// that has no named keys.
	ErrNotAccount = errors.New("path element is not an account")
)

// EngineState owns one global state.
type EngineState struct {
	state *globalstate.GlobalState
}

// New wraps gs. The engine state takes ownership and closes it on Close.
func New(gs *globalstate.GlobalState) *EngineState {
	return &EngineState{state: gs}
}

// GlobalState returns the wrapped global state.
func (es *EngineState) GlobalState() *globalstate.GlobalState {
	return es.state
}

// StateRoot returns the latest committed root.
func (es *EngineState) StateRoot() trie.Digest {
	return es.state.Root()
}

// Query reads key at root, then follows path through account named keys.
func (es *EngineState) Query(ctx context.Context, root trie.Digest, key globalstate.Key, path []string) (globalstate.Value, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanQuery)
	defer span.End()
	span.SetAttributes(telemetry.StateHash(root[:]))

	value, err := es.read(ctx, root, key)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return globalstate.Value{}, err
	}

	for i, name := range path {
		if value.Kind != globalstate.ValueAccount {
			err := fmt.Errorf("%w: %s at %q", ErrNotAccount, value.Kind, strings.Join(path[:i], "/"))
			telemetry.RecordError(ctx, err)
			return globalstate.Value{}, err
		}
		next, ok := value.Account.Lookup(name)
		if !ok {
			err := fmt.Errorf("%w: no named key %q at %q", ErrValueNotFound, name, strings.Join(path[:i], "/"))
			telemetry.RecordError(ctx, err)
			return globalstate.Value{}, err
		}
		value, err = es.read(ctx, root, next)
		if err != nil {
			telemetry.RecordError(ctx, err)
			return globalstate.Value{}, err
		}
	}
	return value, nil
}

func (es *EngineState) read(ctx context.Context, root trie.Digest, key globalstate.Key) (globalstate.Value, error) {
	value, found, err := es.state.Read(ctx, root, key)
	if err != nil {
		return globalstate.Value{}, err
	}
	if !found {
		return globalstate.Value{}, fmt.Errorf("%w: %s", ErrValueNotFound, key)
	}
	return value, nil
}

// Commit applies transforms on top of prestate.
func (es *EngineState) Commit(ctx context.Context, prestate trie.Digest, transforms []globalstate.Transform) (trie.Digest, error) {
	return es.state.Commit(ctx, prestate, transforms)
}

// Close releases the global state and everything below it.
func (es *EngineState) Close() error {
	return es.state.Close()
}
