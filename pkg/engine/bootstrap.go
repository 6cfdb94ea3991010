package engine

import (
	"context"

	"github.com/casperlabs/engine-grpc-server/internal/logger"
	"github.com/casperlabs/engine-grpc-server/internal/telemetry"
	"github.com/casperlabs/engine-grpc-server/pkg/globalstate"
	"github.com/casperlabs/engine-grpc-server/pkg/storage"
	"github.com/casperlabs/engine-grpc-server/pkg/storage/trie"
)

// Layer names a step of the storage bootstrap.
type Layer string

const (
	LayerEnvironment Layer = "environment"
	LayerTrieStore   Layer = "trie_store"
	LayerGlobalState Layer = "global_state"
)

// Message returns the failure message for the layer.
func (l Layer) Message() string {
	switch l {
	case LayerEnvironment:
		return "could not create storage environment"
	case LayerTrieStore:
		return "could not create trie store"
	case LayerGlobalState:
		return "could not create global state"
	default:
		return "could not create " + string(l)
	}
}

// BootstrapError reports which storage layer failed to build.
type BootstrapError struct {
	Layer Layer
	Err   error
}

func (e *BootstrapError) Error() string {
	return e.Layer.Message() + ": " + e.Err.Error()
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}

// BootstrapOption configures Bootstrap.
type BootstrapOption func(*bootstrapOptions)

type bootstrapOptions struct {
	storage []storage.Option
	flags   trie.DatabaseFlags
	seed    []globalstate.Pair
}

// WithStorageOptions passes options to the storage environment.
func WithStorageOptions(opts ...storage.Option) BootstrapOption {
	return func(o *bootstrapOptions) { o.storage = append(o.storage, opts...) }
}

// WithDatabaseFlags sets the trie store flags.
func WithDatabaseFlags(flags trie.DatabaseFlags) BootstrapOption {
	return func(o *bootstrapOptions) { o.flags = flags }
}

// WithSeed replaces the pairs written into a fresh store.
func WithSeed(pairs []globalstate.Pair) BootstrapOption {
	return func(o *bootstrapOptions) { o.seed = pairs }
}

// Bootstrap opens the storage environment at dir, builds the trie store and
// global state on it and returns the engine state owning them. On failure
// every layer already built is released.
func Bootstrap(ctx context.Context, dir string, opts ...BootstrapOption) (*EngineState, error) {
	o := bootstrapOptions{seed: globalstate.MockedAccount(globalstate.SeedAddress)}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanBootstrap)
	defer span.End()
	span.SetAttributes(telemetry.StorageDir(dir))

	fail := func(layer Layer, err error) (*EngineState, error) {
		berr := &BootstrapError{Layer: layer, Err: err}
		span.SetAttributes(telemetry.StorageLayer(string(layer)))
		telemetry.RecordError(ctx, berr)
		return nil, berr
	}

	env, err := storage.NewEnvironment(dir, o.storage...)
	if err != nil {
		return fail(LayerEnvironment, err)
	}
	// Each layer holds its own reference on the one below it.
	defer releaseLayer(ctx, LayerEnvironment, env.Release)
	logger.DebugCtx(ctx, "storage layer ready", logger.KeyLayer, string(LayerEnvironment), logger.KeyPath, dir)

	store, err := trie.NewStore(env, trie.DefaultNamespace, o.flags)
	if err != nil {
		return fail(LayerTrieStore, err)
	}
	defer releaseLayer(ctx, LayerTrieStore, store.Close)
	logger.DebugCtx(ctx, "storage layer ready", logger.KeyLayer, string(LayerTrieStore))

	gs, err := globalstate.FromPairs(ctx, env, store, o.seed)
	if err != nil {
		return fail(LayerGlobalState, err)
	}
	logger.DebugCtx(ctx, "storage layer ready",
		logger.KeyLayer, string(LayerGlobalState),
		logger.KeyStateHash, gs.Root().String(),
	)

	return New(gs), nil
}

// releaseLayer drops Bootstrap's own reference on a layer. The last holder
// sees the close error, so a failure is logged rather than returned.
func releaseLayer(ctx context.Context, layer Layer, release func() error) {
	if err := release(); err != nil {
		logger.WarnCtx(ctx, "failed to release storage layer", logger.KeyLayer, string(layer), logger.KeyError, err.Error())
	}
}
