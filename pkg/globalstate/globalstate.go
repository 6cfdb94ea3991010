// Package globalstate is the versioned key/value view of chain state on top
// of the trie store. Every commit produces a new state root; the latest root
// is persisted so a restarted process resumes where it left off.
package globalstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/casperlabs/engine-grpc-server/internal/logger"
	"github.com/casperlabs/engine-grpc-server/internal/telemetry"
	"github.com/casperlabs/engine-grpc-server/pkg/storage"
	"github.com/casperlabs/engine-grpc-server/pkg/storage/trie"
)

// rootKey holds the latest committed state root.
var rootKey = []byte("meta/global_state/root")

// GlobalState holds references on its environment and trie store and
// releases both on Close.
type GlobalState struct {
	env   *storage.Environment
	store *trie.Store

	mu     sync.RWMutex
	root   trie.Digest
	closed bool
}

// FromPairs opens global state on env and store. When a root is already
// persisted it is reused and pairs are ignored; otherwise pairs are written
// into an empty trie and the resulting root becomes the latest.
func FromPairs(ctx context.Context, env *storage.Environment, store *trie.Store, pairs []Pair) (*GlobalState, error) {
	heldEnv, err := env.Acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire storage environment: %w", err)
	}
	heldStore, err := store.Acquire()
	if err != nil {
		_ = heldEnv.Release()
		return nil, fmt.Errorf("failed to acquire trie store: %w", err)
	}

	gs := &GlobalState{env: heldEnv, store: heldStore}

	var seeded bool
	err = heldEnv.Update(func(txn *badgerdb.Txn) error {
		root, found, err := loadRoot(txn)
		if err != nil {
			return err
		}
		if found {
			ok, err := heldStore.Has(txn, root)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: persisted root %s", ErrRootNotFound, root)
			}
			gs.root = root
			return nil
		}

		if len(pairs) == 0 {
			return ErrEmptySeed
		}
		root, err = heldStore.InitEmpty(txn)
		if err != nil {
			return err
		}
		root, err = applyPairs(txn, heldStore, root, pairs)
		if err != nil {
			return err
		}
		gs.root = root
		seeded = true
		return txn.Set(rootKey, root.Bytes())
	})
	if err != nil {
		_ = heldStore.Close()
		_ = heldEnv.Release()
		return nil, err
	}

	if seeded {
		logger.DebugCtx(ctx, "global state seeded", logger.KeyStateHash, gs.root.String(), logger.KeyEntries, len(pairs))
	} else {
		logger.DebugCtx(ctx, "global state loaded", logger.KeyStateHash, gs.root.String())
	}
	return gs, nil
}

func loadRoot(txn *badgerdb.Txn) (trie.Digest, bool, error) {
	item, err := txn.Get(rootKey)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return trie.Digest{}, false, nil
	}
	if err != nil {
		return trie.Digest{}, false, fmt.Errorf("failed to read state root: %w", err)
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return trie.Digest{}, false, fmt.Errorf("failed to read state root: %w", err)
	}
	d, err := trie.DigestFromBytes(raw)
	if err != nil {
		return trie.Digest{}, false, err
	}
	return d, true, nil
}

func applyPairs(txn *badgerdb.Txn, store *trie.Store, root trie.Digest, pairs []Pair) (trie.Digest, error) {
	for _, p := range pairs {
		if err := p.Key.Validate(); err != nil {
			return trie.Digest{}, err
		}
		data, err := p.Value.Encode()
		if err != nil {
			return trie.Digest{}, fmt.Errorf("key %s: %w", p.Key, err)
		}
		root, err = store.Write(txn, root, p.Key.Bytes(), data)
		if err != nil {
			return trie.Digest{}, fmt.Errorf("key %s: %w", p.Key, err)
		}
	}
	return root, nil
}

// Root returns the latest state root.
func (gs *GlobalState) Root() trie.Digest {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.root
}

// Environment returns the storage environment.
func (gs *GlobalState) Environment() *storage.Environment {
	return gs.env
}

// Read returns the value stored under key at root.
func (gs *GlobalState) Read(ctx context.Context, root trie.Digest, key Key) (Value, bool, error) {
	if err := key.Validate(); err != nil {
		return Value{}, false, err
	}

	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if gs.closed {
		return Value{}, false, ErrClosed
	}

	var (
		value Value
		found bool
	)
	err := gs.env.View(func(txn *badgerdb.Txn) error {
		if err := gs.requireRoot(txn, root); err != nil {
			return err
		}
		raw, ok, err := gs.store.Read(txn, root, key.Bytes())
		if err != nil || !ok {
			return err
		}
		value, err = DecodeValue(raw)
		found = err == nil
		return err
	})
	if err != nil {
		return Value{}, false, err
	}
	return value, found, nil
}

// Commit applies transforms on top of prestate and returns the new root,
// which also becomes the latest root. Commits are serialized.
func (gs *GlobalState) Commit(ctx context.Context, prestate trie.Digest, transforms []Transform) (trie.Digest, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanCommit)
	defer span.End()
	span.SetAttributes(telemetry.StateHash(prestate[:]), telemetry.Transforms(len(transforms)))

	start := time.Now()

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return trie.Digest{}, ErrClosed
	}

	var post trie.Digest
	err := gs.env.Update(func(txn *badgerdb.Txn) error {
		if err := gs.requireRoot(txn, prestate); err != nil {
			return err
		}
		root, err := applyPairs(txn, gs.store, prestate, transforms)
		if err != nil {
			return err
		}
		post = root
		return txn.Set(rootKey, root.Bytes())
	})

	if m := gs.env.Metrics(); m != nil {
		m.ObserveCommit(time.Since(start), err)
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
		return trie.Digest{}, fmt.Errorf("commit on %s: %w", prestate, err)
	}

	gs.root = post
	logger.DebugCtx(ctx, "global state committed",
		logger.KeyStateHash, post.String(),
		logger.KeyEntries, len(transforms),
		logger.KeyDurationMs, logger.Duration(start),
	)
	return post, nil
}

// Entries returns every pair under root in key order.
func (gs *GlobalState) Entries(ctx context.Context, root trie.Digest) ([]Pair, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if gs.closed {
		return nil, ErrClosed
	}

	var pairs []Pair
	err := gs.env.View(func(txn *badgerdb.Txn) error {
		if err := gs.requireRoot(txn, root); err != nil {
			return err
		}
		return gs.store.Walk(txn, root, func(k, v []byte) error {
			key, err := ParseKey(k)
			if err != nil {
				return err
			}
			value, err := DecodeValue(v)
			if err != nil {
				return fmt.Errorf("key %s: %w", key, err)
			}
			pairs = append(pairs, Pair{Key: key, Value: value})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// ReportMetrics publishes storage cache statistics.
func (gs *GlobalState) ReportMetrics() {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if gs.closed {
		return
	}
	gs.env.ReportCacheMetrics()
}

// Close releases the trie store and the environment. It is safe to call
// more than once.
func (gs *GlobalState) Close() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return nil
	}
	gs.closed = true

	return errors.Join(gs.store.Close(), gs.env.Release())
}

func (gs *GlobalState) requireRoot(txn *badgerdb.Txn, root trie.Digest) error {
	ok, err := gs.store.Has(txn, root)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	return nil
}
