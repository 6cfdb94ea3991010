// Package storage owns the durable key/value resource underneath the trie
// store and global state.
//
// The Environment wraps a BadgerDB instance. It is reference counted: every
// layer built on top acquires a reference and releases it on Close, and the
// database is closed when the last reference goes away.
package storage

import (
	"fmt"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/casperlabs/engine-grpc-server/internal/logger"
	"github.com/casperlabs/engine-grpc-server/pkg/metrics"
)

// Environment is a shared handle on the durable store.
type Environment struct {
	db      *badgerdb.DB
	path    string
	refs    *RefCount
	metrics metrics.StorageMetrics

	closeOnce sync.Once
	closeErr  error
}

// Option configures NewEnvironment.
type Option func(*options)

type options struct {
	inMemory bool
	metrics  metrics.StorageMetrics
}

// WithInMemory opens a non-persistent store. path is then only used for
// logging.
func WithInMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// WithMetrics attaches storage metrics to the environment.
func WithMetrics(m metrics.StorageMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// NewEnvironment opens (creating if needed) the store at path with badger's
// default options. The caller holds the first reference.
func NewEnvironment(path string, opts ...Option) (*Environment, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	bopts := badgerdb.DefaultOptions(path)
	if o.inMemory {
		bopts = badgerdb.DefaultOptions("").WithInMemory(true)
	}
	bopts = bopts.WithLogger(badgerLogger{path: path})

	db, err := badgerdb.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", path, err)
	}

	logger.Debug("storage environment opened", logger.KeyPath, path)

	return &Environment{
		db:      db,
		path:    path,
		refs:    NewRefCount(),
		metrics: o.metrics,
	}, nil
}

// DB returns the underlying database. Callers must hold a reference.
func (e *Environment) DB() *badgerdb.DB {
	return e.db
}

// Path returns the directory the environment was opened at.
func (e *Environment) Path() string {
	return e.path
}

// Metrics returns the attached storage metrics, possibly nil.
func (e *Environment) Metrics() metrics.StorageMetrics {
	return e.metrics
}

// Acquire adds a reference for a layer built on this environment.
func (e *Environment) Acquire() (*Environment, error) {
	if !e.refs.Acquire() {
		return nil, ErrClosed
	}
	return e, nil
}

// Release drops a reference. The database is closed when the last reference
// is released; the close error is returned to that last caller.
func (e *Environment) Release() error {
	if !e.refs.Release() {
		return nil
	}
	e.closeOnce.Do(func() {
		e.closeErr = e.db.Close()
		logger.Debug("storage environment closed", logger.KeyPath, e.path)
	})
	return e.closeErr
}

// Refs returns the number of live references.
func (e *Environment) Refs() int64 {
	return e.refs.Count()
}

// View runs fn in a read-only transaction.
func (e *Environment) View(fn func(txn *badgerdb.Txn) error) error {
	return e.db.View(fn)
}

// Update runs fn in a read-write transaction, committing if fn returns nil.
func (e *Environment) Update(fn func(txn *badgerdb.Txn) error) error {
	return e.db.Update(fn)
}

// ReportCacheMetrics publishes badger's block and index cache hit ratios.
func (e *Environment) ReportCacheMetrics() {
	if e.metrics == nil || e.db.IsClosed() {
		return
	}
	e.metrics.RecordCacheHitRatio("block", e.db.BlockCacheMetrics().Ratio())
	e.metrics.RecordCacheHitRatio("index", e.db.IndexCacheMetrics().Ratio())
}
