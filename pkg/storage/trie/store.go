// Package trie implements a content-addressed trie on top of a storage
// environment. Nodes are immutable and keyed by their digest; every write
// produces a new root and leaves earlier roots readable.
package trie

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/blake2b"

	"github.com/casperlabs/engine-grpc-server/internal/logger"
	"github.com/casperlabs/engine-grpc-server/pkg/storage"
)

// DefaultNamespace is the single unnamed namespace.
const DefaultNamespace = ""

// keyPrefix is the badger key space used by trie nodes.
const keyPrefix = "trie/"

// DatabaseFlags tune how a Store reads and writes nodes. The zero value is
// the default behavior.
type DatabaseFlags uint32

const (
	// FlagVerifyDigest re-hashes every node read and rejects mismatches.
	FlagVerifyDigest DatabaseFlags = 1 << iota
)

// Has reports whether all bits of f are set.
func (d DatabaseFlags) Has(f DatabaseFlags) bool {
	return d&f == f
}

// Store is a shared handle on the trie nodes of one namespace. It holds a
// reference on its environment until the last Close.
type Store struct {
	env       *storage.Environment
	namespace string
	flags     DatabaseFlags
	prefix    []byte
	refs      *storage.RefCount

	closeOnce sync.Once
	closeErr  error
}

// NewStore builds a trie store in namespace on env. The environment must be
// open; the store takes its own reference on it.
func NewStore(env *storage.Environment, namespace string, flags DatabaseFlags) (*Store, error) {
	if env == nil {
		return nil, ErrNilEnvironment
	}
	if strings.ContainsAny(namespace, "/\x00") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}

	held, err := env.Acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire storage environment: %w", err)
	}

	s := &Store{
		env:       held,
		namespace: namespace,
		flags:     flags,
		prefix:    []byte(keyPrefix + namespace + "/"),
		refs:      storage.NewRefCount(),
	}

	logger.Debug("trie store created", logger.KeyNamespace, namespace, logger.KeyPath, env.Path())
	return s, nil
}

// Environment returns the environment the store was built on.
func (s *Store) Environment() *storage.Environment {
	return s.env
}

// Namespace returns the store namespace.
func (s *Store) Namespace() string {
	return s.namespace
}

// Flags returns the database flags.
func (s *Store) Flags() DatabaseFlags {
	return s.flags
}

// Acquire adds a reference for a layer built on this store.
func (s *Store) Acquire() (*Store, error) {
	if !s.refs.Acquire() {
		return nil, ErrStoreClosed
	}
	return s, nil
}

// Close drops a reference. The last Close releases the environment.
func (s *Store) Close() error {
	if !s.refs.Release() {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closeErr = s.env.Release()
	})
	return s.closeErr
}

// Refs returns the number of live references.
func (s *Store) Refs() int64 {
	return s.refs.Count()
}

func (s *Store) nodeKey(d Digest) []byte {
	key := make([]byte, 0, len(s.prefix)+DigestSize)
	key = append(key, s.prefix...)
	return append(key, d[:]...)
}

// Get loads the node stored under d.
func (s *Store) Get(txn *badgerdb.Txn, d Digest) (*Node, error) {
	item, err := txn.Get(s.nodeKey(d))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		s.observeRead(false)
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, d)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read trie node %s: %w", d, err)
	}
	s.observeRead(true)

	var node *Node
	err = item.Value(func(val []byte) error {
		if s.flags.Has(FlagVerifyDigest) && Digest(blake2b.Sum256(val)) != d {
			return fmt.Errorf("%w: digest mismatch for %s", ErrCorruptNode, d)
		}
		n, decErr := DecodeNode(val)
		if decErr != nil {
			return decErr
		}
		node = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Has reports whether a node is stored under d.
func (s *Store) Has(txn *badgerdb.Txn, d Digest) (bool, error) {
	_, err := txn.Get(s.nodeKey(d))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read trie node %s: %w", d, err)
	}
	return true, nil
}

// Put stores n and returns its digest. Storing an existing node is a no-op
// write of identical bytes.
func (s *Store) Put(txn *badgerdb.Txn, n *Node) (Digest, error) {
	d, data, err := n.Hash()
	if err != nil {
		return Digest{}, err
	}
	if err := txn.Set(s.nodeKey(d), data); err != nil {
		return Digest{}, fmt.Errorf("failed to write trie node %s: %w", d, err)
	}
	if m := s.env.Metrics(); m != nil {
		m.ObserveNodeWrite(len(data))
	}
	return d, nil
}

func (s *Store) observeRead(found bool) {
	if m := s.env.Metrics(); m != nil {
		m.ObserveNodeRead(found)
	}
}
