package trie

import (
	"bytes"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// EmptyRoot returns the digest of the empty trie (a branch with no children).
func EmptyRoot() Digest {
	d, _, err := NewBranch().Hash()
	if err != nil {
		// An empty branch always encodes.
		panic(err)
	}
	return d
}

// InitEmpty stores the empty trie and returns its root.
func (s *Store) InitEmpty(txn *badgerdb.Txn) (Digest, error) {
	return s.Put(txn, NewBranch())
}

// Read returns the value stored under key in the trie rooted at root.
func (s *Store) Read(txn *badgerdb.Txn, root Digest, key []byte) ([]byte, bool, error) {
	if len(key) == 0 {
		return nil, false, ErrEmptyKey
	}

	d := root
	for depth := 0; ; depth++ {
		n, err := s.Get(txn, d)
		if err != nil {
			return nil, false, err
		}

		switch n.Kind {
		case NodeLeaf:
			if bytes.Equal(n.Key, key) {
				return n.Value, true, nil
			}
			return nil, false, nil
		case NodeBranch:
			if depth >= len(key) {
				return nil, false, nil
			}
			child, ok := n.Child(key[depth])
			if !ok {
				return nil, false, nil
			}
			d = child
		default:
			return nil, false, fmt.Errorf("%w: unknown kind %d", ErrCorruptNode, n.Kind)
		}
	}
}

// Write stores value under key in the trie rooted at root and returns the
// new root. The old root stays readable.
func (s *Store) Write(txn *badgerdb.Txn, root Digest, key, value []byte) (Digest, error) {
	if len(key) == 0 {
		return Digest{}, ErrEmptyKey
	}
	return s.insert(txn, root, key, value, 0)
}

func (s *Store) insert(txn *badgerdb.Txn, d Digest, key, value []byte, depth int) (Digest, error) {
	n, err := s.Get(txn, d)
	if err != nil {
		return Digest{}, err
	}

	switch n.Kind {
	case NodeLeaf:
		if bytes.Equal(n.Key, key) {
			if bytes.Equal(n.Value, value) {
				return d, nil
			}
			return s.Put(txn, NewLeaf(key, value))
		}
		return s.split(txn, n, d, key, value, depth)

	case NodeBranch:
		if depth >= len(key) {
			return Digest{}, fmt.Errorf("%w: %x", ErrKeyPrefix, key)
		}
		idx := key[depth]

		var child Digest
		if existing, ok := n.Child(idx); ok {
			child, err = s.insert(txn, existing, key, value, depth+1)
		} else {
			child, err = s.Put(txn, NewLeaf(key, value))
		}
		if err != nil {
			return Digest{}, err
		}
		return s.Put(txn, n.WithChild(idx, child))

	default:
		return Digest{}, fmt.Errorf("%w: unknown kind %d", ErrCorruptNode, n.Kind)
	}
}

// split replaces the leaf stored under leafDigest with branches that hold
// both the leaf and the new key, starting at depth.
func (s *Store) split(txn *badgerdb.Txn, leaf *Node, leafDigest Digest, key, value []byte, depth int) (Digest, error) {
	if depth >= len(key) || depth >= len(leaf.Key) {
		return Digest{}, fmt.Errorf("%w: %x", ErrKeyPrefix, key)
	}

	a, b := leaf.Key[depth], key[depth]
	if a == b {
		inner, err := s.split(txn, leaf, leafDigest, key, value, depth+1)
		if err != nil {
			return Digest{}, err
		}
		return s.Put(txn, NewBranch(Pointer{Index: uint32(a), Digest: inner}))
	}

	newLeaf, err := s.Put(txn, NewLeaf(key, value))
	if err != nil {
		return Digest{}, err
	}
	return s.Put(txn, NewBranch(
		Pointer{Index: uint32(a), Digest: leafDigest},
		Pointer{Index: uint32(b), Digest: newLeaf},
	))
}

// Walk calls fn for every key/value pair under root in ascending key order.
// Returning an error from fn stops the walk.
func (s *Store) Walk(txn *badgerdb.Txn, root Digest, fn func(key, value []byte) error) error {
	n, err := s.Get(txn, root)
	if err != nil {
		return err
	}

	switch n.Kind {
	case NodeLeaf:
		return fn(n.Key, n.Value)
	case NodeBranch:
		for _, p := range n.Children {
			if err := s.Walk(txn, p.Digest, fn); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrCorruptNode, n.Kind)
	}
}
