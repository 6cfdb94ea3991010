package trie

import "errors"

var (
	ErrNodeNotFound     = errors.New("trie node not found")
	ErrCorruptNode      = errors.New("corrupt trie node")
	ErrInvalidDigest    = errors.New("invalid digest")
	ErrEmptyKey         = errors.New("empty trie key")
	ErrKeyPrefix        = errors.New("trie key is a prefix of an existing key")
	ErrInvalidNamespace = errors.New("invalid trie namespace")
	ErrNilEnvironment   = errors.New("trie store requires a storage environment")
	ErrStoreClosed      = errors.New("trie store closed")
)
