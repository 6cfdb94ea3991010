package globalstate

import "errors"

var (
	// ErrEmptySeed is returned when a fresh store is opened with no pairs.
	ErrEmptySeed = errors.New("global state seed is empty")

	// ErrRootNotFound is returned for a state hash that is not in the store.
	ErrRootNotFound = errors.New("state root not found")

	ErrInvalidKey   = errors.New("invalid key")
	ErrInvalidValue = errors.New("invalid value")
	ErrClosed       = errors.New("global state is closed")
)
