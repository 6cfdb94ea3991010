package storage

import "errors"

var (
	// ErrClosed is returned when acquiring a handle whose last reference
	// was already released.
	ErrClosed = errors.New("storage environment closed")
)
