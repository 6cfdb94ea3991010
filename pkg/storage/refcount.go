package storage

import "sync/atomic"

// RefCount tracks shared ownership of a storage handle. It starts with one
// reference held by the creator. Once the count reaches zero it cannot be
// revived.
type RefCount struct {
	n atomic.Int64
}

// NewRefCount returns a counter holding one reference.
func NewRefCount() *RefCount {
	rc := &RefCount{}
	rc.n.Store(1)
	return rc
}

// Acquire adds a reference. It returns false if the count already reached
// zero.
func (rc *RefCount) Acquire() bool {
	for {
		cur := rc.n.Load()
		if cur <= 0 {
			return false
		}
		if rc.n.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Release drops a reference and reports whether it was the last one.
// Releasing more times than acquired is a no-op that returns false.
func (rc *RefCount) Release() bool {
	for {
		cur := rc.n.Load()
		if cur <= 0 {
			return false
		}
		if rc.n.CompareAndSwap(cur, cur-1) {
			return cur == 1
		}
	}
}

// Count returns the current number of references.
func (rc *RefCount) Count() int64 {
	return rc.n.Load()
}
