// Package socket wraps the filesystem path of a Unix domain socket.
package socket

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// Socket is a value object for a listening address on the filesystem.
// Once Listen succeeds, the OS resource belongs to the returned listener.
type Socket struct {
	path string
}

// New returns a Socket for path.
func New(path string) Socket {
	return Socket{path: path}
}

// Path returns the socket path.
func (s Socket) Path() string {
	return s.path
}

func (s Socket) String() string {
	return s.path
}

// Exists reports whether any filesystem object is present at the path.
// Symlinks are not followed, so a dangling link still counts.
func (s Socket) Exists() bool {
	_, err := os.Lstat(s.path)
	return err == nil
}

// Remove deletes the filesystem object at the path. Removing a path that
// does not exist is not an error.
func (s Socket) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove old socket file %q: %w", s.path, err)
	}
	return nil
}

// Listen binds a Unix stream listener at the path. The listener unlinks the
// file when closed.
func (s Socket) Listen() (net.Listener, error) {
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on socket %q: %w", s.path, err)
	}
	return ln, nil
}
