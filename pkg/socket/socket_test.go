package socket

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shortTempDir returns a directory short enough for a sun_path (108 bytes).
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "sock")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func TestExistsAndRemove(t *testing.T) {
	path := filepath.Join(shortTempDir(t), "stale.sock")
	s := New(path)

	assert.False(t, s.Exists())
	assert.NoError(t, s.Remove(), "removing a missing path is not an error")

	require.NoError(t, os.WriteFile(path, nil, 0600))
	assert.True(t, s.Exists())

	require.NoError(t, s.Remove())
	assert.False(t, s.Exists())
}

func TestRemoveFailure(t *testing.T) {
	dir := filepath.Join(shortTempDir(t), "notempty")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "child"), 0755))

	err := New(dir).Remove()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to remove old socket file")
}

func TestListen(t *testing.T) {
	path := filepath.Join(shortTempDir(t), "engine.sock")
	s := New(path)

	ln, err := s.Listen()
	require.NoError(t, err)
	assert.True(t, s.Exists())

	_, err = s.Listen()
	assert.Error(t, err, "second bind on the same path must fail")

	require.NoError(t, ln.Close())
	assert.False(t, s.Exists())
}

func TestAccessors(t *testing.T) {
	s := New("/tmp/x.sock")
	assert.Equal(t, "/tmp/x.sock", s.Path())
	assert.Equal(t, "/tmp/x.sock", s.String())
}
