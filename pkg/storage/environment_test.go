package storage

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvironment_CreatesFiles(t *testing.T) {
	dir := t.TempDir()

	env, err := NewEnvironment(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, env.Path())
	assert.Equal(t, int64(1), env.Refs())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "badger writes its manifest into the directory")

	require.NoError(t, env.Release())
	assert.True(t, env.DB().IsClosed())
}

func TestNewEnvironment_Failure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := NewEnvironment(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open badger")
}

func TestEnvironment_RefCounting(t *testing.T) {
	env, err := NewEnvironment(t.TempDir())
	require.NoError(t, err)

	shared, err := env.Acquire()
	require.NoError(t, err)
	assert.Same(t, env, shared)
	assert.Equal(t, int64(2), env.Refs())

	require.NoError(t, env.Release())
	assert.False(t, env.DB().IsClosed(), "database stays open while a holder remains")

	require.NoError(t, shared.Release())
	assert.True(t, env.DB().IsClosed())

	_, err = env.Acquire()
	assert.ErrorIs(t, err, ErrClosed)

	assert.NoError(t, env.Release(), "extra release is a no-op")
}

func TestEnvironment_ConcurrentAcquireRelease(t *testing.T) {
	env, err := NewEnvironment("", WithInMemory())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := env.Acquire()
			if err != nil {
				return
			}
			_ = h.View(func(txn *badgerdb.Txn) error { return nil })
			_ = h.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), env.Refs())
	require.NoError(t, env.Release())
}

func TestEnvironment_ViewUpdate(t *testing.T) {
	env, err := NewEnvironment("", WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Release() })

	require.NoError(t, env.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte("k"), []byte("v"))
	}))

	var got []byte
	require.NoError(t, env.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte("k"))
		if err != nil {
			return err
		}
		got, err = item.ValueCopy(nil)
		return err
	}))
	assert.Equal(t, []byte("v"), got)
}

func TestEnvironment_ReportCacheMetricsWithoutMetrics(t *testing.T) {
	env, err := NewEnvironment("", WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Release() })

	assert.Nil(t, env.Metrics())
	env.ReportCacheMetrics()
}
