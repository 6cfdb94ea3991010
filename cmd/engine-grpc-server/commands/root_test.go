package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casperlabs/engine-grpc-server/internal/logger"
	"github.com/casperlabs/engine-grpc-server/pkg/metrics"
)

func TestRootCmd_RequiresLogLevel(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"/tmp/engine.sock"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "loglevel" not set`)
}

func TestRootCmd_RequiresSocket(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"--loglevel", "info"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestRootCmd_ServesUntilCancelled(t *testing.T) {
	t.Cleanup(metrics.Reset)
	t.Cleanup(func() { logger.Init(logger.DefaultSettings()) })

	sockDir, err := os.MkdirTemp("", "cli")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(sockDir) })

	socketPath := filepath.Join(sockDir, "engine.sock")
	dataDir := t.TempDir()

	cmd := NewRootCmd()
	cmd.SetArgs([]string{socketPath, "--loglevel", "warning", "-d", dataDir})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		info, err := os.Stat(socketPath)
		return err == nil && info.Mode()&os.ModeSocket != 0
	}, 10*time.Second, 20*time.Millisecond)

	assert.DirExists(t, filepath.Join(dataDir, "global_state"))
	assert.Equal(t, logger.LevelWarning, logger.CurrentSettings().Level)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.NoFileExists(t, socketPath)
}

func TestRootCmd_BadDataDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"/tmp/unused.sock", "--loglevel", "info", "--data-dir", file})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not create directory")
}

func TestBindFlags_UnknownFlag(t *testing.T) {
	cmd := NewRootCmd()
	err := bindFlags(viper.New(), cmd.Flags(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `flag "missing" is not defined`)
}
