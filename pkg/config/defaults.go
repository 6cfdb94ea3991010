package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDataDirRelative is appended to the home directory when no
	// --data-dir is given.
	DefaultDataDirRelative = ".casperlabs"

	// GlobalStateDir is appended to the data directory and holds the store.
	GlobalStateDir = "global_state"
)

// ErrNoHomeDir is returned when the platform home directory cannot be determined.
var ErrNoHomeDir = errors.New("could not get home directory")

// ApplyDefaults sets default values for any unspecified configuration fields.
// The data directory default depends on the environment and is resolved by
// ResolveDataDir instead.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == 0 {
		cfg.LogLevel = LogLevelInfo
	}
}

// DefaultDataDir returns <home>/.casperlabs.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		if err == nil {
			err = ErrNoHomeDir
		}
		return "", &Error{Kind: KindEnvironment, Op: ErrNoHomeDir.Error(), Err: err}
	}
	return filepath.Join(home, DefaultDataDirRelative), nil
}

// ResolveDataDir returns dataDir, or the default data directory when empty.
func ResolveDataDir(dataDir string) (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	return DefaultDataDir()
}

// ResolveStorageDir returns <dataDir>/global_state, creating it (and any
// missing parents) when absent. Calling it again with the same input is a
// no-op.
func ResolveStorageDir(dataDir string) (string, error) {
	base, err := ResolveDataDir(dataDir)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(base, GlobalStateDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &Error{
			Kind: KindEnvironment,
			Op:   fmt.Sprintf("could not create directory %q", dir),
			Err:  err,
		}
	}
	return dir, nil
}
