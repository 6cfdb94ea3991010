package config

import (
	"fmt"
	"reflect"

	"github.com/casperlabs/engine-grpc-server/internal/logger"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Keys under which the CLI binds its arguments into viper.
const (
	KeySocket   = "socket"
	KeyLogLevel = "loglevel"
	KeyDataDir  = "data-dir"
)

// Config is the resolved process configuration.
//
// It is built once at startup from the command-line arguments and passed to
// every component that needs it. It is never mutated after Resolve returns.
type Config struct {
	// SocketPath is the Unix socket the RPC server listens on. Required.
	SocketPath string `mapstructure:"socket" validate:"required"`

	// DataDir is the storage root. Empty means <home>/.casperlabs.
	DataDir string `mapstructure:"data-dir"`

	// LogLevel is the minimum level emitted by the log pipeline.
	LogLevel LogLevel `mapstructure:"loglevel"`

	// StorageDir is DataDir/global_state, created by Resolve.
	StorageDir string `mapstructure:"-"`
}

// LogLevel is the severity filter selected on the command line.
type LogLevel int

const (
	LogLevelFatal LogLevel = iota + 1
	LogLevelError
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelFatal:
		return "fatal"
	case LogLevelError:
		return "error"
	case LogLevelWarning:
		return "warning"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "unset"
	}
}

// ParseLogLevel maps a --loglevel token to a LogLevel. Matching is
// case-sensitive. Unrecognized tokens, including "info" and the empty string,
// yield LogLevelInfo rather than an error.
func ParseLogLevel(token string) LogLevel {
	switch token {
	case "fatal":
		return LogLevelFatal
	case "error":
		return LogLevelError
	case "warning":
		return LogLevelWarning
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

// LoggerLevel converts to the log pipeline's level type.
func (l LogLevel) LoggerLevel() logger.Level {
	switch l {
	case LogLevelFatal:
		return logger.LevelFatal
	case LogLevelError:
		return logger.LevelError
	case LogLevelWarning:
		return logger.LevelWarning
	case LogLevelDebug:
		return logger.LevelDebug
	default:
		return logger.LevelInfo
	}
}

// LogSettings returns the log pipeline settings for this configuration.
func (c *Config) LogSettings(processName string) logger.Settings {
	return logger.Settings{
		ProcessName: processName,
		Level:       c.LogLevel.LoggerLevel(),
	}
}

// Resolve builds a Config from the values bound into v.
//
// Steps:
//  1. Unmarshal the socket, loglevel and data-dir keys
//  2. Apply defaults (unset log level becomes info)
//  3. Validate (socket is required)
//  4. Resolve and create the storage directory
//
// Returns a *Error whose Kind tells configuration mistakes apart from
// environment problems (no home directory, directory not creatable).
func Resolve(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "failed to unmarshal config", Err: err}
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "configuration validation failed", Err: err}
	}

	storageDir, err := ResolveStorageDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.StorageDir = storageDir

	return &cfg, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		logLevelDecodeHook(),
	)
}

// logLevelDecodeHook converts the raw --loglevel token into a LogLevel.
func logLevelDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(LogLevel(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return ParseLogLevel(v), nil
		case LogLevel:
			return v, nil
		case nil:
			return LogLevelInfo, nil
		default:
			return nil, fmt.Errorf("invalid log level %v of type %T", data, data)
		}
	}
}
