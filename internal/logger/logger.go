package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents log levels, ordered from most to least verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
)

// slogLevelFatal sits above slog.LevelError so handlers treat it as the
// highest severity.
const slogLevelFatal = slog.LevelError + 4

// DefaultProcessName is used until Init is called with explicit settings.
const DefaultProcessName = "casperlabs-engine-grpc-server"

// Settings is the process-wide logging configuration. It is a plain value so
// it can be copied into goroutines and deferred failure hooks.
type Settings struct {
	ProcessName string
	Level       Level
}

// DefaultSettings returns the settings used before Init: debug level, so that
// nothing emitted during early startup is lost.
func DefaultSettings() Settings {
	return Settings{
		ProcessName: DefaultProcessName,
		Level:       LevelDebug,
	}
}

var (
	currentLevel atomic.Int32

	initOnce sync.Once
	mu       sync.RWMutex
	settings Settings
	slogger  *slog.Logger
	output   io.Writer = os.Stdout
	useColor bool
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel converts internal level to slog.Level
func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarning:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelFatal:
		return slogLevelFatal
	default:
		return slog.LevelInfo
	}
}

// ensureInit builds the default logger on first use.
func ensureInit() {
	initOnce.Do(func() {
		mu.Lock()
		settings = DefaultSettings()
		if f, ok := output.(*os.File); ok {
			useColor = isTerminal(f.Fd())
		}
		mu.Unlock()
		reconfigure()
	})
}

// reconfigure rebuilds the slog handler based on current settings
func reconfigure() {
	mu.Lock()
	defer mu.Unlock()

	currentLevel.Store(int32(settings.Level))

	levelVar := new(slog.LevelVar)
	levelVar.Set(toSlogLevel(settings.Level))

	handler := NewTextHandler(output, levelVar, useColor)

	slogger = slog.New(handler).With(
		KeyProcess, settings.ProcessName,
		KeyPID, os.Getpid(),
	)
}

// Init replaces the process-wide settings.
func Init(s Settings) {
	ensureInit()

	mu.Lock()
	settings = s
	mu.Unlock()

	reconfigure()
}

// InitWithWriter initializes the logger with a custom io.Writer.
// This is primarily useful for testing.
func InitWithWriter(w io.Writer, s Settings, enableColor bool) {
	ensureInit()

	mu.Lock()
	output = w
	useColor = enableColor
	settings = s
	mu.Unlock()

	reconfigure()
}

// CurrentSettings returns a copy of the active settings.
func CurrentSettings() Settings {
	ensureInit()

	mu.RLock()
	defer mu.RUnlock()
	return settings
}

// SetLevel changes the minimum log level
func SetLevel(level Level) {
	ensureInit()

	mu.Lock()
	settings.Level = level
	mu.Unlock()

	reconfigure()
}

// Enabled reports whether a message at level would be emitted.
func Enabled(level Level) bool {
	ensureInit()
	return level >= Level(currentLevel.Load())
}

// getLogger returns the current slog logger
func getLogger() *slog.Logger {
	ensureInit()

	mu.RLock()
	l := slogger
	mu.RUnlock()
	return l
}

// ============================================================================
// Structured Logging API
// ============================================================================

// Log emits msg at level with structured fields.
// Usage: Log(LevelInfo, "message", "key1", value1, "key2", value2)
func Log(level Level, msg string, args ...any) {
	if !Enabled(level) {
		return
	}
	getLogger().Log(context.Background(), toSlogLevel(level), msg, args...)
}

// Debug logs at debug level with structured fields
func Debug(msg string, args ...any) {
	Log(LevelDebug, msg, args...)
}

// Info logs at info level with structured fields
func Info(msg string, args ...any) {
	Log(LevelInfo, msg, args...)
}

// Warn logs at warning level with structured fields
func Warn(msg string, args ...any) {
	Log(LevelWarning, msg, args...)
}

// Error logs at error level with structured fields
func Error(msg string, args ...any) {
	Log(LevelError, msg, args...)
}

// Fatal logs at the highest severity. It does not exit the process.
func Fatal(msg string, args ...any) {
	Log(LevelFatal, msg, args...)
}

// ============================================================================
// Context-aware Logging API
// ============================================================================

// DebugCtx logs at debug level with context (auto-injects trace_id, request_id, etc.)
func DebugCtx(ctx context.Context, msg string, args ...any) {
	if !Enabled(LevelDebug) {
		return
	}
	Log(LevelDebug, msg, appendContextFields(ctx, args)...)
}

// WarnCtx logs at warning level with context
func WarnCtx(ctx context.Context, msg string, args ...any) {
	if !Enabled(LevelWarning) {
		return
	}
	Log(LevelWarning, msg, appendContextFields(ctx, args)...)
}

// appendContextFields adds LogContext fields to args
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	// Prepend context fields so they appear first in output
	ctxArgs := make([]any, 0, 8+len(args))

	if lc.TraceID != "" {
		ctxArgs = append(ctxArgs, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		ctxArgs = append(ctxArgs, KeySpanID, lc.SpanID)
	}
	if lc.RequestID != "" {
		ctxArgs = append(ctxArgs, KeyRequestID, lc.RequestID)
	}
	if lc.Method != "" {
		ctxArgs = append(ctxArgs, KeyMethod, lc.Method)
	}

	return append(ctxArgs, args...)
}

// Duration returns duration since start time in milliseconds
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
