package storage

import (
	"fmt"
	"strings"

	"github.com/casperlabs/engine-grpc-server/internal/logger"
)

// badgerLogger routes badger's internal logging into the process logger.
// Badger is chatty at info level, so info and debug both land on debug.
type badgerLogger struct {
	path string
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Error(l.msg(format, args...), logger.KeyPath, l.path)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warn(l.msg(format, args...), logger.KeyPath, l.path)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	if !logger.Enabled(logger.LevelDebug) {
		return
	}
	logger.Debug(l.msg(format, args...), logger.KeyPath, l.path)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	if !logger.Enabled(logger.LevelDebug) {
		return
	}
	logger.Debug(l.msg(format, args...), logger.KeyPath, l.path)
}

func (l badgerLogger) msg(format string, args ...interface{}) string {
	return "badger: " + strings.TrimSpace(fmt.Sprintf(format, args...))
}
