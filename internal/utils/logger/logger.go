package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	base   *zap.SugaredLogger
	global *zap.SugaredLogger
	level  = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// Init builds the process-wide logger. It writes human-readable lines to stderr.
func Init(levelName string) (*zap.SugaredLogger, error) {
	if err := SetLogLevel(levelName); err != nil {
		return nil, err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = nil

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	base = zap.New(core).Sugar()
	global = base
	return global, nil
}

// Logger returns the process-wide logger, or a no-op logger before Init.
func Logger() *zap.SugaredLogger {
	if global == nil {
		return zap.NewNop().Sugar()
	}
	return global
}

// SetLogLevel changes the level of the process-wide logger. An empty name keeps the current level.
func SetLogLevel(levelName string) error {
	levelName = strings.ToLower(strings.TrimSpace(levelName))
	if levelName == "" {
		return nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(levelName)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	level.SetLevel(l)
	return nil
}

// SetRunID tags every later log line with run=id. An empty id removes the tag.
func SetRunID(id string) {
	if base == nil {
		return
	}
	if id == "" {
		global = base
		return
	}
	global = base.With("run", id)
}

// Level reports the current level name.
func Level() string {
	return level.Level().String()
}

// Sync flushes buffered log entries.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
