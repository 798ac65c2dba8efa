// Package logging builds the two-sink zap logger every component in the
// backtesting pipeline is constructed with: a console core at info level
// and a file core at debug level, matching spec.md §6's log-sink
// contract ("terminal at info, file at debug; timestamps suppressed").
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogPath is the file sink's default path when Config.Path is empty.
const DefaultLogPath = "Trading.log"

// Config controls where and how the logger writes.
type Config struct {
	// Path is the debug-level file sink's destination. Defaults to
	// DefaultLogPath (spec.md §6) when empty.
	Path string
}

// New builds the tee'd logger. Both encoders omit the time key, per
// spec.md §6's "timestamps suppressed" — envelope ids, not wall-clock
// time, are what correlate log lines to events.
func New(cfg Config) (*zap.Logger, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultLogPath
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        zapcore.OmitKey,
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		zap.NewAtomicLevelAt(zapcore.InfoLevel),
	)

	fileSink, _, err := zap.Open(path)
	if err != nil {
		return nil, err
	}

	fileEncoderConfig := encoderConfig
	fileEncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(fileEncoderConfig),
		fileSink,
		zap.NewAtomicLevelAt(zapcore.DebugLevel),
	)

	core := zapcore.NewTee(consoleCore, fileCore)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), nil
}
