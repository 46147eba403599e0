// Package logger configures the process-wide zap logger. Components fetch
// named sugared loggers through For so log lines carry their origin.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

type Format string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"

	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

var initOnce sync.Once

// Init builds the global logger once and installs it via zap.ReplaceGlobals.
// Later calls are no-ops, so tests and the host can both call it safely.
func Init(level Level, format Format) {
	initOnce.Do(func() {
		zap.ReplaceGlobals(build(level, format))
	})
}

// For returns a sugared logger tagged with the component name.
func For(component string) *zap.SugaredLogger {
	return zap.S().Named(component)
}

func build(level Level, format Format) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.Encoding = string(encoding(format))
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding(format) == FormatConsole {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	log, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func zapLevel(level Level) zapcore.Level {
	switch Level(strings.ToLower(string(level))) {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoding(format Format) Format {
	if Format(strings.ToLower(string(format))) == FormatConsole {
		return FormatConsole
	}
	return FormatJSON
}
