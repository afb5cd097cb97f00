// Package logging builds the zap logger of the binaries and routes the
// library loggers into it.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	ping "github.com/digineo/go-pinger"
	"github.com/digineo/go-pinger/config"
	"github.com/digineo/go-pinger/internal"
	"github.com/digineo/go-pinger/monitor"
	"github.com/digineo/go-pinger/settings"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a logger. Without a file, human readable output goes to
// stderr; with one, JSON lines go to a file rotated by size.
func New(cfg config.Log) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if cfg.File == "" {
		encoder := zap.NewDevelopmentEncoderConfig()
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoder), zapcore.Lock(os.Stderr), level)
		return zap.New(core), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	})
	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "ts"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoder), w, level)
	return zap.New(core), nil
}

// ParseLevel parses a level name like "debug" or "warn".
func ParseLevel(name string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return level, fmt.Errorf("log level %q: %w", name, err)
	}
	return level, nil
}

// Install routes the package loggers of the library into logger.
func Install(logger *zap.Logger) {
	sugar := logger.Sugar()

	ping.SetLogger(sugar.Named("ping"))
	internal.SetLogger(sugar.Named("socket"))
	monitor.SetLogger(sugar.Named("monitor"))
	settings.SetLogger(sugar.Named("settings"))
}
