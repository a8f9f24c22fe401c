// Package logging builds the process-wide slog logger on a zap core.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tuannm99/kvsql/internal"
)

// NewCore returns a zap core writing to w, or to a rotated file when
// cfg.File is set. The returned closer flushes and releases the output.
func NewCore(cfg internal.LogConfig, w io.Writer) (zapcore.Core, func() error, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "log.level %q", cfg.Level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console", "":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, nil, errors.Errorf("unknown log.format %q", cfg.Format)
	}

	var (
		ws       zapcore.WriteSyncer
		closeOut = func() error { return nil }
	)
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		ws = zapcore.AddSync(lj)
		closeOut = lj.Close
	} else {
		ws = zapcore.AddSync(w)
	}

	core := zapcore.NewCore(enc, ws, level)
	return core, func() error {
		_ = core.Sync()
		return closeOut()
	}, nil
}

// Setup installs a zap-backed slog logger as the default and returns it with
// a cleanup that flushes the output.
func Setup(cfg internal.LogConfig) (*slog.Logger, func(), error) {
	core, closer, err := NewCore(cfg, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(zapslog.NewHandler(core, zapslog.WithCaller(true)))
	slog.SetDefault(logger)
	return logger, func() { _ = closer() }, nil
}
