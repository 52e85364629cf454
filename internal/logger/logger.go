package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a new zap logger. Extra output paths receive the same entries
// as stderr; their directories are created on demand.
func New(development bool, outputPaths ...string) (*zap.Logger, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	for _, p := range outputPaths {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, p)
	}

	return cfg.Build()
}

// Must creates a logger or panics
func Must(development bool, outputPaths ...string) *zap.Logger {
	log, err := New(development, outputPaths...)
	if err != nil {
		panic(err)
	}
	return log
}

// SessionPath returns the per-day session log file for a run mode,
// e.g. logs/session_live_2024-05-06.log.
func SessionPath(dir, mode string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("session_%s_%s.log", mode, now.Format("2006-01-02")))
}
