// Package archive keeps per-run snapshots of the ledger and trade log in a
// local directory or an S3-compatible bucket.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/etfbot/internal/core"
)

// Storage defines the interface for cold/archive storage backends.
// Keys are slash-separated and relative to the backend root.
type Storage interface {
	// Write stores data at key, replacing any previous object
	Write(ctx context.Context, key string, data []byte) error

	// Read retrieves data from key
	Read(ctx context.Context, key string) ([]byte, error)

	// List returns all keys under prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes key
	Delete(ctx context.Context, key string) error
}

// Config selects and configures the archive backend.
type Config struct {
	// Backend is "", "local" or "s3". Empty disables archiving.
	Backend string `mapstructure:"backend"`
	// Dir is the root directory for the local backend.
	Dir string `mapstructure:"dir"`
	// S3 configures the s3 backend.
	S3 S3Config `mapstructure:"s3"`
	// RetentionDays prunes run snapshots older than this many days; 0 keeps all.
	RetentionDays int `mapstructure:"retention_days"`
}

// Enabled reports whether a backend is configured.
func (c Config) Enabled() bool {
	return c.Backend != ""
}

// Validate checks backend-specific settings.
func (c Config) Validate() error {
	switch c.Backend {
	case "":
		return nil
	case "local":
		if c.Dir == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive.dir is required for the local backend"))
		}
	case "s3":
		if c.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive.s3.bucket is required for the s3 backend"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive backend %q", c.Backend))
	}
	if c.RetentionDays < 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("archive.retention_days must not be negative"))
	}
	return nil
}

// Open builds the configured backend.
func Open(cfg Config, logger *zap.Logger) (Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "local":
		return NewLocalFS(cfg.Dir)
	case "s3":
		return NewS3(cfg.S3, logger)
	}
	return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive backend not configured"))
}

// cleanKey normalizes key and rejects keys escaping the root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("archive: empty key %q", key)
	}
	return k, nil
}
