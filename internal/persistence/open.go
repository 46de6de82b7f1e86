// Package persistence selects and opens the configured StateStore.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/blob"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/infra/persistence/blobstate"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/infra/persistence/memory"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/infra/persistence/postgres"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/infra/persistence/redis"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/infra/persistence/sqlite"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// ErrUnknownDriver is returned for an unrecognised driver name.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Config carries driver specific settings. Only the fields of the selected
// driver are read.
type Config struct {
	Driver      domain.Driver
	SQLitePath  string
	PostgresDSN string
	Redis       redis.Options
	// FileRoot is the directory used by the file driver.
	FileRoot string
	// S3 configures the s3 driver.
	S3 blob.S3Config
	// Prefix namespaces redis keys and blob object keys.
	Prefix string
}

// Open constructs the StateStore for cfg.Driver. An empty driver selects sqlite.
func Open(ctx context.Context, cfg Config) (domain.StateStore, error) {
	switch cfg.Driver {
	case domain.DriverMemory:
		return memory.New(), nil
	case "", domain.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case domain.DriverPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN)
	case domain.DriverRedis:
		opts := cfg.Redis
		if opts.Prefix == "" {
			opts.Prefix = cfg.Prefix
		}
		return redis.Open(ctx, opts)
	case domain.DriverFile:
		blobs, err := blob.Open(ctx, blob.Config{Driver: blob.DriverFilesystem, Root: cfg.FileRoot})
		if err != nil {
			return nil, err
		}
		return blobstate.New(blobs, cfg.Prefix), nil
	case domain.DriverS3:
		blobs, err := blob.Open(ctx, blob.Config{Driver: blob.DriverS3, S3: cfg.S3})
		if err != nil {
			return nil, err
		}
		return blobstate.New(blobs, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("%w %s", ErrUnknownDriver, cfg.Driver)
	}
}

// Close releases the store if it holds resources.
func Close(store domain.StateStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
