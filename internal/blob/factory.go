package blob

import (
	"context"
	"fmt"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/infra/blob/fs"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/infra/blob/memory"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/infra/blob/s3"
)

// S3Config re-exports the S3 adapter configuration.
type S3Config = s3.Config

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	// Root is the directory used by the filesystem driver.
	Root string
	S3   S3Config
}

// Open constructs the configured blob.Store. An empty driver selects the
// filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fs.New(cfg.Root)
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
