// Package blobstate stores bucket documents as objects in a blob.Store, one
// object per bucket under a key prefix. It backs the file and s3 drivers.
package blobstate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/blob"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

var _ domain.StateStore = (*Store)(nil)

// DefaultPrefix is the key prefix bucket objects live under.
const DefaultPrefix = "state"

// Store adapts a blob.Store to domain.StateStore.
type Store struct {
	blobs  blob.Store
	prefix string
}

// New wraps blobs. An empty prefix selects DefaultPrefix.
func New(blobs blob.Store, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{blobs: blobs, prefix: prefix}
}

// Driver maps the blob backend onto a state driver.
func (s *Store) Driver() domain.Driver {
	switch s.blobs.Driver() {
	case blob.DriverS3:
		return domain.DriverS3
	case blob.DriverMemory:
		return domain.DriverMemory
	default:
		return domain.DriverFile
	}
}

// Key returns the object key for bucket.
func (s *Store) Key(bucket domain.Bucket) string {
	return path.Join(s.prefix, string(bucket)+".json")
}

// Load reads the bucket object.
func (s *Store) Load(ctx context.Context, bucket domain.Bucket) ([]byte, bool, error) {
	_, rc, err := s.blobs.Get(ctx, s.Key(bucket))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", bucket, err)
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", bucket, err)
	}
	return payload, true, nil
}

// Save replaces the bucket object. Blob stores are create-only, so the old
// object is removed first.
func (s *Store) Save(ctx context.Context, bucket domain.Bucket, payload []byte) error {
	key := s.Key(bucket)
	if _, err := s.blobs.Delete(ctx, key); err != nil {
		return fmt.Errorf("replace %s: %w", bucket, err)
	}
	if _, err := s.blobs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"bucket": string(bucket)},
	}); err != nil {
		return fmt.Errorf("write %s: %w", bucket, err)
	}
	return nil
}
