// Package redis stores bucket documents as plain string keys.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

var _ domain.StateStore = (*Store)(nil)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "timetable:"

// Client is the subset of *goredis.Client the store uses.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Ping(ctx context.Context) *goredis.StatusCmd
	Close() error
}

// Options configures Open.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store keeps one key per bucket.
type Store struct {
	client Client
	prefix string
}

// Open dials the server and verifies it with PING.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	store, err := New(ctx, client, opts.Prefix)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing client.
func New(ctx context.Context, client Client, prefix string) (*Store, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client, prefix: prefix}, nil
}

// Driver implements domain.StateStore.
func (s *Store) Driver() domain.Driver { return domain.DriverRedis }

// Key returns the redis key used for bucket.
func (s *Store) Key(bucket domain.Bucket) string { return s.prefix + string(bucket) }

// Load reads the bucket key. A missing key is reported as absent.
func (s *Store) Load(ctx context.Context, bucket domain.Bucket) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, s.Key(bucket)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", bucket, err)
	}
	return payload, true, nil
}

// Save writes the bucket key without expiry.
func (s *Store) Save(ctx context.Context, bucket domain.Bucket, payload []byte) error {
	if err := s.client.Set(ctx, s.Key(bucket), payload, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", bucket, err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }
