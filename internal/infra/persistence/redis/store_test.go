package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

type fakeClient struct {
	data    map[string]string
	pingErr error
	setErr  error
	closed  bool
}

func newFakeClient() *fakeClient { return &fakeClient{data: map[string]string{}} }

func (f *fakeClient) Get(_ context.Context, key string) *goredis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, _ time.Duration) *goredis.StatusCmd {
	if f.setErr != nil {
		return goredis.NewStatusResult("", f.setErr)
	}
	f.data[key] = string(value.([]byte))
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Ping(context.Context) *goredis.StatusCmd {
	return goredis.NewStatusResult("PONG", f.pingErr)
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store, err := New(ctx, client, "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok, err := store.Load(ctx, domain.BucketParkingArea); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, domain.BucketParkingArea, []byte(`[]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if client.data["timetable:parkingArea"] != "[]" {
		t.Fatalf("unexpected keys %v", client.data)
	}
	got, ok, err := store.Load(ctx, domain.BucketParkingArea)
	if err != nil || !ok || string(got) != "[]" {
		t.Fatalf("load: %q ok=%v err=%v", got, ok, err)
	}
	if err := store.Close(); err != nil || !client.closed {
		t.Fatalf("close should reach client")
	}
	if store.Driver() != domain.DriverRedis {
		t.Fatalf("unexpected driver")
	}
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.pingErr = errors.New("refused")
	if _, err := New(ctx, client, "x:"); err == nil {
		t.Fatalf("expected ping failure")
	}
	client.pingErr = nil
	store, err := New(ctx, client, "x:")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Key(domain.BucketSettings) != "x:settings" {
		t.Fatalf("custom prefix ignored")
	}
	client.setErr = errors.New("readonly")
	if err := store.Save(ctx, domain.BucketSettings, []byte(`{}`)); err == nil {
		t.Fatalf("expected set failure")
	}
}
