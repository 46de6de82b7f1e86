package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/blob/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	meta := map[string]string{"kind": "full"}
	info, err := s.Put(ctx, "exports/full/a.json", strings.NewReader(`{"v":1}`), core.PutOptions{ContentType: "application/json", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["kind"] = "changed"
	if info.Size != 7 || info.ETag == "" || info.Metadata["kind"] != "full" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "exports/full/a.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, err := s.Get(ctx, "exports/full/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"v":1}` {
		t.Fatalf("unexpected body %s", body)
	}
	if _, err := s.Put(ctx, "exports/master/b.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	list, _ := s.List(ctx, "exports/full/")
	if len(list) != 1 || list[0].Key != "exports/full/a.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	if all, _ := s.List(ctx, ""); len(all) != 2 {
		t.Fatalf("empty prefix should list everything, got %d", len(all))
	}
	if ok, _ := s.Delete(ctx, "exports/full/a.json"); !ok {
		t.Fatalf("delete should report existing key")
	}
	if ok, _ := s.Delete(ctx, "exports/full/a.json"); ok {
		t.Fatalf("second delete should report missing key")
	}
	if _, err := s.Head(ctx, "exports/full/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreCancelledPut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
