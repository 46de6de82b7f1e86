package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

func TestSQLiteStorePersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := Open(ctx, path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if _, ok, err := store.Load(ctx, domain.BucketTimetable); ok || err != nil {
		t.Fatalf("empty table should report absent, ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, domain.BucketTimetable, []byte(`{"1-1":{}}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, domain.BucketTimetable, []byte(`{"1-2":{}}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	got, ok, err := reloaded.Load(ctx, domain.BucketTimetable)
	if err != nil || !ok || string(got) != `{"1-2":{}}` {
		t.Fatalf("reload: %q ok=%v err=%v", got, ok, err)
	}
	var rows int
	if err := reloaded.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&rows); err != nil || rows != 1 {
		t.Fatalf("expected a single upserted row, got %d err=%v", rows, err)
	}
	if reloaded.Path() != path || reloaded.Driver() != domain.DriverSQLite {
		t.Fatalf("unexpected path/driver %s %s", reloaded.Path(), reloaded.Driver())
	}
}

func TestSQLiteStoreClosedDB(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	_ = store.Close()
	if err := store.Save(ctx, domain.BucketSettings, []byte(`{}`)); err == nil {
		t.Fatalf("save on closed db should fail")
	}
	if _, _, err := store.Load(ctx, domain.BucketSettings); err == nil {
		t.Fatalf("load on closed db should fail")
	}
}
