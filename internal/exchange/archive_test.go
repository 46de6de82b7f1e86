package exchange

import (
	"context"
	"strings"
	"testing"
	"time"

	blobmemory "github.com/mkt918/timetable-kun-v1-sub000/internal/infra/blob/memory"
	blobs3 "github.com/mkt918/timetable-kun-v1-sub000/internal/infra/blob/s3"
)

func TestArchiveSaveListLoadPrune(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(blobmemory.New())
	st := sampleState()
	for i := 0; i < 3; i++ {
		info, err := archive.Save(ctx, st, KindFull, exportTime.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		if !strings.HasPrefix(info.Key, "exports/full/20260401T") {
			t.Fatalf("unexpected key %s", info.Key)
		}
	}
	if _, err := archive.Save(ctx, st, KindMaster, exportTime); err != nil {
		t.Fatalf("save master: %v", err)
	}
	if _, err := archive.Save(ctx, st, KindFull, exportTime); err == nil {
		t.Fatalf("same timestamp should collide")
	}

	full, err := archive.List(ctx, KindFull)
	if err != nil || len(full) != 3 {
		t.Fatalf("list full: %+v %v", full, err)
	}
	if all, _ := archive.List(ctx, ""); len(all) != 4 {
		t.Fatalf("expected every export listed, got %d", len(all))
	}
	env, err := archive.Load(ctx, full[2].Key)
	if err != nil || env.Type != KindFull || !env.ExportedAt.Equal(exportTime.Add(2*time.Hour)) {
		t.Fatalf("load: %+v %v", env, err)
	}
	if _, err := archive.Load(ctx, "state/teachers.json"); err == nil {
		t.Fatalf("keys outside the archive must be refused")
	}

	removed, err := archive.Prune(ctx, KindFull, 1)
	if err != nil || removed != 2 {
		t.Fatalf("prune: %d %v", removed, err)
	}
	if left, _ := archive.List(ctx, KindFull); len(left) != 1 || left[0].Key != full[2].Key {
		t.Fatalf("prune should keep the newest export: %+v", left)
	}
}

func TestArchiveOverS3(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(blobs3.NewMockForTests())
	info, err := archive.Save(ctx, sampleState(), KindTimetable, exportTime)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	env, err := archive.Load(ctx, info.Key)
	if err != nil || env.Type != KindTimetable {
		t.Fatalf("load: %+v %v", env, err)
	}
	if archive.Driver() != "s3" {
		t.Fatalf("unexpected driver %s", archive.Driver())
	}
}
