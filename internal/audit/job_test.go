package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/exchange"
	blobmemory "github.com/mkt918/timetable-kun-v1-sub000/internal/infra/blob/memory"
)

func TestRunArchivesAndPrunes(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := core.NewInMemoryService(core.WithLogger(logger))
	archive := exchange.NewArchive(blobmemory.New())
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	job := &Job{
		Service: svc,
		Archive: archive,
		Keep:    2,
		Log:     logger,
		Now:     func() time.Time { return now },
	}
	ctx := context.Background()
	var last Result
	for i := 0; i < 3; i++ {
		res, err := job.Run(ctx)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if !strings.HasPrefix(res.Archived, exchange.ArchivePrefix+"full/") {
			t.Fatalf("unexpected archive key %q", res.Archived)
		}
		last = res
		now = now.Add(time.Hour)
	}
	if last.Pruned != 1 || last.Errors != 0 {
		t.Fatalf("unexpected final result %+v", last)
	}
	infos, err := archive.List(ctx, exchange.KindFull)
	if err != nil || len(infos) != 2 {
		t.Fatalf("expected two retained exports, got %d err=%v", len(infos), err)
	}
	if infos[1].Key != last.Archived {
		t.Fatalf("newest export should survive, got %+v", infos)
	}
}

func TestRunWithoutArchive(t *testing.T) {
	logger, _ := test.NewNullLogger()
	job := &Job{Service: core.NewInMemoryService(core.WithLogger(logger)), Log: logger}
	res, err := job.Run(context.Background())
	if err != nil || res.Archived != "" {
		t.Fatalf("validation-only run: %+v err=%v", res, err)
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	logger, _ := test.NewNullLogger()
	job := &Job{Service: core.NewInMemoryService(core.WithLogger(logger)), Log: logger}
	if _, err := Schedule("every tuesday", job); err == nil {
		t.Fatalf("expected a parse error")
	}
	c, err := Schedule("@every 1h", job)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Fatalf("expected one entry, got %d", len(c.Entries()))
	}
}

func TestCronLoggerUsesLogrus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	var clog cron.Logger = cronLogger{logger}
	clog.Info("skip", "entry", 3)
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.DebugLevel || entry.Message != "cron: skip" || entry.Data["entry"] != 3 {
		t.Fatalf("unexpected info entry %+v", entry)
	}
	clog.Error(errors.New("boom"), "panic", "odd")
	entry = hook.LastEntry()
	if entry.Level != logrus.ErrorLevel || entry.Data[logrus.ErrorKey] == nil || len(entry.Data) != 1 {
		t.Fatalf("unexpected error entry %+v", entry)
	}
}
