// Command timetable-server serves the timetable API and runs the scheduled
// audit job.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/adapters/httpapi"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/audit"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/blob"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/config"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/exchange"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/persistence"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := cfg.NewLogger()
	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("timetable-server")
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	store, err := persistence.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := persistence.Close(store); err != nil {
			log.WithError(err).Warn("close storage")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := core.NewPrometheusRecorder(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	svc := core.NewService(store,
		core.WithLogger(log),
		core.WithMetricsRecorder(recorder),
		core.WithIDGenerator(uuid.NewString),
	)
	if err := svc.Load(ctx); err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	blobs, err := blob.Open(ctx, cfg.Archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	archive := exchange.NewArchive(blobs)

	if cfg.AuditSpec != "" {
		scheduler, err := audit.Schedule(cfg.AuditSpec, &audit.Job{
			Service: svc,
			Archive: archive,
			Keep:    cfg.ArchiveKeep,
			Log:     log.WithField("job", "audit"),
		})
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
	}

	app := httpapi.New(svc, httpapi.Options{Logger: log, Gatherer: reg, Archive: archive})
	errCh := make(chan error, 1)
	go func() { errCh <- app.Listen(cfg.HTTPAddr) }()
	log.WithFields(logrus.Fields{
		"addr":    cfg.HTTPAddr,
		"storage": store.Driver(),
		"archive": archive.Driver(),
		"audit":   cfg.AuditSpec,
	}).Info("timetable-server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
