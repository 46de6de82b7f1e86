// Package audit runs the periodic validation pass and archives a full export
// of the state it checked.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/exchange"
)

// DefaultTimeout bounds one scheduled run.
const DefaultTimeout = 4 * time.Minute

// Job validates the schedule and, when an archive is configured, stores a
// full export and prunes older ones beyond Keep.
type Job struct {
	Service *core.Service
	Archive *exchange.Archive
	// Keep is how many full exports survive a prune; 0 keeps all of them.
	Keep    int
	Log     logrus.FieldLogger
	Now     func() time.Time
	Timeout time.Duration
}

// Result summarises one run.
type Result struct {
	Errors   int
	Warnings int
	Infos    int
	Archived string
	Pruned   int
}

// Run performs one audit pass.
func (j *Job) Run(ctx context.Context) (Result, error) {
	report, err := j.Service.Validate(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("validate: %w", err)
	}
	res := Result{Errors: len(report.Errors), Warnings: len(report.Warnings), Infos: len(report.Infos)}
	if j.Archive == nil {
		return res, nil
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	info, err := j.Archive.Save(ctx, j.Service.State(), exchange.KindFull, now())
	if err != nil {
		return res, err
	}
	res.Archived = info.Key
	if j.Keep > 0 {
		pruned, err := j.Archive.Prune(ctx, exchange.KindFull, j.Keep)
		res.Pruned = pruned
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func (j *Job) logger() logrus.FieldLogger {
	if j.Log == nil {
		return logrus.StandardLogger()
	}
	return j.Log
}

// Schedule registers the job on a new cron runner without starting it.
// Overlapping runs are skipped.
func Schedule(spec string, job *Job) (*cron.Cron, error) {
	log := job.logger()
	clog := cronLogger{log}
	c := cron.New(cron.WithLogger(clog), cron.WithChain(cron.SkipIfStillRunning(clog)))
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := job.Run(ctx)
		entry := log.WithFields(logrus.Fields{
			"errors":   res.Errors,
			"warnings": res.Warnings,
			"archived": res.Archived,
			"pruned":   res.Pruned,
		})
		if err != nil {
			entry.WithError(err).Error("audit run failed")
			return
		}
		entry.Info("audit run")
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return c, nil
}

// cronLogger routes the scheduler's own messages through logrus. Routine
// scheduler chatter is logged at debug level.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.WithFields(cronFields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.WithFields(cronFields(keysAndValues)).WithError(err).Error("cron: " + msg)
}

func cronFields(keysAndValues []any) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
