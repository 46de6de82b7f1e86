// Command timetable-audit loads the configured timetable store, or an export
// file, runs every enabled validation rule and prints the report. It exits 1
// when errors are found (or warnings, with -strict) and 2 on setup failures.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/config"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/exchange"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/persistence"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

const (
	exitOK       = 0
	exitFindings = 1
	exitSetup    = 2
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("timetable-audit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", ".env", "optional .env file")
	driver := fs.String("driver", "", "storage driver override (memory, sqlite, postgres, redis, file, s3)")
	input := fs.String("file", "", "validate an export file instead of the configured store")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	strict := fs.Bool("strict", false, "treat warnings as findings")
	if err := fs.Parse(args); err != nil {
		return exitSetup
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitSetup
	}
	if *driver != "" {
		cfg.Storage.Driver = domain.Driver(strings.ToLower(*driver))
	}
	log := cfg.NewLogger()
	log.SetOutput(stderr)

	svc, closeFn, err := openService(ctx, cfg, *input, log)
	if err != nil {
		fmt.Fprintf(stderr, "load: %v\n", err)
		return exitSetup
	}
	defer closeFn()

	report, err := svc.Validate(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "validate: %v\n", err)
		return exitSetup
	}
	placed, required := svc.PlacementTotals()
	if *asJSON {
		err = writeJSON(stdout, report, placed, required)
	} else {
		err = writeText(stdout, report, placed, required)
	}
	if err != nil {
		fmt.Fprintf(stderr, "write report: %v\n", err)
		return exitSetup
	}
	if report.HasErrors() || (*strict && len(report.Warnings) > 0) {
		return exitFindings
	}
	return exitOK
}

func openService(ctx context.Context, cfg config.Config, input string, log logrus.FieldLogger) (*core.Service, func(), error) {
	if input != "" {
		raw, err := os.ReadFile(input)
		if err != nil {
			return nil, nil, err
		}
		env, err := exchange.Decode(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", input, err)
		}
		svc := core.NewInMemoryService(core.WithLogger(log))
		if res := exchange.Import(ctx, svc, env, exchange.ModeReplace); !res.Success {
			return nil, nil, fmt.Errorf("%s: %s", input, res.Message)
		}
		return svc, func() {}, nil
	}
	store, err := persistence.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := persistence.Close(store); err != nil {
			log.WithError(err).Warn("close store")
		}
	}
	svc := core.NewService(store, core.WithLogger(log))
	if err := svc.Load(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}

func writeJSON(w io.Writer, report domain.Report, placed, required int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Report   domain.Report `json:"report"`
		Placed   int           `json:"placed"`
		Required int           `json:"required"`
	}{report, placed, required})
}

func writeText(w io.Writer, report domain.Report, placed, required int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, group := range []struct {
		label  string
		issues []domain.Issue
	}{{"ERROR", report.Errors}, {"WARN", report.Warnings}, {"INFO", report.Infos}} {
		for _, issue := range group.issues {
			if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", group.label, issue.Rule, issue.Message); err != nil {
				return err
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s (placed %d/%d)\n", report.Summary(), placed, required)
	return err
}
