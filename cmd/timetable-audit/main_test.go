package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/exchange"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

func writeExport(t *testing.T, timetable domain.Timetable) string {
	t.Helper()
	st := core.NewState()
	st.Teachers = []domain.Teacher{{ID: "t1", Name: "Sato"}}
	st.Categories = []domain.Category{{ID: "c1", Name: "Core"}}
	st.Subjects = []domain.Subject{{ID: "math", CategoryID: "c1", Name: "Math"}, {ID: "eng", CategoryID: "c1", Name: "English"}}
	st.Timetable = timetable
	env, err := exchange.Export(st, exchange.KindFull, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	raw, err := exchange.Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write export: %v", err)
	}
	return path
}

func missingEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestCLIReportsDoubleBooking(t *testing.T) {
	path := writeExport(t, domain.Timetable{
		"1-1": {"0-0": {{SubjectID: "math", TeacherIDs: []string{"t1"}}}},
		"1-2": {"0-0": {{SubjectID: "eng", TeacherIDs: []string{"t1"}}}},
	})
	var stdout, stderr bytes.Buffer
	code := cli(context.Background(), []string{"-env", missingEnv(t), "-file", path}, &stdout, &stderr)
	if code != exitFindings {
		t.Fatalf("expected exit %d, got %d stderr=%s", exitFindings, code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, core.RuleTeacherDoubleBooking) || !strings.Contains(out, "ERROR") {
		t.Fatalf("double booking not reported:\n%s", out)
	}
}

func TestCLIJSONCleanSchedule(t *testing.T) {
	path := writeExport(t, domain.Timetable{
		"1-1": {"0-0": {{SubjectID: "math", TeacherIDs: []string{"t1"}}}},
	})
	var stdout, stderr bytes.Buffer
	code := cli(context.Background(), []string{"-env", missingEnv(t), "-file", path, "-json"}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("expected a clean run, got %d stderr=%s out=%s", code, stderr.String(), stdout.String())
	}
	var got struct {
		Report domain.Report `json:"report"`
		Placed int           `json:"placed"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("decode report: %v\n%s", err, stdout.String())
	}
	if len(got.Report.Errors) != 0 {
		t.Fatalf("unexpected errors %+v", got.Report.Errors)
	}
}

func TestCLIMemoryDriverAndSetupFailures(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli(context.Background(), []string{"-env", missingEnv(t), "-driver", "memory"}, &stdout, &stderr); code != exitOK {
		t.Fatalf("empty memory store should be clean, got %d stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "errors: 0") {
		t.Fatalf("summary missing: %s", stdout.String())
	}

	stderr.Reset()
	if code := cli(context.Background(), []string{"-env", missingEnv(t), "-driver", "floppy"}, &stdout, &stderr); code != exitSetup {
		t.Fatalf("unknown driver should be a setup failure, got %d", code)
	}
	if code := cli(context.Background(), []string{"-env", missingEnv(t), "-file", filepath.Join(t.TempDir(), "nope.json")}, &stdout, &stderr); code != exitSetup {
		t.Fatalf("missing file should be a setup failure, got %d", code)
	}
	if code := cli(context.Background(), []string{"-bogus"}, &stdout, &stderr); code != exitSetup {
		t.Fatalf("bad flag should be a setup failure, got %d", code)
	}
}
