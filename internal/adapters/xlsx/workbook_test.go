package xlsx

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

func sampleView() domain.ScheduleView {
	st := core.NewState()
	st.Settings.ClassConfig = map[int]int{1: 2}
	st.Teachers = []domain.Teacher{{ID: "t1", Name: "Sato"}, {ID: "t2", Name: "Suzuki"}, {ID: "sep", Name: "---", Separator: true}}
	st.Subjects = []domain.Subject{
		{ID: "math", CategoryID: "c1", Name: "Mathematics", ShortName: "Math"},
		{ID: "duty", CategoryID: "c1", Name: "Duty"},
	}
	st.Timetable = domain.Timetable{
		"1-1": {"0-0": {{SubjectID: "math", TeacherIDs: []string{"t1", "t2"}}}},
		"1-2": {"4-5": {{SubjectID: "math", TeacherIDs: []string{"t2"}}}},
		domain.NonClassDutyID: {"2-3": {{SubjectID: "duty", TeacherIDs: []string{"t1"}}}},
	}
	st.Meetings = []domain.Meeting{{ID: "m1", Name: "Staff", TeacherIDs: []string{"t1"}, Schedule: []domain.MeetingSlot{{Day: 1, Period: 2}}}}
	return core.NewView(st)
}

func cellValue(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell)
	if err != nil {
		t.Fatalf("get %s!%s: %v", sheet, cell, err)
	}
	return v
}

func TestBuildWorkbook(t *testing.T) {
	f, err := Build(sampleView())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer func() { _ = f.Close() }()

	checks := []struct{ sheet, cell, want string }{
		{ClassSheet, "A1", "1-1"},
		{ClassSheet, "B1", "Mon"},
		{ClassSheet, "F1", "Fri"},
		{ClassSheet, "A2", "1"},
		{ClassSheet, "B2", "Math (Sato, Suzuki)"},
		// second class block starts after 6 periods and a blank row
		{ClassSheet, "A9", "1-2"},
		{ClassSheet, "F15", "Math (Suzuki)"},
		{TeacherSheet, "A1", "Sato"},
		{TeacherSheet, "B2", "Math 1-1"},
		{TeacherSheet, "D5", "Duty"},
		{TeacherSheet, "C3", "[Staff]"},
		{TeacherSheet, "A9", "Suzuki"},
		{TeacherSheet, "F15", "Math 1-2"},
	}
	for _, c := range checks {
		if got := cellValue(t, f, c.sheet, c.cell); got != c.want {
			t.Fatalf("%s!%s = %q, want %q", c.sheet, c.cell, got, c.want)
		}
	}
	if got := cellValue(t, f, TeacherSheet, "A17"); got != "" {
		t.Fatalf("separator rows must be skipped, got %q", got)
	}
}

func TestWriteProducesReadableWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleView()); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = f.Close() }()
	if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[0] != ClassSheet || sheets[1] != TeacherSheet {
		t.Fatalf("unexpected sheets %v", sheets)
	}
}
