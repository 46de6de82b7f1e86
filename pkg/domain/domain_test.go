package domain

import (
	"strings"
	"testing"
	"time"
)

func TestParseSlotKey(t *testing.T) {
	cases := []struct {
		raw     string
		want    SlotKey
		wantErr string
	}{
		{raw: "0-0", want: SlotKey{}},
		{raw: "4-5", want: SlotKey{Day: 4, Period: 5}},
		{raw: "3", wantErr: "missing separator"},
		{raw: "a-1", wantErr: "day"},
		{raw: "1-b", wantErr: "period"},
		{raw: "-1-2", wantErr: "day"},
	}
	for _, tc := range cases {
		got, err := ParseSlotKey(tc.raw)
		if tc.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("%q: expected error containing %q, got %v", tc.raw, tc.wantErr, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got %+v err=%v", tc.raw, got, err)
		}
		if got.String() != tc.raw {
			t.Fatalf("%q: String() = %q", tc.raw, got.String())
		}
	}
}

func TestSlotKeyValid(t *testing.T) {
	if !(SlotKey{Day: Days - 1, Period: 5}).Valid(6) {
		t.Fatalf("last cell should be valid")
	}
	for _, k := range []SlotKey{{Day: Days}, {Period: 6}, {Day: -1}} {
		if k.Valid(6) {
			t.Fatalf("%+v should be outside a 6 period grid", k)
		}
	}
}

func TestGenerateClassesOrdersGrades(t *testing.T) {
	got := GenerateClasses(map[int]int{2: 1, 1: 2, 3: 0})
	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	if strings.Join(ids, ",") != "1-1,1-2,2-1" {
		t.Fatalf("unexpected classes %v", ids)
	}
	if got[2].Grade != 2 || got[2].Name != "2-1" {
		t.Fatalf("unexpected section %+v", got[2])
	}
}

func TestSettingsNormalizeAndClone(t *testing.T) {
	s := Settings{Validation: ValidationSettings{TeacherConsecutive: 2}}.Normalize()
	if s.Periods != DefaultPeriods || s.ClassConfig == nil || s.UnavailableSlots == nil {
		t.Fatalf("defaults not applied: %+v", s)
	}
	if s.Validation.TeacherConsecutive != 2 || s.Validation.SameSubjectConsecutive != 3 || s.Validation.ClassConsecutive != ThresholdOff {
		t.Fatalf("validation thresholds: %+v", s.Validation)
	}
	s.UnavailableSlots["t1"] = []string{"0-0"}
	cp := s.Clone()
	cp.UnavailableSlots["t1"][0] = "1-1"
	cp.ClassConfig[1] = 9
	if s.UnavailableSlots["t1"][0] != "0-0" || s.ClassConfig[1] == 9 {
		t.Fatalf("clone shares maps with the original")
	}
}

func TestTimetableAndParkingClones(t *testing.T) {
	tt := Timetable{"1-1": {"0-0": {{SubjectID: "math", TeacherIDs: []string{"t1"}, RoomIDs: []string{"lab"}}}}}
	cp := tt.Clone()
	cp["1-1"]["0-0"][0].TeacherIDs[0] = "t2"
	cp["1-1"]["0-0"][0].RoomIDs[0] = "gym"
	if l := tt["1-1"]["0-0"][0]; l.TeacherIDs[0] != "t1" || l.RoomIDs[0] != "lab" {
		t.Fatalf("timetable clone is shallow: %+v", l)
	}

	parked := ParkingArea{"t1": {{ID: "p1", ClassID: "1-1", SubjectID: "math", TeacherIDs: []string{"t1"}, OriginalDay: 2, OriginalPeriod: 3, ParkedAt: time.Unix(0, 0)}}}
	pc := parked.Clone()
	pc["t1"][0].TeacherIDs[0] = "x"
	if parked["t1"][0].TeacherIDs[0] != "t1" {
		t.Fatalf("parking clone is shallow")
	}
	item := parked["t1"][0]
	if item.Origin() != (SlotKey{Day: 2, Period: 3}) || item.Lesson().SubjectID != "math" {
		t.Fatalf("unexpected item views %+v %+v", item.Origin(), item.Lesson())
	}
}

func TestLinkedGroupContains(t *testing.T) {
	g := LinkedGroup{ID: "g", Slots: []SlotRef{{ClassID: "1-1", Day: 0, Period: 1}}}
	if !g.Contains(SlotRef{ClassID: "1-1", Day: 0, Period: 1}) || g.Contains(SlotRef{ClassID: "1-2", Day: 0, Period: 1}) {
		t.Fatalf("membership must be exact")
	}
	cp := CloneLinkedGroups([]LinkedGroup{g})
	cp[0].Slots[0].Day = 4
	if g.Slots[0].Day != 0 {
		t.Fatalf("group clone is shallow")
	}
	if out := CloneLinkedGroups(nil); out == nil {
		t.Fatalf("clone of nil should be empty, not nil")
	}
}

func TestReportAndResults(t *testing.T) {
	var r Report
	r.Add(Issue{Rule: "a", Level: LevelError})
	r.Add(Issue{Rule: "b", Level: LevelWarning})
	r.Add(Issue{Rule: "c", Level: LevelInfo})
	r.Add(Issue{Rule: "d"})
	if !r.HasErrors() || r.Count(LevelWarning) != 1 || r.Count(LevelInfo) != 2 {
		t.Fatalf("unexpected buckets %+v", r)
	}
	if r.Summary() != "errors: 1, warnings: 1, info: 2" {
		t.Fatalf("summary = %q", r.Summary())
	}
	if res := OK(2, "moved %d", 2); !res.Success || res.Count != 2 || res.Message != "moved 2" {
		t.Fatalf("OK = %+v", res)
	}
	if res := Fail("no %s", "slot"); res.Success || res.Message != "no slot" {
		t.Fatalf("Fail = %+v", res)
	}
}
