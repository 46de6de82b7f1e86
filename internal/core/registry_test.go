package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

func TestAddTeacherValidation(t *testing.T) {
	s, kv, _ := newTestStore(t)
	ctx := context.Background()
	if res := s.AddTeacher(ctx, domain.Teacher{ID: "t4"}); res.Success || !strings.Contains(res.Message, "Name: required") {
		t.Fatalf("expected validator failure, got %+v", res)
	}
	if res := s.AddTeacher(ctx, domain.Teacher{ID: "t1", Name: "Dup"}); res.Success {
		t.Fatalf("duplicate id must be refused")
	}
	if res := s.AddTeacher(ctx, domain.Teacher{ID: "t4", Name: "Ito", CategoryIDs: []string{"missing"}}); res.Success {
		t.Fatalf("unknown category must be refused")
	}
	res := s.AddTeacher(ctx, domain.Teacher{ID: "t4", Name: "Ito", CategoryIDs: []string{"c1", "c1"}})
	if !res.Success || res.Count != 1 {
		t.Fatalf("add teacher: %+v", res)
	}
	got, err := s.Teacher("t4")
	if err != nil || len(got.CategoryIDs) != 1 {
		t.Fatalf("categories should be deduplicated, got %+v err=%v", got, err)
	}
	if kv.saves[domain.BucketTeachers] != 1 {
		t.Fatalf("teachers bucket should be saved once")
	}
	if _, err := s.Teacher("nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTeacherCascades(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	mustSet(t, s, "1-1", 0, 0, "math", []string{"t1"}, false)
	mustSet(t, s, "1-2", 0, 0, "math", []string{"t1", "t2"}, false)
	mustSet(t, s, "1-3", 0, 1, "eng", []string{"t1"}, false)
	s.MoveToParking(ctx, "t1", "1-3", 0, 1)
	s.state.Assignments = []domain.Assignment{
		{TeacherID: "t1", SubjectID: "math", ClassID: "1-1", Hours: 3},
		{TeacherID: "t2", SubjectID: "math", ClassID: "1-2", Hours: 3},
	}
	s.state.Meetings = []domain.Meeting{{ID: "m1", Name: "Staff", TeacherIDs: []string{"t1", "t2"}}}
	s.state.Settings.UnavailableSlots["t1"] = []string{"0-0"}

	if res := s.DeleteTeacher(ctx, "t1"); !res.Success {
		t.Fatalf("delete teacher: %+v", res)
	}
	if len(s.GetSlot("1-1", 0, 0)) != 0 {
		t.Fatalf("lesson left without teachers must be removed")
	}
	if got := s.GetSlot("1-2", 0, 0); len(got) != 1 || len(got[0].TeacherIDs) != 1 || got[0].TeacherIDs[0] != "t2" {
		t.Fatalf("team lesson should keep the other teacher, got %+v", got)
	}
	st := s.State()
	if len(st.Assignments) != 1 || st.Assignments[0].TeacherID != "t2" {
		t.Fatalf("assignments not cascaded: %+v", st.Assignments)
	}
	if len(st.Meetings[0].TeacherIDs) != 1 {
		t.Fatalf("meeting attendance not cascaded: %+v", st.Meetings)
	}
	if _, ok := st.ParkingArea["t1"]; ok {
		t.Fatalf("parking area not cascaded")
	}
	if _, ok := st.Settings.UnavailableSlots["t1"]; ok {
		t.Fatalf("unavailability not cascaded")
	}
	if res := s.DeleteTeacher(ctx, "t1"); res.Success {
		t.Fatalf("second delete must fail")
	}
}

func TestDeleteCategoryRefusedWhileInUse(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	if res := s.DeleteCategory(ctx, "c1"); res.Success {
		t.Fatalf("category with subjects must not be deleted")
	}
	if res := s.AddCategory(ctx, domain.Category{ID: "c2", Name: "Arts", Color: "#zzz"}); res.Success {
		t.Fatalf("invalid color must be refused")
	}
	if res := s.AddCategory(ctx, domain.Category{ID: "c2", Name: "Arts", Color: "#ff8800"}); !res.Success {
		t.Fatalf("add category: %+v", res)
	}
	s.state.Teachers[0].CategoryIDs = []string{"c1", "c2"}
	if res := s.DeleteCategory(ctx, "c2"); !res.Success {
		t.Fatalf("delete unused category: %+v", res)
	}
	if got := s.state.Teachers[0].CategoryIDs; len(got) != 1 || got[0] != "c1" {
		t.Fatalf("category should be dropped from teachers, got %v", got)
	}
}

func TestSubjectLifecycle(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	if res := s.AddSubject(ctx, domain.Subject{ID: "art", CategoryID: "missing", Name: "Art"}); res.Success {
		t.Fatalf("unknown category must be refused")
	}
	if res := s.AddSubject(ctx, domain.Subject{ID: "art", CategoryID: "c1", Name: "Art", ShortName: "toolongname"}); res.Success {
		t.Fatalf("short name over 8 characters must be refused")
	}
	if res := s.UpdateSubject(ctx, domain.Subject{ID: "math", CategoryID: "c1", Name: "Mathematics"}); !res.Success {
		t.Fatalf("update subject: %+v", res)
	}

	mustSet(t, s, "1-1", 0, 0, "elA", []string{"t1"}, false)
	mustSet(t, s, "1-1", 0, 0, "elB", []string{"t2"}, true)
	mustSet(t, s, "1-2", 0, 1, "elA", []string{"t3"}, false)
	s.MoveToParking(ctx, "t3", "1-2", 0, 1)
	s.state.Assignments = []domain.Assignment{{TeacherID: "t1", SubjectID: "elA", ClassID: "1-1", Hours: 2}}

	if res := s.DeleteSubject(ctx, "elA"); !res.Success {
		t.Fatalf("delete subject: %+v", res)
	}
	if got := s.GetSlot("1-1", 0, 0); len(got) != 1 || got[0].SubjectID != "elB" {
		t.Fatalf("lessons of the subject must be removed, got %+v", got)
	}
	st := s.State()
	if len(st.Assignments) != 0 || len(st.ParkingArea) != 0 {
		t.Fatalf("assignments and parking must cascade: %+v %+v", st.Assignments, st.ParkingArea)
	}
	if g := st.ElectiveGroups[0]; len(g.SubjectIDs) != 1 || g.SubjectIDs[0] != "elB" {
		t.Fatalf("elective membership must cascade: %+v", g)
	}
}

func TestDeleteSpecialClassroomReleasesLessons(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	s.SetSlot(ctx, "1-1", 0, 0, "sci", []string{"t1"}, []string{"lab"}, false)
	if res := s.AddSpecialClassroom(ctx, domain.SpecialClassroom{ID: "lab", Name: "Lab 2"}); res.Success {
		t.Fatalf("duplicate room must be refused")
	}
	if res := s.DeleteSpecialClassroom(ctx, "lab"); !res.Success {
		t.Fatalf("delete room: %+v", res)
	}
	if got := s.GetSlot("1-1", 0, 0); len(got) != 1 || got[0].RoomIDs != nil {
		t.Fatalf("room must be stripped but lesson kept, got %+v", got)
	}
}

func TestMeetingLifecycle(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	m, res := s.AddMeeting(ctx, domain.Meeting{Name: "Staff", TeacherIDs: []string{"t1", "t1"}, Schedule: []domain.MeetingSlot{{Day: 1, Period: 6}}})
	if !res.Success || m.ID != "id-1" || len(m.TeacherIDs) != 1 {
		t.Fatalf("add meeting: %+v %+v", m, res)
	}
	if _, res := s.AddMeeting(ctx, domain.Meeting{Name: "Late", Schedule: []domain.MeetingSlot{{Day: 1, Period: 7}}}); res.Success {
		t.Fatalf("period past the grid must be refused")
	}
	if _, res := s.AddMeeting(ctx, domain.Meeting{Name: "Ghost", TeacherIDs: []string{"nobody"}}); res.Success {
		t.Fatalf("unknown teacher must be refused")
	}
	if _, res := s.AddMeeting(ctx, domain.Meeting{Name: "Bad", Schedule: []domain.MeetingSlot{{Day: 5, Period: 1}}}); res.Success {
		t.Fatalf("day outside the week must be refused")
	}
	m.Name = "Staff meeting"
	if res := s.UpdateMeeting(ctx, m); !res.Success {
		t.Fatalf("update meeting: %+v", res)
	}
	if res := s.DeleteMeeting(ctx, m.ID); !res.Success {
		t.Fatalf("delete meeting: %+v", res)
	}
	if res := s.DeleteMeeting(ctx, m.ID); res.Success {
		t.Fatalf("second delete must fail")
	}
}

func TestSetAssignmentUpserts(t *testing.T) {
	s, kv, _ := newTestStore(t)
	ctx := context.Background()
	a := domain.Assignment{TeacherID: "t1", SubjectID: "math", ClassID: "1-1", Hours: 4}
	if res := s.SetAssignment(ctx, a); !res.Success {
		t.Fatalf("set assignment: %+v", res)
	}
	a.Hours = 5
	if res := s.SetAssignment(ctx, a); !res.Success || len(s.state.Assignments) != 1 || s.state.Assignments[0].Hours != 5 {
		t.Fatalf("second set must update in place: %+v", s.state.Assignments)
	}
	if res := s.SetAssignment(ctx, domain.Assignment{TeacherID: "t1", SubjectID: "math", ClassID: "9-9", Hours: 1}); res.Success {
		t.Fatalf("unknown class must be refused")
	}
	if res := s.SetAssignment(ctx, domain.Assignment{TeacherID: "t1", SubjectID: "hr", ClassID: domain.NonClassDutyID, Hours: 41}); res.Success {
		t.Fatalf("hours over 40 must be refused")
	}
	if res := s.SetAssignment(ctx, domain.Assignment{TeacherID: "t1", SubjectID: "hr", ClassID: domain.NonClassDutyID, Hours: 1}); !res.Success {
		t.Fatalf("non-class duty is a valid class: %+v", res)
	}
	if kv.saves[domain.BucketAssignments] != 3 {
		t.Fatalf("expected 3 assignment saves, got %d", kv.saves[domain.BucketAssignments])
	}
	if res := s.DeleteAssignment(ctx, a.Key()); !res.Success {
		t.Fatalf("delete assignment: %+v", res)
	}
	if res := s.DeleteAssignment(ctx, a.Key()); res.Success {
		t.Fatalf("second delete must fail")
	}
}

func TestElectiveGroupLifecycle(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	if _, res := s.AddElectiveGroup(ctx, domain.ElectiveGroup{Name: "Empty"}); res.Success {
		t.Fatalf("group without subjects must be refused")
	}
	if _, res := s.AddElectiveGroup(ctx, domain.ElectiveGroup{Name: "Bad", SubjectIDs: []string{"nope"}}); res.Success {
		t.Fatalf("unknown subject must be refused")
	}
	g, res := s.AddElectiveGroup(ctx, domain.ElectiveGroup{Name: "Science", SubjectIDs: []string{"sci", "eng"}})
	if !res.Success || g.ID == "" {
		t.Fatalf("add elective: %+v %+v", g, res)
	}
	g.SubjectIDs = []string{"sci"}
	if res := s.UpdateElectiveGroup(ctx, g); !res.Success {
		t.Fatalf("update elective: %+v", res)
	}
	if res := s.DeleteElectiveGroup(ctx, g.ID); !res.Success || len(s.state.ElectiveGroups) != 1 {
		t.Fatalf("delete elective: %+v", res)
	}
}

func TestUpdateSettingsRegeneratesClasses(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	mustSet(t, s, "3-3", 0, 0, "math", []string{"t1"}, false)
	settings := domain.Settings{Periods: 7, ClassConfig: map[int]int{1: 2, 2: 1}}
	res := s.UpdateSettings(ctx, settings)
	if !res.Success || res.Count != 3 {
		t.Fatalf("update settings: %+v", res)
	}
	classes := s.Classes()
	if len(classes) != 3 || classes[0].ID != "1-1" || classes[2].ID != "2-1" {
		t.Fatalf("unexpected classes %+v", classes)
	}
	if len(s.GetSlot("3-3", 0, 0)) != 1 {
		t.Fatalf("lessons of removed classes must be kept")
	}
	if !s.SetSlot(ctx, "1-1", 0, 6, "math", []string{"t1"}, nil, false) {
		t.Fatalf("seventh period should now be placeable")
	}
	if res := s.UpdateSettings(ctx, domain.Settings{ClassConfig: map[int]int{0: 1}}); res.Success {
		t.Fatalf("grade 0 must be refused")
	}
	if res := s.UpdateSettings(ctx, domain.Settings{UnavailableSlots: map[string][]string{"t1": {"x"}}}); res.Success {
		t.Fatalf("malformed unavailable key must be refused")
	}
}

func TestSetUnavailable(t *testing.T) {
	s, kv, _ := newTestStore(t)
	ctx := context.Background()
	if res := s.SetUnavailable(ctx, "t1", []string{"0-1", "0-1", "4-5"}); !res.Success || res.Count != 2 {
		t.Fatalf("set unavailable: %+v", res)
	}
	if res := s.SetUnavailable(ctx, "t1", []string{"0-6"}); res.Success {
		t.Fatalf("slot outside the grid must be refused")
	}
	if res := s.SetUnavailable(ctx, "nobody", nil); res.Success {
		t.Fatalf("unknown teacher must be refused")
	}
	if res := s.SetUnavailable(ctx, "t1", nil); !res.Success {
		t.Fatalf("clearing unavailability: %+v", res)
	}
	if _, ok := s.state.Settings.UnavailableSlots["t1"]; ok {
		t.Fatalf("empty list should remove the teacher entry")
	}
	if kv.saves[domain.BucketSettings] != 2 {
		t.Fatalf("expected two settings saves, got %d", kv.saves[domain.BucketSettings])
	}
}

func TestRegistryReportsPersistFailure(t *testing.T) {
	s, kv, hook := newTestStore(t)
	kv.failSave = errSaveRejected
	res := s.AddCategory(context.Background(), domain.Category{ID: "c9", Name: "Extra"})
	if res.Success || !strings.Contains(res.Message, "saving failed") {
		t.Fatalf("expected persist failure, got %+v", res)
	}
	if len(s.state.Categories) != 2 {
		t.Fatalf("in-memory state keeps the change")
	}
	if entry := hook.LastEntry(); entry == nil || entry.Data["bucket"] != domain.BucketCategories {
		t.Fatalf("persist failure should be logged with the bucket")
	}
}
