package core

import (
	"sort"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/compat"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// State is the whole in-memory document set owned by a Store.
type State struct {
	Teachers          []domain.Teacher          `json:"teachers"`
	Categories        []domain.Category         `json:"categories"`
	Subjects          []domain.Subject          `json:"subjects"`
	SpecialClassrooms []domain.SpecialClassroom `json:"specialClassrooms"`
	ElectiveGroups    []domain.ElectiveGroup    `json:"electiveGroups"`
	Assignments       []domain.Assignment       `json:"assignments"`
	Meetings          []domain.Meeting          `json:"meetings"`
	Timetable         domain.Timetable          `json:"timetable"`
	Settings          domain.Settings           `json:"settings"`
	LinkedGroups      []domain.LinkedGroup      `json:"linkedGroups"`
	ParkingArea       domain.ParkingArea        `json:"parkingArea"`

	classes []domain.ClassSection
}

// NewState returns an empty state with default settings.
func NewState() State {
	s := State{
		Timetable:   domain.Timetable{},
		Settings:    domain.DefaultSettings(),
		ParkingArea: domain.ParkingArea{},
	}
	s.regenerateClasses()
	return s
}

func (s *State) regenerateClasses() {
	s.classes = domain.GenerateClasses(s.Settings.ClassConfig)
}

// KnownIDs returns the class and teacher ids used to migrate legacy
// timetable documents against this state.
func (s State) KnownIDs() compat.Known {
	known := compat.Known{ClassIDs: make(map[string]bool), TeacherIDs: make(map[string]bool)}
	for _, c := range domain.GenerateClasses(s.Settings.ClassConfig) {
		known.ClassIDs[c.ID] = true
	}
	known.ClassIDs[domain.NonClassDutyID] = true
	for _, t := range s.Teachers {
		known.TeacherIDs[t.ID] = true
	}
	return known
}

// normalize repairs nil collections after decoding or construction by hand.
func (s *State) normalize() {
	if s.Timetable == nil {
		s.Timetable = domain.Timetable{}
	}
	if s.ParkingArea == nil {
		s.ParkingArea = domain.ParkingArea{}
	}
	s.Settings = s.Settings.Normalize()
	s.regenerateClasses()
}

func (s State) clone() State {
	cp := State{
		Teachers:          make([]domain.Teacher, 0, len(s.Teachers)),
		Categories:        append([]domain.Category{}, s.Categories...),
		Subjects:          append([]domain.Subject{}, s.Subjects...),
		SpecialClassrooms: append([]domain.SpecialClassroom{}, s.SpecialClassrooms...),
		ElectiveGroups:    make([]domain.ElectiveGroup, 0, len(s.ElectiveGroups)),
		Assignments:       append([]domain.Assignment{}, s.Assignments...),
		Meetings:          make([]domain.Meeting, 0, len(s.Meetings)),
		Timetable:         s.Timetable.Clone(),
		Settings:          s.Settings.Clone(),
		LinkedGroups:      domain.CloneLinkedGroups(s.LinkedGroups),
		ParkingArea:       s.ParkingArea.Clone(),
		classes:           append([]domain.ClassSection(nil), s.classes...),
	}
	for _, t := range s.Teachers {
		t.CategoryIDs = append([]string(nil), t.CategoryIDs...)
		cp.Teachers = append(cp.Teachers, t)
	}
	for _, g := range s.ElectiveGroups {
		g.SubjectIDs = append([]string(nil), g.SubjectIDs...)
		cp.ElectiveGroups = append(cp.ElectiveGroups, g)
	}
	for _, m := range s.Meetings {
		m.TeacherIDs = append([]string(nil), m.TeacherIDs...)
		m.Schedule = append([]domain.MeetingSlot(nil), m.Schedule...)
		cp.Meetings = append(cp.Meetings, m)
	}
	return cp
}

// NewView wraps a state in a read-only ScheduleView. The state is cloned so
// later mutations of st do not leak into the view.
func NewView(st State) domain.ScheduleView {
	cp := st.clone()
	cp.normalize()
	return stateView{state: &cp}
}

// stateView reads directly from the live state; callers must not retain it
// across mutations.
type stateView struct {
	state *State
}

var _ domain.ScheduleView = stateView{}

func (v stateView) Periods() int { return v.state.Settings.Periods }

func (v stateView) Classes() []domain.ClassSection {
	return append([]domain.ClassSection(nil), v.state.classes...)
}

func (v stateView) ScheduledClassIDs() []string {
	out := make([]string, 0, len(v.state.classes)+1)
	seen := make(map[string]struct{}, len(v.state.classes)+1)
	for _, c := range v.state.classes {
		out = append(out, c.ID)
		seen[c.ID] = struct{}{}
	}
	out = append(out, domain.NonClassDutyID)
	seen[domain.NonClassDutyID] = struct{}{}
	// classes removed from the config may still carry lessons
	var extra []string
	for classID := range v.state.Timetable {
		if _, ok := seen[classID]; !ok {
			extra = append(extra, classID)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func (v stateView) Teachers() []domain.Teacher {
	out := make([]domain.Teacher, 0, len(v.state.Teachers))
	for _, t := range v.state.Teachers {
		t.CategoryIDs = append([]string(nil), t.CategoryIDs...)
		out = append(out, t)
	}
	return out
}

func (v stateView) FindTeacher(id string) (domain.Teacher, bool) {
	for _, t := range v.state.Teachers {
		if t.ID == id {
			t.CategoryIDs = append([]string(nil), t.CategoryIDs...)
			return t, true
		}
	}
	return domain.Teacher{}, false
}

func (v stateView) Subjects() []domain.Subject {
	return append([]domain.Subject(nil), v.state.Subjects...)
}

func (v stateView) FindSubject(id string) (domain.Subject, bool) {
	for _, s := range v.state.Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Subject{}, false
}

func (v stateView) SpecialClassrooms() []domain.SpecialClassroom {
	return append([]domain.SpecialClassroom(nil), v.state.SpecialClassrooms...)
}

func (v stateView) Assignments() []domain.Assignment {
	return append([]domain.Assignment(nil), v.state.Assignments...)
}

func (v stateView) Meetings() []domain.Meeting {
	out := make([]domain.Meeting, 0, len(v.state.Meetings))
	for _, m := range v.state.Meetings {
		m.TeacherIDs = append([]string(nil), m.TeacherIDs...)
		m.Schedule = append([]domain.MeetingSlot(nil), m.Schedule...)
		out = append(out, m)
	}
	return out
}

func (v stateView) UnavailableSlots() map[string][]string {
	return v.state.Settings.Clone().UnavailableSlots
}

func (v stateView) ElectiveGroups() []domain.ElectiveGroup {
	out := make([]domain.ElectiveGroup, 0, len(v.state.ElectiveGroups))
	for _, g := range v.state.ElectiveGroups {
		g.SubjectIDs = append([]string(nil), g.SubjectIDs...)
		out = append(out, g)
	}
	return out
}

func (v stateView) LinkedGroups() []domain.LinkedGroup {
	return domain.CloneLinkedGroups(v.state.LinkedGroups)
}

func (v stateView) Slot(classID string, day, period int) []domain.Lesson {
	slots, ok := v.state.Timetable[classID]
	if !ok {
		return []domain.Lesson{}
	}
	return domain.CloneLessons(slots[domain.SlotKey{Day: day, Period: period}.String()])
}

// electiveGroupOf returns the first elective group containing every subject.
func electiveGroupOf(groups []domain.ElectiveGroup, subjectIDs ...string) (string, bool) {
	if len(subjectIDs) == 0 {
		return "", false
	}
	for _, g := range groups {
		all := true
		for _, id := range subjectIDs {
			if !g.HasSubject(id) {
				all = false
				break
			}
		}
		if all {
			return g.ID, true
		}
	}
	return "", false
}

func containsString(values []string, id string) bool {
	for _, v := range values {
		if v == id {
			return true
		}
	}
	return false
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func removeString(values []string, id string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
