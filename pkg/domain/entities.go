// Package domain defines the reference data, timetable value types, and
// rule evaluation primitives shared by the scheduling core and its adapters.
package domain

import (
	"fmt"
	"sort"
)

// EntityType identifies the kind of record an Issue or change refers to.
type EntityType string

// Supported entity type identifiers.
const (
	EntityTeacher          EntityType = "teacher"
	EntityCategory         EntityType = "category"
	EntitySubject          EntityType = "subject"
	EntityClass            EntityType = "class"
	EntitySpecialClassroom EntityType = "special_classroom"
	EntityMeeting          EntityType = "meeting"
	EntityAssignment       EntityType = "assignment"
	EntityElectiveGroup    EntityType = "elective_group"
	EntityLinkedGroup      EntityType = "linked_group"
	EntityParkingItem      EntityType = "parking_item"
	// EntitySchedule is used by issues that describe the timetable as a whole.
	EntitySchedule EntityType = "schedule"
)

// NonClassDutyID is the reserved class id holding non-teaching duties. It is
// not a real class section and is never produced by GenerateClasses.
const NonClassDutyID = "non_class_duty"

// Teacher is a member of staff who can be placed on lessons.
type Teacher struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	CategoryIDs []string `json:"categoryIds,omitempty"`
	// Separator is a display hint for list views.
	Separator bool `json:"separator,omitempty"`
}

// Category groups subjects and teachers.
type Category struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Color string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// Subject is a teachable unit owned by a category.
type Subject struct {
	ID         string `json:"id" validate:"required"`
	CategoryID string `json:"categoryId" validate:"required"`
	Name       string `json:"name" validate:"required"`
	ShortName  string `json:"shortName,omitempty" validate:"omitempty,max=8"`
	// Hidden subjects stay assignable but are skipped by overviews and by
	// team-teaching/elective classification.
	Hidden bool `json:"hidden,omitempty"`
}

// ClassSection is a generated class (homeroom) within a grade.
type ClassSection struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade int    `json:"grade"`
}

// SpecialClassroom is a bookable room such as a lab or gym.
type SpecialClassroom struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	ShortName string `json:"shortName,omitempty"`
}

// Assignment declares weekly demand: teacher teaches subject to class for Hours
// lessons a week. The (TeacherID, SubjectID, ClassID) triple is unique.
type Assignment struct {
	TeacherID string `json:"teacherId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
	ClassID   string `json:"classId" validate:"required"`
	Hours     int    `json:"hours" validate:"min=0,max=40"`
}

// Key returns the identifying triple of the assignment.
func (a Assignment) Key() AssignmentKey {
	return AssignmentKey{TeacherID: a.TeacherID, SubjectID: a.SubjectID, ClassID: a.ClassID}
}

// AssignmentKey identifies an assignment.
type AssignmentKey struct {
	TeacherID string
	SubjectID string
	ClassID   string
}

// MeetingSlot is one occurrence of a meeting. Period is 1-based.
type MeetingSlot struct {
	Day    int `json:"day" validate:"min=0,max=4"`
	Period int `json:"period" validate:"min=1"`
}

// Key converts the 1-based meeting period into a 0-based slot key.
func (m MeetingSlot) Key() SlotKey {
	return SlotKey{Day: m.Day, Period: m.Period - 1}
}

// Meeting blocks teacher availability advisorially.
type Meeting struct {
	ID         string        `json:"id"`
	Name       string        `json:"name" validate:"required"`
	TeacherIDs []string      `json:"teacherIds"`
	Schedule   []MeetingSlot `json:"schedule" validate:"dive"`
}

// HasTeacher reports whether the teacher attends the meeting.
func (m Meeting) HasTeacher(teacherID string) bool {
	return containsString(m.TeacherIDs, teacherID)
}

// Settings carries timetable shape and advisory availability.
type Settings struct {
	// Periods is the number of periods per day.
	Periods int `json:"periods"`
	// ClassConfig maps grade to number of classes in that grade.
	ClassConfig map[int]int `json:"classConfig"`
	// UnavailableSlots maps teacher id to "day-period" keys.
	UnavailableSlots map[string][]string `json:"unavailableSlots"`
	Validation       ValidationSettings  `json:"validation"`
}

// DefaultPeriods is used when settings carry no positive period count.
const DefaultPeriods = 6

// DefaultSettings returns the settings used for a fresh store.
func DefaultSettings() Settings {
	return Settings{
		Periods:          DefaultPeriods,
		ClassConfig:      map[int]int{1: 3, 2: 3, 3: 3},
		UnavailableSlots: map[string][]string{},
		Validation:       DefaultValidationSettings(),
	}
}

// Normalize fills zero values with defaults.
func (s Settings) Normalize() Settings {
	if s.Periods <= 0 {
		s.Periods = DefaultPeriods
	}
	if s.ClassConfig == nil {
		s.ClassConfig = map[int]int{}
	}
	if s.UnavailableSlots == nil {
		s.UnavailableSlots = map[string][]string{}
	}
	s.Validation = s.Validation.Normalize()
	return s
}

// Clone deep-copies the settings.
func (s Settings) Clone() Settings {
	cp := s
	cp.ClassConfig = make(map[int]int, len(s.ClassConfig))
	for k, v := range s.ClassConfig {
		cp.ClassConfig[k] = v
	}
	cp.UnavailableSlots = make(map[string][]string, len(s.UnavailableSlots))
	for k, v := range s.UnavailableSlots {
		cp.UnavailableSlots[k] = append([]string(nil), v...)
	}
	return cp
}

// GenerateClasses derives the class sections from per-grade class counts.
// Ids take the form "grade-index" with a 1-based index.
func GenerateClasses(classConfig map[int]int) []ClassSection {
	grades := make([]int, 0, len(classConfig))
	for grade := range classConfig {
		grades = append(grades, grade)
	}
	sort.Ints(grades)
	var out []ClassSection
	for _, grade := range grades {
		for i := 1; i <= classConfig[grade]; i++ {
			id := fmt.Sprintf("%d-%d", grade, i)
			out = append(out, ClassSection{ID: id, Name: id, Grade: grade})
		}
	}
	return out
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
