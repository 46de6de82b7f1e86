package domain

import (
	"context"
	"fmt"
	"math"
)

// Level captures how serious a validation issue is.
type Level string

// Validation levels, most severe first.
const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// ThresholdOff disables a threshold rule: no schedule can ever reach it.
const ThresholdOff = math.MaxInt32

// Issue reports one finding of a validation rule.
type Issue struct {
	Rule     string     `json:"rule"`
	Level    Level      `json:"level"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity,omitempty"`
	EntityID string     `json:"entityId,omitempty"`
	Slots    []SlotRef  `json:"slots,omitempty"`
}

// ScheduleView provides read-only access to the registry and timetable for
// detectors and rules. Implementations return copies.
type ScheduleView interface {
	Periods() int
	Classes() []ClassSection
	// ScheduledClassIDs returns every class id the grid is scanned over:
	// generated classes plus NonClassDutyID.
	ScheduledClassIDs() []string
	Teachers() []Teacher
	FindTeacher(id string) (Teacher, bool)
	Subjects() []Subject
	FindSubject(id string) (Subject, bool)
	SpecialClassrooms() []SpecialClassroom
	Assignments() []Assignment
	Meetings() []Meeting
	UnavailableSlots() map[string][]string
	ElectiveGroups() []ElectiveGroup
	LinkedGroups() []LinkedGroup
	Slot(classID string, day, period int) []Lesson
}

// Rule is one independent, stateless check over the whole schedule.
type Rule interface {
	ID() string
	Name() string
	Level() Level
	Evaluate(ctx context.Context, view ScheduleView) ([]Issue, error)
}

// ThresholdRule is a rule parameterized by a single count.
type ThresholdRule interface {
	Rule
	Threshold() int
	SetThreshold(n int)
}

// ValidationSettings holds the configurable thresholds of the standard rules.
// A value of ThresholdOff disables the corresponding rule.
type ValidationSettings struct {
	TeacherConsecutive     int `json:"teacherConsecutive"`
	ClassConsecutive       int `json:"classConsecutive"`
	SameSubjectConsecutive int `json:"sameSubjectConsecutive"`
	TeacherFreePeriods     int `json:"teacherFreePeriods"`
}

// DefaultValidationSettings returns the standard thresholds.
func DefaultValidationSettings() ValidationSettings {
	return ValidationSettings{
		TeacherConsecutive:     4,
		ClassConsecutive:       ThresholdOff,
		SameSubjectConsecutive: 3,
		TeacherFreePeriods:     4,
	}
}

// Normalize replaces non-positive thresholds with defaults.
func (v ValidationSettings) Normalize() ValidationSettings {
	def := DefaultValidationSettings()
	if v.TeacherConsecutive <= 0 {
		v.TeacherConsecutive = def.TeacherConsecutive
	}
	if v.ClassConsecutive <= 0 {
		v.ClassConsecutive = def.ClassConsecutive
	}
	if v.SameSubjectConsecutive <= 0 {
		v.SameSubjectConsecutive = def.SameSubjectConsecutive
	}
	if v.TeacherFreePeriods <= 0 {
		v.TeacherFreePeriods = def.TeacherFreePeriods
	}
	return v
}

// Report buckets issues by level.
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Infos    []Issue `json:"infos"`
}

// Add files the issue under its level.
func (r *Report) Add(issue Issue) {
	switch issue.Level {
	case LevelError:
		r.Errors = append(r.Errors, issue)
	case LevelWarning:
		r.Warnings = append(r.Warnings, issue)
	default:
		r.Infos = append(r.Infos, issue)
	}
}

// HasErrors reports whether any error-level issue was found.
func (r Report) HasErrors() bool { return len(r.Errors) > 0 }

// Count returns the number of issues at the level.
func (r Report) Count(level Level) int {
	switch level {
	case LevelError:
		return len(r.Errors)
	case LevelWarning:
		return len(r.Warnings)
	default:
		return len(r.Infos)
	}
}

// Summary reports counts per level.
func (r Report) Summary() string {
	return fmt.Sprintf("errors: %d, warnings: %d, info: %d", len(r.Errors), len(r.Warnings), len(r.Infos))
}
