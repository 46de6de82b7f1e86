package core

import (
	"fmt"
	"sort"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// Conflict is one teacher booked into two classes at the same time with
// lessons that are neither joint nor electively compatible.
type Conflict struct {
	TeacherID string `json:"teacherId"`
	Day       int    `json:"day"`
	Period    int    `json:"period"`
	// ClassIDs and SubjectIDs are ordered by class id.
	ClassIDs   [2]string `json:"classIds"`
	SubjectIDs [2]string `json:"subjectIds"`
}

// Message renders the conflict for reports.
func (c Conflict) Message(teacherName string) string {
	if teacherName == "" {
		teacherName = c.TeacherID
	}
	return fmt.Sprintf("teacher %s is double-booked on %s period %d (%s, %s)",
		teacherName, dayName(c.Day), c.Period+1, c.ClassIDs[0], c.ClassIDs[1])
}

type conflictKey struct {
	teacherID string
	day       int
	period    int
	classA    string
	classB    string
}

// compatible reports whether two lessons in different classes may share a
// teacher at the same time.
func compatible(groups []domain.ElectiveGroup, a, b domain.Lesson) bool {
	if a.SubjectID == b.SubjectID {
		return true
	}
	_, ok := electiveGroupOf(groups, a.SubjectID, b.SubjectID)
	return ok
}

// CheckConflicts scans the grid for teacher double-bookings across classes.
// Each (teacher, day, period, class pair) is reported once.
func CheckConflicts(view domain.ScheduleView) []Conflict {
	classIDs := view.ScheduledClassIDs()
	groups := view.ElectiveGroups()
	periods := view.Periods()
	seen := make(map[conflictKey]struct{})
	var out []Conflict
	for day := 0; day < domain.Days; day++ {
		for period := 0; period < periods; period++ {
			lessons := make(map[string][]domain.Lesson, len(classIDs))
			for _, classID := range classIDs {
				if ls := view.Slot(classID, day, period); len(ls) > 0 {
					lessons[classID] = ls
				}
			}
			for _, classID := range classIDs {
				for _, lesson := range lessons[classID] {
					for _, teacherID := range lesson.TeacherIDs {
						for _, otherID := range classIDs {
							if otherID == classID {
								continue
							}
							for _, other := range lessons[otherID] {
								if !other.HasTeacher(teacherID) || compatible(groups, lesson, other) {
									continue
								}
								c := newConflict(teacherID, day, period, classID, lesson.SubjectID, otherID, other.SubjectID)
								key := conflictKey{teacherID, day, period, c.ClassIDs[0], c.ClassIDs[1]}
								if _, dup := seen[key]; dup {
									continue
								}
								seen[key] = struct{}{}
								out = append(out, c)
							}
						}
					}
				}
			}
		}
	}
	return out
}

func newConflict(teacherID string, day, period int, classA, subjectA, classB, subjectB string) Conflict {
	if classB < classA {
		classA, classB = classB, classA
		subjectA, subjectB = subjectB, subjectA
	}
	return Conflict{
		TeacherID:  teacherID,
		Day:        day,
		Period:     period,
		ClassIDs:   [2]string{classA, classB},
		SubjectIDs: [2]string{subjectA, subjectB},
	}
}

// TTPattern classifies an advisory pre-placement check.
type TTPattern string

// Pre-placement patterns. TTPatternNone means the placement is unremarkable.
const (
	TTPatternNone         TTPattern = ""
	TTPatternTeamTeaching TTPattern = "team_teaching"
	TTPatternJointLesson  TTPattern = "joint_lesson"
)

// TTCheck is the advisory result of CheckTTConflict. It never blocks a placement.
type TTCheck struct {
	Pattern TTPattern `json:"pattern"`
	// TeacherIDs are the teachers already on the class-slot for team teaching.
	TeacherIDs []string `json:"teacherIds,omitempty"`
	// ClassIDs are the other classes already holding the lesson for a joint lesson.
	ClassIDs []string `json:"classIds,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// CheckTTConflict reports whether placing teacher+subject at the class-slot
// would form team teaching (another teacher already teaches the subject there)
// or a joint lesson (the teacher already teaches the subject elsewhere at the
// same time). Team teaching takes precedence.
func CheckTTConflict(view domain.ScheduleView, classID string, day, period int, teacherID, subjectID string) TTCheck {
	for _, l := range view.Slot(classID, day, period) {
		if l.SubjectID != subjectID || l.HasTeacher(teacherID) {
			continue
		}
		return TTCheck{
			Pattern:    TTPatternTeamTeaching,
			TeacherIDs: append([]string(nil), l.TeacherIDs...),
			Message:    fmt.Sprintf("%s is already taught in %s by %v; add as team teaching", subjectID, classID, l.TeacherIDs),
		}
	}
	var classes []string
	for _, otherID := range view.ScheduledClassIDs() {
		if otherID == classID {
			continue
		}
		for _, l := range view.Slot(otherID, day, period) {
			if l.SubjectID == subjectID && l.HasTeacher(teacherID) {
				classes = append(classes, otherID)
				break
			}
		}
	}
	if len(classes) > 0 {
		return TTCheck{
			Pattern:  TTPatternJointLesson,
			ClassIDs: classes,
			Message:  fmt.Sprintf("%s already teaches %s to %v at this time; place as a joint lesson", teacherID, subjectID, classes),
		}
	}
	return TTCheck{Pattern: TTPatternNone}
}

// Booking is one lesson occupying a teacher at a given time.
type Booking struct {
	ClassID string        `json:"classId"`
	Lesson  domain.Lesson `json:"lesson"`
}

// TeacherBusyAt lists every lesson the teacher is on at day/period, ordered by class.
func TeacherBusyAt(view domain.ScheduleView, teacherID string, day, period int) []Booking {
	var out []Booking
	for _, classID := range view.ScheduledClassIDs() {
		for _, l := range view.Slot(classID, day, period) {
			if l.HasTeacher(teacherID) {
				out = append(out, Booking{ClassID: classID, Lesson: l})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ClassID < out[j].ClassID })
	return out
}

// CheckConflicts runs the conflict scan over the store's current state.
func (s *Store) CheckConflicts() []Conflict { return CheckConflicts(s.View()) }

// CheckTTConflict runs the advisory pre-placement check over the store.
func (s *Store) CheckTTConflict(classID string, day, period int, teacherID, subjectID string) TTCheck {
	return CheckTTConflict(s.View(), classID, day, period, teacherID, subjectID)
}
