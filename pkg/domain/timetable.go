package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Days is the number of school days in a week (Monday..Friday).
const Days = 5

// Lesson is one placement of a subject. More than one teacher means team teaching.
type Lesson struct {
	SubjectID  string   `json:"subjectId"`
	TeacherIDs []string `json:"teacherIds"`
	RoomIDs    []string `json:"specialClassroomIds,omitempty"`
}

// Clone deep-copies the lesson.
func (l Lesson) Clone() Lesson {
	cp := l
	cp.TeacherIDs = append([]string(nil), l.TeacherIDs...)
	if l.RoomIDs != nil {
		cp.RoomIDs = append([]string(nil), l.RoomIDs...)
	}
	return cp
}

// HasTeacher reports whether the teacher is on the lesson.
func (l Lesson) HasTeacher(teacherID string) bool {
	return containsString(l.TeacherIDs, teacherID)
}

// HasRoom reports whether the lesson books the room.
func (l Lesson) HasRoom(roomID string) bool {
	return containsString(l.RoomIDs, roomID)
}

// IsTeamTeaching reports whether the lesson has more than one teacher.
func (l Lesson) IsTeamTeaching() bool {
	return len(l.TeacherIDs) > 1
}

// CloneLessons deep-copies a lesson list, never returning nil.
func CloneLessons(in []Lesson) []Lesson {
	out := make([]Lesson, 0, len(in))
	for _, l := range in {
		out = append(out, l.Clone())
	}
	return out
}

// SlotKey addresses a cell within one class's week. Day is 0 (Monday) to 4
// (Friday); Period is 0-based.
type SlotKey struct {
	Day    int `json:"day"`
	Period int `json:"period"`
}

// String encodes the key as "<day>-<period>".
func (k SlotKey) String() string {
	return strconv.Itoa(k.Day) + "-" + strconv.Itoa(k.Period)
}

// Valid reports whether the key lies inside a grid with the given periods per day.
func (k SlotKey) Valid(periods int) bool {
	return k.Day >= 0 && k.Day < Days && k.Period >= 0 && k.Period < periods
}

// ParseSlotKey decodes a "<day>-<period>" key.
func ParseSlotKey(raw string) (SlotKey, error) {
	dayStr, periodStr, ok := strings.Cut(raw, "-")
	if !ok {
		return SlotKey{}, fmt.Errorf("slot key %q: missing separator", raw)
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return SlotKey{}, fmt.Errorf("slot key %q: day: %w", raw, err)
	}
	period, err := strconv.Atoi(periodStr)
	if err != nil {
		return SlotKey{}, fmt.Errorf("slot key %q: period: %w", raw, err)
	}
	if day < 0 || period < 0 {
		return SlotKey{}, fmt.Errorf("slot key %q: negative component", raw)
	}
	return SlotKey{Day: day, Period: period}, nil
}

// SlotRef addresses a slot across the whole timetable.
type SlotRef struct {
	ClassID string `json:"classId"`
	Day     int    `json:"day"`
	Period  int    `json:"period"`
}

// Key returns the class-local slot key.
func (r SlotRef) Key() SlotKey { return SlotKey{Day: r.Day, Period: r.Period} }

// ClassTimetable maps "<day>-<period>" keys to the lessons of one class.
type ClassTimetable map[string][]Lesson

// Timetable maps class id to that class's slots.
type Timetable map[string]ClassTimetable

// Clone deep-copies the timetable.
func (t Timetable) Clone() Timetable {
	out := make(Timetable, len(t))
	for classID, slots := range t {
		cs := make(ClassTimetable, len(slots))
		for key, lessons := range slots {
			cs[key] = CloneLessons(lessons)
		}
		out[classID] = cs
	}
	return out
}

// LinkedGroup is a user-declared set of slots that move and delete together.
// Membership is direct; overlapping groups are never merged.
type LinkedGroup struct {
	ID    string    `json:"id"`
	Slots []SlotRef `json:"slots"`
}

// Contains reports whether the group directly references the slot.
func (g LinkedGroup) Contains(ref SlotRef) bool {
	for _, s := range g.Slots {
		if s == ref {
			return true
		}
	}
	return false
}

// Clone deep-copies the group.
func (g LinkedGroup) Clone() LinkedGroup {
	cp := g
	cp.Slots = append([]SlotRef(nil), g.Slots...)
	return cp
}

// CloneLinkedGroups deep-copies a group list, never returning nil.
func CloneLinkedGroups(in []LinkedGroup) []LinkedGroup {
	out := make([]LinkedGroup, 0, len(in))
	for _, g := range in {
		out = append(out, g.Clone())
	}
	return out
}

// ElectiveGroup declares subjects that may share a class-time without conflict.
type ElectiveGroup struct {
	ID         string   `json:"id"`
	Name       string   `json:"name" validate:"required"`
	SubjectIDs []string `json:"subjectIds" validate:"min=1"`
}

// HasSubject reports whether the subject belongs to the group.
func (g ElectiveGroup) HasSubject(subjectID string) bool {
	return containsString(g.SubjectIDs, subjectID)
}

// MaxParkingItems caps each teacher's parking list.
const MaxParkingItems = 20

// ParkingItem is a lesson taken off the grid, remembering where it came from.
type ParkingItem struct {
	ID             string    `json:"id"`
	ClassID        string    `json:"classId"`
	SubjectID      string    `json:"subjectId"`
	TeacherIDs     []string  `json:"teacherIds"`
	RoomIDs        []string  `json:"specialClassroomIds,omitempty"`
	OriginalDay    int       `json:"originalDay"`
	OriginalPeriod int       `json:"originalPeriod"`
	ParkedAt       time.Time `json:"timestamp"`
}

// Lesson rebuilds the parked lesson.
func (p ParkingItem) Lesson() Lesson {
	return Lesson{SubjectID: p.SubjectID, TeacherIDs: p.TeacherIDs, RoomIDs: p.RoomIDs}.Clone()
}

// Origin returns the slot the item was parked from.
func (p ParkingItem) Origin() SlotKey {
	return SlotKey{Day: p.OriginalDay, Period: p.OriginalPeriod}
}

// ParkingArea maps teacher id to that teacher's parked items, oldest first.
type ParkingArea map[string][]ParkingItem

// Clone deep-copies the parking area.
func (p ParkingArea) Clone() ParkingArea {
	out := make(ParkingArea, len(p))
	for teacherID, items := range p {
		cp := make([]ParkingItem, 0, len(items))
		for _, it := range items {
			c := it
			c.TeacherIDs = append([]string(nil), it.TeacherIDs...)
			if it.RoomIDs != nil {
				c.RoomIDs = append([]string(nil), it.RoomIDs...)
			}
			cp = append(cp, c)
		}
		out[teacherID] = cp
	}
	return out
}
