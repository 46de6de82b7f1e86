// Package compat migrates legacy timetable encodings into the canonical
// class-keyed, list-of-lesson shape. It runs once at load time; steady-state
// code only ever sees domain.Timetable.
package compat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// Known carries the ids used to tell class-keyed entries from teacher-keyed ones.
type Known struct {
	ClassIDs   map[string]bool
	TeacherIDs map[string]bool
}

// legacyLesson accepts both the current and the older single-teacher field names.
type legacyLesson struct {
	SubjectID  string   `json:"subjectId"`
	TeacherIDs []string `json:"teacherIds"`
	TeacherID  string   `json:"teacherId"`
	RoomIDs    []string `json:"specialClassroomIds"`
	RoomID     string   `json:"specialClassroomId"`
	// ClassID is only present in teacher-keyed documents.
	ClassID string `json:"classId"`
}

func (l legacyLesson) lesson() domain.Lesson {
	out := domain.Lesson{SubjectID: l.SubjectID}
	out.TeacherIDs = appendUnique(out.TeacherIDs, l.TeacherIDs...)
	if l.TeacherID != "" {
		out.TeacherIDs = appendUnique(out.TeacherIDs, l.TeacherID)
	}
	rooms := appendUnique(nil, l.RoomIDs...)
	if l.RoomID != "" {
		rooms = appendUnique(rooms, l.RoomID)
	}
	if len(rooms) > 0 {
		out.RoomIDs = rooms
	}
	return out
}

// DecodeTimetable parses a stored timetable document. Slots holding a single
// object are wrapped into a list, teacher-keyed entries are re-keyed by
// class, and lessons without a subject or teachers are dropped. Notes
// describe every migration applied.
func DecodeTimetable(raw []byte, known Known) (domain.Timetable, []string, error) {
	var top map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, nil, fmt.Errorf("timetable document: %w", err)
	}
	out := domain.Timetable{}
	var notes []string
	wrapped, dropped := 0, 0

	ownerIDs := make([]string, 0, len(top))
	for id := range top {
		ownerIDs = append(ownerIDs, id)
	}
	sort.Strings(ownerIDs)

	for _, ownerID := range ownerIDs {
		teacherKeyed := !known.ClassIDs[ownerID] && known.TeacherIDs[ownerID]
		if teacherKeyed {
			notes = append(notes, fmt.Sprintf("re-keyed teacher entry %s by class", ownerID))
		}
		slotKeys := make([]string, 0, len(top[ownerID]))
		for k := range top[ownerID] {
			slotKeys = append(slotKeys, k)
		}
		sort.Strings(slotKeys)
		for _, rawKey := range slotKeys {
			key, err := domain.ParseSlotKey(rawKey)
			if err != nil {
				notes = append(notes, fmt.Sprintf("skipped %s slot %q: %v", ownerID, rawKey, err))
				continue
			}
			lessons, single, err := decodeSlot(top[ownerID][rawKey])
			if err != nil {
				return nil, nil, fmt.Errorf("timetable %s %s: %w", ownerID, rawKey, err)
			}
			if single {
				wrapped++
			}
			for _, ll := range lessons {
				classID := ownerID
				if teacherKeyed {
					if ll.ClassID == "" {
						dropped++
						continue
					}
					classID = ll.ClassID
					ll.TeacherIDs = appendUnique(ll.TeacherIDs, ownerID)
				}
				lesson := ll.lesson()
				if lesson.SubjectID == "" || len(lesson.TeacherIDs) == 0 {
					dropped++
					continue
				}
				merge(out, classID, key, lesson)
			}
		}
	}
	if wrapped > 0 {
		notes = append(notes, fmt.Sprintf("wrapped %d single-object slots", wrapped))
	}
	if dropped > 0 {
		notes = append(notes, fmt.Sprintf("dropped %d incomplete lessons", dropped))
	}
	return out, notes, nil
}

func decodeSlot(raw json.RawMessage) ([]legacyLesson, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil, false, nil
	case trimmed[0] == '{':
		var one legacyLesson
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, false, err
		}
		return []legacyLesson{one}, true, nil
	}
	var list []*legacyLesson
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, false, err
	}
	out := make([]legacyLesson, 0, len(list))
	for _, l := range list {
		if l != nil {
			out = append(out, *l)
		}
	}
	return out, false, nil
}

// merge adds the lesson to the slot, folding same-subject lessons together.
func merge(tt domain.Timetable, classID string, key domain.SlotKey, lesson domain.Lesson) {
	slots, ok := tt[classID]
	if !ok {
		slots = domain.ClassTimetable{}
		tt[classID] = slots
	}
	k := key.String()
	for i, existing := range slots[k] {
		if existing.SubjectID == lesson.SubjectID {
			slots[k][i].TeacherIDs = appendUnique(existing.TeacherIDs, lesson.TeacherIDs...)
			if len(lesson.RoomIDs) > 0 {
				slots[k][i].RoomIDs = appendUnique(existing.RoomIDs, lesson.RoomIDs...)
			}
			return
		}
	}
	slots[k] = append(slots[k], lesson)
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if existing == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
