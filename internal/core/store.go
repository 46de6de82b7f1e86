package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/compat"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Store is the timetable grid and the registry it refers to. Every mutation
// primitive lives here and writes the affected buckets through to the
// StateStore before returning. Store is not safe for concurrent use; Service
// serializes access.
type Store struct {
	state   State
	history history
	kv      domain.StateStore
	log     logrus.FieldLogger
	clock   Clock
	newID   func() string
}

// NewStore constructs a store writing through to kv. A nil kv disables persistence.
func NewStore(kv domain.StateStore, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		state: NewState(),
		kv:    kv,
		log:   log,
		clock: ClockFunc(func() time.Time { return time.Now().UTC() }),
		newID: uuid.NewString,
	}
}

// SetClock overrides the time source.
func (s *Store) SetClock(c Clock) {
	if c != nil {
		s.clock = c
	}
}

// SetIDGenerator overrides id generation.
func (s *Store) SetIDGenerator(fn func() string) {
	if fn != nil {
		s.newID = fn
	}
}

// View exposes the live state read-only. The view must not be retained
// across mutations.
func (s *Store) View() domain.ScheduleView {
	return stateView{state: &s.state}
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	return s.state.clone()
}

// Replace swaps in a new state and persists every bucket.
func (s *Store) Replace(ctx context.Context, st State) bool {
	s.state = st.clone()
	s.state.normalize()
	return s.persist(ctx, domain.AllBuckets...)
}

// Load hydrates the store from kv. Legacy timetable encodings are migrated
// here, once, by the compat loader.
func (s *Store) Load(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	st := NewState()
	var rawTimetable []byte
	for _, bucket := range domain.AllBuckets {
		payload, ok, err := s.kv.Load(ctx, bucket)
		if err != nil {
			return fmt.Errorf("load %s: %w", bucket, err)
		}
		if !ok || len(payload) == 0 {
			continue
		}
		if bucket == domain.BucketTimetable {
			rawTimetable = payload
			continue
		}
		target := bucketTarget(&st, bucket)
		if target == nil {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	st.normalize()
	if rawTimetable != nil {
		tt, notes, err := compat.DecodeTimetable(rawTimetable, st.KnownIDs())
		if err != nil {
			return fmt.Errorf("decode %s: %w", domain.BucketTimetable, err)
		}
		for _, note := range notes {
			s.log.WithField("bucket", domain.BucketTimetable).Info(note)
		}
		st.Timetable = tt
	}
	s.state = st
	return nil
}

func bucketTarget(st *State, bucket domain.Bucket) any {
	switch bucket {
	case domain.BucketTeachers:
		return &st.Teachers
	case domain.BucketCategories:
		return &st.Categories
	case domain.BucketSubjects:
		return &st.Subjects
	case domain.BucketAssignments:
		return &st.Assignments
	case domain.BucketSpecialClassrooms:
		return &st.SpecialClassrooms
	case domain.BucketMeetings:
		return &st.Meetings
	case domain.BucketTimetable:
		return &st.Timetable
	case domain.BucketSettings:
		return &st.Settings
	case domain.BucketLinkedGroups:
		return &st.LinkedGroups
	case domain.BucketParkingArea:
		return &st.ParkingArea
	case domain.BucketElectiveGroups:
		return &st.ElectiveGroups
	}
	return nil
}

// persist writes the buckets through to kv. Failures are logged and reported
// as false; in-memory state is kept either way.
func (s *Store) persist(ctx context.Context, buckets ...domain.Bucket) bool {
	if s.kv == nil {
		return true
	}
	ok := true
	for _, bucket := range buckets {
		target := bucketTarget(&s.state, bucket)
		if target == nil {
			continue
		}
		data, err := json.Marshal(target)
		if err == nil {
			err = s.kv.Save(ctx, bucket, data)
		}
		if err != nil {
			ok = false
			s.log.WithError(err).WithFields(logrus.Fields{
				"bucket": bucket,
				"driver": s.kv.Driver(),
			}).Error("persist bucket")
		}
	}
	return ok
}

func (s *Store) validKey(day, period int) bool {
	return domain.SlotKey{Day: day, Period: period}.Valid(s.state.Settings.Periods)
}

func (s *Store) lessonsAt(classID string, key domain.SlotKey) []domain.Lesson {
	slots, ok := s.state.Timetable[classID]
	if !ok {
		return nil
	}
	return slots[key.String()]
}

func (s *Store) putLessons(classID string, key domain.SlotKey, lessons []domain.Lesson) {
	slots, ok := s.state.Timetable[classID]
	if len(lessons) == 0 {
		if ok {
			delete(slots, key.String())
			if len(slots) == 0 {
				delete(s.state.Timetable, classID)
			}
		}
		return
	}
	if !ok {
		slots = domain.ClassTimetable{}
		s.state.Timetable[classID] = slots
	}
	slots[key.String()] = lessons
}

// appendLesson accumulates onto the slot. A lesson of the same subject absorbs
// the new teachers and rooms; any other subject is pushed as a new lesson.
func (s *Store) appendLesson(classID string, key domain.SlotKey, lesson domain.Lesson) {
	lessons := domain.CloneLessons(s.lessonsAt(classID, key))
	for i := range lessons {
		if lessons[i].SubjectID != lesson.SubjectID {
			continue
		}
		lessons[i].TeacherIDs = dedupeStrings(append(lessons[i].TeacherIDs, lesson.TeacherIDs...))
		if len(lesson.RoomIDs) > 0 {
			lessons[i].RoomIDs = dedupeStrings(append(lessons[i].RoomIDs, lesson.RoomIDs...))
		}
		s.putLessons(classID, key, lessons)
		return
	}
	s.putLessons(classID, key, append(lessons, lesson.Clone()))
}

// takeLesson removes and returns the first lesson matching the predicate.
func (s *Store) takeLesson(classID string, key domain.SlotKey, match func(domain.Lesson) bool) (domain.Lesson, bool) {
	lessons := s.lessonsAt(classID, key)
	for i, l := range lessons {
		if !match(l) {
			continue
		}
		rest := make([]domain.Lesson, 0, len(lessons)-1)
		rest = append(rest, lessons[:i]...)
		rest = append(rest, lessons[i+1:]...)
		s.putLessons(classID, key, rest)
		return l.Clone(), true
	}
	return domain.Lesson{}, false
}

func bySubject(subjectID string) func(domain.Lesson) bool {
	return func(l domain.Lesson) bool { return l.SubjectID == subjectID }
}

func byTeacher(teacherID string) func(domain.Lesson) bool {
	return func(l domain.Lesson) bool { return l.HasTeacher(teacherID) }
}

// SetSlot places a lesson. With a subject and at least one teacher it either
// replaces the slot (appendMode=false) or accumulates onto it; with neither
// and appendMode=false it clears the slot. The result is false when the
// coordinates are outside the grid or the write-through failed.
func (s *Store) SetSlot(ctx context.Context, classID string, day, period int, subjectID string, teacherIDs, roomIDs []string, appendMode bool) bool {
	if classID == "" || !s.validKey(day, period) {
		return false
	}
	key := domain.SlotKey{Day: day, Period: period}
	teacherIDs = dedupeStrings(teacherIDs)
	switch {
	case subjectID != "" && len(teacherIDs) > 0:
		lesson := domain.Lesson{SubjectID: subjectID, TeacherIDs: teacherIDs}
		if rooms := dedupeStrings(roomIDs); len(rooms) > 0 {
			lesson.RoomIDs = rooms
		}
		if appendMode {
			s.appendLesson(classID, key, lesson)
		} else {
			s.putLessons(classID, key, []domain.Lesson{lesson})
		}
	case !appendMode:
		s.putLessons(classID, key, nil)
	}
	return s.persist(ctx, domain.BucketTimetable)
}

// GetSlot returns a copy of the slot's lessons; never nil.
func (s *Store) GetSlot(classID string, day, period int) []domain.Lesson {
	return domain.CloneLessons(s.lessonsAt(classID, domain.SlotKey{Day: day, Period: period}))
}

// ClearSlot empties the slot.
func (s *Store) ClearSlot(ctx context.Context, classID string, day, period int) bool {
	s.putLessons(classID, domain.SlotKey{Day: day, Period: period}, nil)
	return s.persist(ctx, domain.BucketTimetable)
}

// MoveSingleLesson appends an equivalent lesson at the destination, keeping
// the source's rooms, then removes the subject's lesson from the source. The
// two steps are not atomic. Empty teacherIDs keeps the source's teachers.
func (s *Store) MoveSingleLesson(ctx context.Context, classID string, fromDay, fromPeriod int, subjectID string, teacherIDs []string, toDay, toPeriod int) bool {
	if !s.validKey(toDay, toPeriod) {
		return false
	}
	from := domain.SlotKey{Day: fromDay, Period: fromPeriod}
	to := domain.SlotKey{Day: toDay, Period: toPeriod}
	var source domain.Lesson
	found := false
	for _, l := range s.lessonsAt(classID, from) {
		if l.SubjectID == subjectID {
			source, found = l.Clone(), true
			break
		}
	}
	if !found {
		return false
	}
	if from == to {
		return true
	}
	moved := domain.Lesson{SubjectID: subjectID, TeacherIDs: dedupeStrings(teacherIDs), RoomIDs: source.RoomIDs}
	if len(moved.TeacherIDs) == 0 {
		moved.TeacherIDs = source.TeacherIDs
	}
	s.appendLesson(classID, to, moved)
	s.takeLesson(classID, from, bySubject(subjectID))
	return s.persist(ctx, domain.BucketTimetable)
}

// RemoveLesson deletes the subject's lesson from the slot.
func (s *Store) RemoveLesson(ctx context.Context, classID string, day, period int, subjectID string) bool {
	if _, ok := s.takeLesson(classID, domain.SlotKey{Day: day, Period: period}, bySubject(subjectID)); !ok {
		return false
	}
	return s.persist(ctx, domain.BucketTimetable)
}

// RemoveTeacherFromLesson drops one teacher from the subject's lesson. A
// lesson left without teachers is deleted.
func (s *Store) RemoveTeacherFromLesson(ctx context.Context, classID string, day, period int, subjectID, teacherID string) bool {
	key := domain.SlotKey{Day: day, Period: period}
	lessons := domain.CloneLessons(s.lessonsAt(classID, key))
	for i := range lessons {
		if lessons[i].SubjectID != subjectID || !lessons[i].HasTeacher(teacherID) {
			continue
		}
		lessons[i].TeacherIDs = removeString(lessons[i].TeacherIDs, teacherID)
		if len(lessons[i].TeacherIDs) == 0 {
			lessons = append(lessons[:i], lessons[i+1:]...)
		}
		s.putLessons(classID, key, lessons)
		return s.persist(ctx, domain.BucketTimetable)
	}
	return false
}

// CountPlacedHours counts the class's lessons of subject taught by teacher.
func (s *Store) CountPlacedHours(teacherID, subjectID, classID string) int {
	return countPlaced(s.View(), teacherID, subjectID, classID)
}

func countPlaced(view domain.ScheduleView, teacherID, subjectID, classID string) int {
	count := 0
	periods := view.Periods()
	for day := 0; day < domain.Days; day++ {
		for period := 0; period < periods; period++ {
			for _, l := range view.Slot(classID, day, period) {
				if l.SubjectID == subjectID && l.HasTeacher(teacherID) {
					count++
				}
			}
		}
	}
	return count
}

// stripTeacher removes the teacher from every lesson, deleting lessons left
// without teachers. It reports whether anything changed.
func (s *Store) stripTeacher(teacherID string) bool {
	changed := false
	for classID, slots := range s.state.Timetable {
		for rawKey, lessons := range slots {
			key, err := domain.ParseSlotKey(rawKey)
			if err != nil {
				continue
			}
			var kept []domain.Lesson
			touched := false
			for _, l := range lessons {
				if !l.HasTeacher(teacherID) {
					kept = append(kept, l)
					continue
				}
				touched = true
				l = l.Clone()
				l.TeacherIDs = removeString(l.TeacherIDs, teacherID)
				if len(l.TeacherIDs) > 0 {
					kept = append(kept, l)
				}
			}
			if touched {
				changed = true
				s.putLessons(classID, key, kept)
			}
		}
	}
	return changed
}

// dropLessons removes every lesson matching the predicate.
func (s *Store) dropLessons(match func(classID string, l domain.Lesson) bool) bool {
	changed := false
	for classID, slots := range s.state.Timetable {
		for rawKey, lessons := range slots {
			key, err := domain.ParseSlotKey(rawKey)
			if err != nil {
				continue
			}
			var kept []domain.Lesson
			for _, l := range lessons {
				if match(classID, l) {
					changed = true
					continue
				}
				kept = append(kept, l)
			}
			if len(kept) != len(lessons) {
				s.putLessons(classID, key, kept)
			}
		}
	}
	return changed
}
