package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

var validate = validator.New()

// validationMessage flattens validator errors into "field: tag" pairs.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return "invalid input (" + strings.Join(parts, ", ") + ")"
}

func indexOf[T any](items []T, id string, key func(T) string) int {
	for i, item := range items {
		if key(item) == id {
			return i
		}
	}
	return -1
}

func teacherKey(t domain.Teacher) string                     { return t.ID }
func categoryKey(c domain.Category) string                   { return c.ID }
func subjectKey(s domain.Subject) string                     { return s.ID }
func roomKey(r domain.SpecialClassroom) string               { return r.ID }
func meetingKey(m domain.Meeting) string                     { return m.ID }
func electiveKey(g domain.ElectiveGroup) string              { return g.ID }
func assignmentKey(a domain.Assignment) domain.AssignmentKey { return a.Key() }

func (s *Store) saved(ctx context.Context, res domain.OpResult, buckets ...domain.Bucket) domain.OpResult {
	if !s.persist(ctx, buckets...) {
		return domain.OpResult{Success: false, Count: res.Count, Message: res.Message + " but saving failed"}
	}
	return res
}

func (s *Store) knownClass(classID string) bool {
	if classID == domain.NonClassDutyID {
		return true
	}
	for _, c := range s.state.classes {
		if c.ID == classID {
			return true
		}
	}
	return false
}

// AddTeacher registers a new teacher.
func (s *Store) AddTeacher(ctx context.Context, t domain.Teacher) domain.OpResult {
	if err := validate.Struct(t); err != nil {
		return domain.Fail("%s", validationMessage(err))
	}
	if indexOf(s.state.Teachers, t.ID, teacherKey) >= 0 {
		return domain.Fail("teacher %s already exists", t.ID)
	}
	for _, id := range t.CategoryIDs {
		if indexOf(s.state.Categories, id, categoryKey) < 0 {
			return domain.Fail("category %s not found", id)
		}
	}
	t.CategoryIDs = dedupeStrings(t.CategoryIDs)
	s.state.Teachers = append(s.state.Teachers, t)
	return s.saved(ctx, domain.OK(1, "added teacher %s", t.Name), domain.BucketTeachers)
}

// UpdateTeacher replaces an existing teacher's fields.
func (s *Store) UpdateTeacher(ctx context.Context, t domain.Teacher) domain.OpResult {
	if err := validate.Struct(t); err != nil {
		return domain.Fail("%s", validationMessage(err))
	}
	i := indexOf(s.state.Teachers, t.ID, teacherKey)
	if i < 0 {
		return domain.Fail("teacher %s not found", t.ID)
	}
	for _, id := range t.CategoryIDs {
		if indexOf(s.state.Categories, id, categoryKey) < 0 {
			return domain.Fail("category %s not found", id)
		}
	}
	t.CategoryIDs = dedupeStrings(t.CategoryIDs)
	s.state.Teachers[i] = t
	return s.saved(ctx, domain.OK(1, "updated teacher %s", t.Name), domain.BucketTeachers)
}

// DeleteTeacher removes the teacher and everything that refers to them:
// lesson seats (lessons left without teachers go too), assignments, meeting
// attendance, parked items and unavailability.
func (s *Store) DeleteTeacher(ctx context.Context, id string) domain.OpResult {
	i := indexOf(s.state.Teachers, id, teacherKey)
	if i < 0 {
		return domain.Fail("teacher %s not found", id)
	}
	name := s.state.Teachers[i].Name
	s.state.Teachers = append(s.state.Teachers[:i:i], s.state.Teachers[i+1:]...)
	s.stripTeacher(id)
	kept := s.state.Assignments[:0:0]
	for _, a := range s.state.Assignments {
		if a.TeacherID != id {
			kept = append(kept, a)
		}
	}
	s.state.Assignments = kept
	for j := range s.state.Meetings {
		s.state.Meetings[j].TeacherIDs = removeString(s.state.Meetings[j].TeacherIDs, id)
	}
	delete(s.state.ParkingArea, id)
	delete(s.state.Settings.UnavailableSlots, id)
	return s.saved(ctx, domain.OK(1, "deleted teacher %s", name),
		domain.BucketTeachers, domain.BucketTimetable, domain.BucketAssignments,
		domain.BucketMeetings, domain.BucketParkingArea, domain.BucketSettings)
}

// AddCategory registers a new category.
func (s *Store) AddCategory(ctx context.Context, c domain.Category) domain.OpResult {
	if err := validate.Struct(c); err != nil {
		return domain.Fail("%s", validationMessage(err))
	}
	if indexOf(s.state.Categories, c.ID, categoryKey) >= 0 {
		return domain.Fail("category %s already exists", c.ID)
	}
	s.state.Categories = append(s.state.Categories, c)
	return s.saved(ctx, domain.OK(1, "added category %s", c.Name), domain.BucketCategories)
}

// UpdateCategory replaces an existing category's fields.
func (s *Store) UpdateCategory(ctx context.Context, c domain.Category) domain.OpResult {
	if err := validate.Struct(c); err != nil {
		return domain.Fail("%s", validationMessage(err))
	}
	i := indexOf(s.state.Categories, c.ID, categoryKey)
	if i < 0 {
		return domain.Fail("category %s not found", c.ID)
	}
	s.state.Categories[i] = c
	return s.saved(ctx, domain.OK(1, "updated category %s", c.Name), domain.BucketCategories)
}

// DeleteCategory removes an unused category and drops it from teachers.
// Categories still owning subjects cannot be deleted.
func (s *Store) DeleteCategory(ctx context.Context, id string) domain.OpResult {
	i := indexOf(s.state.Categories, id, categoryKey)
	if i < 0 {
		return domain.Fail("category %s not found", id)
	}
	for _, subj := range s.state.Subjects {
		if subj.CategoryID == id {
			return domain.Fail("category %s is used by subject %s", id, subj.Name)
		}
	}
	s.state.Categories = append(s.state.Categories[:i:i], s.state.Categories[i+1:]...)
	for j := range s.state.Teachers {
		s.state.Teachers[j].CategoryIDs = removeString(s.state.Teachers[j].CategoryIDs, id)
	}
	return s.saved(ctx, domain.OK(1, "deleted category %s", id), domain.BucketCategories, domain.BucketTeachers)
}

// AddSubject registers a subject under an existing category.
func (s *Store) AddSubject(ctx context.Context, subj domain.Subject) domain.OpResult {
	if err := validate.Struct(subj); err != nil {
		return domain.Fail("%s", validationMessage(err))
	}
	if indexOf(s.state.Subjects, subj.ID, subjectKey) >= 0 {
		return domain.Fail("subject %s already exists", subj.ID)
	}
	if indexOf(s.state.Categories, subj.CategoryID, categoryKey) < 0 {
		return domain.Fail("category %s not found", subj.CategoryID)
	}
	s.state.Subjects = append(s.state.Subjects, subj)
	return s.saved(ctx, domain.OK(1, "added subject %s", subj.Name), domain.BucketSubjects)
}

// UpdateSubject replaces an existing subject's fields.
func (s *Store) UpdateSubject(ctx context.Context, subj domain.Subject) domain.OpResult {
	if err := validate.Struct(subj); err != nil {
		return domain.Fail("%s", validationMessage(err))
	}
	i := indexOf(s.state.Subjects, subj.ID, subjectKey)
	if i < 0 {
		return domain.Fail("subject %s not found", subj.ID)
	}
	if indexOf(s.state.Categories, subj.CategoryID, categoryKey) < 0 {
		return domain.Fail("category %s not found", subj.CategoryID)
	}
	s.state.Subjects[i] = subj
	return s.saved(ctx, domain.OK(1, "updated subject %s", subj.Name), domain.BucketSubjects)
}

// DeleteSubject removes the subject with its assignments, lessons, parked
// items and elective memberships.
func (s *Store) DeleteSubject(ctx context.Context, id string) domain.OpResult {
	i := indexOf(s.state.Subjects, id, subjectKey)
	if i < 0 {
		return domain.Fail("subject %s not found", id)
	}
	name := s.state.Subjects[i].Name
	s.state.Subjects = append(s.state.Subjects[:i:i], s.state.Subjects[i+1:]...)
	kept := s.state.Assignments[:0:0]
	for _, a := range s.state.Assignments {
		if a.SubjectID != id {
			kept = append(kept, a)
		}
	}
	s.state.Assignments = kept
	s.dropLessons(func(_ string, l domain.Lesson) bool { return l.SubjectID == id })
	for teacherID, items := range s.state.ParkingArea {
		rest := items[:0:0]
		for _, it := range items {
			if it.SubjectID != id {
				rest = append(rest, it)
			}
		}
		if len(rest) == 0 {
			delete(s.state.ParkingArea, teacherID)
		} else {
			s.state.ParkingArea[teacherID] = rest
		}
	}
	for j := range s.state.ElectiveGroups {
		s.state.ElectiveGroups[j].SubjectIDs = removeString(s.state.ElectiveGroups[j].SubjectIDs, id)
	}
	return s.saved(ctx, domain.OK(1, "deleted subject %s", name),
		domain.BucketSubjects, domain.BucketAssignments, domain.BucketTimetable,
		domain.BucketParkingArea, domain.BucketElectiveGroups)
}

// AddSpecialClassroom registers a bookable room.
func (s *Store) AddSpecialClassroom(ctx context.Context, r domain.SpecialClassroom) domain.OpResult {
	if err := validate.Struct(r); err != nil {
		return domain.Fail("%s", validationMessage(err))
	}
	if indexOf(s.state.SpecialClassrooms, r.ID, roomKey) >= 0 {
		return domain.Fail("special classroom %s already exists", r.ID)
	}
	s.state.SpecialClassrooms = append(s.state.SpecialClassrooms, r)
	return s.saved(ctx, domain.OK(1, "added special classroom %s", r.Name), domain.BucketSpecialClassrooms)
}

// UpdateSpecialClassroom replaces an existing room's fields.
func (s *Store) UpdateSpecialClassroom(ctx context.Context, r domain.SpecialClassroom) domain.OpResult {
	if err := validate.Struct(r); err != nil {
		return domain.Fail("%s", validationMessage(err))
	}
	i := indexOf(s.state.SpecialClassrooms, r.ID, roomKey)
	if i < 0 {
		return domain.Fail("special classroom %s not found", r.ID)
	}
	s.state.SpecialClassrooms[i] = r
	return s.saved(ctx, domain.OK(1, "updated special classroom %s", r.Name), domain.BucketSpecialClassrooms)
}

// DeleteSpecialClassroom removes the room and releases it from every lesson.
func (s *Store) DeleteSpecialClassroom(ctx context.Context, id string) domain.OpResult {
	i := indexOf(s.state.SpecialClassrooms, id, roomKey)
	if i < 0 {
		return domain.Fail("special classroom %s not found", id)
	}
	s.state.SpecialClassrooms = append(s.state.SpecialClassrooms[:i:i], s.state.SpecialClassrooms[i+1:]...)
	for _, slots := range s.state.Timetable {
		for key, lessons := range slots {
			for j := range lessons {
				if lessons[j].HasRoom(id) {
					lessons[j].RoomIDs = removeString(lessons[j].RoomIDs, id)
					if len(lessons[j].RoomIDs) == 0 {
						lessons[j].RoomIDs = nil
					}
				}
			}
			slots[key] = lessons
		}
	}
	return s.saved(ctx, domain.OK(1, "deleted special classroom %s", id),
		domain.BucketSpecialClassrooms, domain.BucketTimetable)
}

func (s *Store) checkMeeting(m domain.Meeting) (domain.Meeting, *domain.OpResult) {
	if err := validate.Struct(m); err != nil {
		res := domain.Fail("%s", validationMessage(err))
		return m, &res
	}
	for _, id := range m.TeacherIDs {
		if indexOf(s.state.Teachers, id, teacherKey) < 0 {
			res := domain.Fail("teacher %s not found", id)
			return m, &res
		}
	}
	for _, entry := range m.Schedule {
		if entry.Period > s.state.Settings.Periods {
			res := domain.Fail("meeting period %d exceeds %d periods per day", entry.Period, s.state.Settings.Periods)
			return m, &res
		}
	}
	m.TeacherIDs = dedupeStrings(m.TeacherIDs)
	return m, nil
}

// AddMeeting registers a meeting, generating an id when none is given.
func (s *Store) AddMeeting(ctx context.Context, m domain.Meeting) (domain.Meeting, domain.OpResult) {
	if m.ID == "" {
		m.ID = s.newID()
	}
	m, failed := s.checkMeeting(m)
	if failed != nil {
		return domain.Meeting{}, *failed
	}
	if indexOf(s.state.Meetings, m.ID, meetingKey) >= 0 {
		return domain.Meeting{}, domain.Fail("meeting %s already exists", m.ID)
	}
	s.state.Meetings = append(s.state.Meetings, m)
	return m, s.saved(ctx, domain.OK(1, "added meeting %s", m.Name), domain.BucketMeetings)
}

// UpdateMeeting replaces an existing meeting.
func (s *Store) UpdateMeeting(ctx context.Context, m domain.Meeting) domain.OpResult {
	m, failed := s.checkMeeting(m)
	if failed != nil {
		return *failed
	}
	i := indexOf(s.state.Meetings, m.ID, meetingKey)
	if i < 0 {
		return domain.Fail("meeting %s not found", m.ID)
	}
	s.state.Meetings[i] = m
	return s.saved(ctx, domain.OK(1, "updated meeting %s", m.Name), domain.BucketMeetings)
}

// DeleteMeeting removes a meeting.
func (s *Store) DeleteMeeting(ctx context.Context, id string) domain.OpResult {
	i := indexOf(s.state.Meetings, id, meetingKey)
	if i < 0 {
		return domain.Fail("meeting %s not found", id)
	}
	s.state.Meetings = append(s.state.Meetings[:i:i], s.state.Meetings[i+1:]...)
	return s.saved(ctx, domain.OK(1, "deleted meeting %s", id), domain.BucketMeetings)
}

// SetAssignment creates or updates the weekly hours of a teacher/subject/class triple.
func (s *Store) SetAssignment(ctx context.Context, a domain.Assignment) domain.OpResult {
	if err := validate.Struct(a); err != nil {
		return domain.Fail("%s", validationMessage(err))
	}
	if indexOf(s.state.Teachers, a.TeacherID, teacherKey) < 0 {
		return domain.Fail("teacher %s not found", a.TeacherID)
	}
	if indexOf(s.state.Subjects, a.SubjectID, subjectKey) < 0 {
		return domain.Fail("subject %s not found", a.SubjectID)
	}
	if !s.knownClass(a.ClassID) {
		return domain.Fail("class %s not found", a.ClassID)
	}
	key := a.Key()
	for i, existing := range s.state.Assignments {
		if existing.Key() == key {
			s.state.Assignments[i] = a
			return s.saved(ctx, domain.OK(1, "updated assignment"), domain.BucketAssignments)
		}
	}
	s.state.Assignments = append(s.state.Assignments, a)
	return s.saved(ctx, domain.OK(1, "added assignment"), domain.BucketAssignments)
}

// DeleteAssignment removes an assignment. Placed lessons are kept.
func (s *Store) DeleteAssignment(ctx context.Context, key domain.AssignmentKey) domain.OpResult {
	for i, a := range s.state.Assignments {
		if assignmentKey(a) != key {
			continue
		}
		s.state.Assignments = append(s.state.Assignments[:i:i], s.state.Assignments[i+1:]...)
		return s.saved(ctx, domain.OK(1, "deleted assignment"), domain.BucketAssignments)
	}
	return domain.Fail("assignment %s/%s/%s not found", key.TeacherID, key.SubjectID, key.ClassID)
}

func (s *Store) checkElective(g domain.ElectiveGroup) (domain.ElectiveGroup, *domain.OpResult) {
	if err := validate.Struct(g); err != nil {
		res := domain.Fail("%s", validationMessage(err))
		return g, &res
	}
	for _, id := range g.SubjectIDs {
		if indexOf(s.state.Subjects, id, subjectKey) < 0 {
			res := domain.Fail("subject %s not found", id)
			return g, &res
		}
	}
	g.SubjectIDs = dedupeStrings(g.SubjectIDs)
	return g, nil
}

// AddElectiveGroup declares subjects co-placeable, generating an id when none is given.
func (s *Store) AddElectiveGroup(ctx context.Context, g domain.ElectiveGroup) (domain.ElectiveGroup, domain.OpResult) {
	if g.ID == "" {
		g.ID = s.newID()
	}
	g, failed := s.checkElective(g)
	if failed != nil {
		return domain.ElectiveGroup{}, *failed
	}
	if indexOf(s.state.ElectiveGroups, g.ID, electiveKey) >= 0 {
		return domain.ElectiveGroup{}, domain.Fail("elective group %s already exists", g.ID)
	}
	s.state.ElectiveGroups = append(s.state.ElectiveGroups, g)
	return g, s.saved(ctx, domain.OK(1, "added elective group %s", g.Name), domain.BucketElectiveGroups)
}

// UpdateElectiveGroup replaces an existing elective group.
func (s *Store) UpdateElectiveGroup(ctx context.Context, g domain.ElectiveGroup) domain.OpResult {
	g, failed := s.checkElective(g)
	if failed != nil {
		return *failed
	}
	i := indexOf(s.state.ElectiveGroups, g.ID, electiveKey)
	if i < 0 {
		return domain.Fail("elective group %s not found", g.ID)
	}
	s.state.ElectiveGroups[i] = g
	return s.saved(ctx, domain.OK(1, "updated elective group %s", g.Name), domain.BucketElectiveGroups)
}

// DeleteElectiveGroup removes an elective group.
func (s *Store) DeleteElectiveGroup(ctx context.Context, id string) domain.OpResult {
	i := indexOf(s.state.ElectiveGroups, id, electiveKey)
	if i < 0 {
		return domain.Fail("elective group %s not found", id)
	}
	s.state.ElectiveGroups = append(s.state.ElectiveGroups[:i:i], s.state.ElectiveGroups[i+1:]...)
	return s.saved(ctx, domain.OK(1, "deleted elective group %s", id), domain.BucketElectiveGroups)
}

// UpdateSettings replaces the settings and regenerates the class sections.
// Lessons of classes no longer configured are kept.
func (s *Store) UpdateSettings(ctx context.Context, settings domain.Settings) domain.OpResult {
	if settings.Periods < 0 {
		return domain.Fail("periods must not be negative")
	}
	for grade, n := range settings.ClassConfig {
		if grade <= 0 || n < 0 {
			return domain.Fail("invalid class config for grade %d", grade)
		}
	}
	for teacherID, keys := range settings.UnavailableSlots {
		for _, raw := range keys {
			if _, err := domain.ParseSlotKey(raw); err != nil {
				return domain.Fail("unavailable slot for %s: %v", teacherID, err)
			}
		}
	}
	s.state.Settings = settings.Clone().Normalize()
	s.state.regenerateClasses()
	return s.saved(ctx, domain.OK(len(s.state.classes), "settings updated, %d classes", len(s.state.classes)), domain.BucketSettings)
}

// SetUnavailable replaces a teacher's unavailable slot keys.
func (s *Store) SetUnavailable(ctx context.Context, teacherID string, keys []string) domain.OpResult {
	if indexOf(s.state.Teachers, teacherID, teacherKey) < 0 {
		return domain.Fail("teacher %s not found", teacherID)
	}
	clean := make([]string, 0, len(keys))
	for _, raw := range dedupeStrings(keys) {
		key, err := domain.ParseSlotKey(raw)
		if err != nil {
			return domain.Fail("%v", err)
		}
		if !key.Valid(s.state.Settings.Periods) {
			return domain.Fail("slot %s is outside the grid", raw)
		}
		clean = append(clean, key.String())
	}
	if len(clean) == 0 {
		delete(s.state.Settings.UnavailableSlots, teacherID)
	} else {
		s.state.Settings.UnavailableSlots[teacherID] = clean
	}
	return s.saved(ctx, domain.OK(len(clean), "updated unavailability for %s", teacherID), domain.BucketSettings)
}

// Classes returns the generated class sections.
func (s *Store) Classes() []domain.ClassSection {
	return append([]domain.ClassSection(nil), s.state.classes...)
}

// ErrNotFound is returned by lookups of unknown ids.
var ErrNotFound = errors.New("not found")

// Teacher looks up a teacher by id.
func (s *Store) Teacher(id string) (domain.Teacher, error) {
	t, ok := s.View().FindTeacher(id)
	if !ok {
		return domain.Teacher{}, fmt.Errorf("teacher %s: %w", id, ErrNotFound)
	}
	return t, nil
}
