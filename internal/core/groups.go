package core

import (
	"context"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// GroupMember is one lesson resolved as part of a group.
type GroupMember struct {
	ClassID string        `json:"classId"`
	Day     int           `json:"day"`
	Period  int           `json:"period"`
	Lesson  domain.Lesson `json:"lesson"`
}

// Ref returns the slot the member occupies.
func (m GroupMember) Ref() domain.SlotRef {
	return domain.SlotRef{ClassID: m.ClassID, Day: m.Day, Period: m.Period}
}

// TTKind classifies a slot's team-teaching relationships.
type TTKind string

// Slot classifications returned by IsTTSlot.
const (
	TTNone        TTKind = ""
	TTSameClass   TTKind = "same_class"
	TTSameTeacher TTKind = "same_teacher"
	TTBoth        TTKind = "both"
)

// ResolveGroup derives the joint-lesson group at a time: every lesson of the
// subject across all classes. Groups have no stored identity.
func ResolveGroup(view domain.ScheduleView, day, period int, subjectID string) []GroupMember {
	var out []GroupMember
	for _, classID := range view.ScheduledClassIDs() {
		for _, l := range view.Slot(classID, day, period) {
			if l.SubjectID == subjectID {
				out = append(out, GroupMember{ClassID: classID, Day: day, Period: period, Lesson: l})
			}
		}
	}
	return out
}

func hiddenSubject(view domain.ScheduleView, subjectID string) bool {
	s, ok := view.FindSubject(subjectID)
	return ok && s.Hidden
}

// ClassifyTTSlot reports whether the slot holds team teaching within the class,
// a joint lesson shared with another class, or both. Hidden subjects are ignored.
func ClassifyTTSlot(view domain.ScheduleView, classID string, day, period int) TTKind {
	sameClass, sameTeacher := false, false
	for _, l := range view.Slot(classID, day, period) {
		if hiddenSubject(view, l.SubjectID) {
			continue
		}
		if l.IsTeamTeaching() {
			sameClass = true
		}
		if !sameTeacher && sharedElsewhere(view, classID, day, period, l) {
			sameTeacher = true
		}
	}
	switch {
	case sameClass && sameTeacher:
		return TTBoth
	case sameClass:
		return TTSameClass
	case sameTeacher:
		return TTSameTeacher
	}
	return TTNone
}

func sharedElsewhere(view domain.ScheduleView, classID string, day, period int, lesson domain.Lesson) bool {
	for _, otherID := range view.ScheduledClassIDs() {
		if otherID == classID {
			continue
		}
		for _, other := range view.Slot(otherID, day, period) {
			if other.SubjectID != lesson.SubjectID {
				continue
			}
			for _, t := range lesson.TeacherIDs {
				if other.HasTeacher(t) {
					return true
				}
			}
		}
	}
	return false
}

// ClassifyElectiveSlot returns the elective group of the first visible lesson
// whose subject is declared in one, or "".
func ClassifyElectiveSlot(view domain.ScheduleView, classID string, day, period int) string {
	groups := view.ElectiveGroups()
	for _, l := range view.Slot(classID, day, period) {
		if hiddenSubject(view, l.SubjectID) {
			continue
		}
		if id, ok := electiveGroupOf(groups, l.SubjectID); ok {
			return id
		}
	}
	return ""
}

// TTGroup resolves the joint-lesson group at the time.
func (s *Store) TTGroup(day, period int, subjectID string) []GroupMember {
	return ResolveGroup(s.View(), day, period, subjectID)
}

// IsTTSlot classifies the slot's team-teaching relationships.
func (s *Store) IsTTSlot(classID string, day, period int) TTKind {
	return ClassifyTTSlot(s.View(), classID, day, period)
}

// IsElectiveSlot returns the slot's elective group id, or "".
func (s *Store) IsElectiveSlot(classID string, day, period int) string {
	return ClassifyElectiveSlot(s.View(), classID, day, period)
}

// containingGroups returns the indexes of linked groups directly holding the ref.
func (s *Store) containingGroups(ref domain.SlotRef) []int {
	var out []int
	for i, g := range s.state.LinkedGroups {
		if g.Contains(ref) {
			out = append(out, i)
		}
	}
	return out
}

// linkedRefs returns the ref followed by every other member of the groups
// directly containing it. Overlapping groups are not followed further.
func (s *Store) linkedRefs(ref domain.SlotRef) ([]domain.SlotRef, []int) {
	idx := s.containingGroups(ref)
	refs := []domain.SlotRef{ref}
	seen := map[domain.SlotRef]struct{}{ref: {}}
	for _, i := range idx {
		for _, member := range s.state.LinkedGroups[i].Slots {
			if _, ok := seen[member]; ok {
				continue
			}
			seen[member] = struct{}{}
			refs = append(refs, member)
		}
	}
	return refs, idx
}

// LinkedLessons returns the slot's own lessons plus the lessons at every other
// member position of the linked groups directly containing the slot.
func (s *Store) LinkedLessons(classID string, day, period int) []GroupMember {
	refs, _ := s.linkedRefs(domain.SlotRef{ClassID: classID, Day: day, Period: period})
	var out []GroupMember
	for _, ref := range refs {
		for _, l := range s.lessonsAt(ref.ClassID, ref.Key()) {
			out = append(out, GroupMember{ClassID: ref.ClassID, Day: ref.Day, Period: ref.Period, Lesson: l.Clone()})
		}
	}
	return out
}

// relocate lifts every member off the grid before placing any, so members
// whose destination is another member's source are not mixed together.
func (s *Store) relocate(members []GroupMember, dest func(domain.SlotRef) domain.SlotRef) {
	for _, m := range members {
		s.takeLesson(m.ClassID, domain.SlotKey{Day: m.Day, Period: m.Period}, bySubject(m.Lesson.SubjectID))
	}
	for _, m := range members {
		to := dest(m.Ref())
		s.appendLesson(to.ClassID, to.Key(), m.Lesson)
	}
}

// MoveTTGroup moves every lesson of the joint group at day/period to the target time.
func (s *Store) MoveTTGroup(ctx context.Context, day, period int, subjectID string, toDay, toPeriod int) domain.OpResult {
	if !s.validKey(toDay, toPeriod) {
		return domain.Fail("target %s period %d is outside the grid", dayName(toDay), toPeriod+1)
	}
	members := s.TTGroup(day, period, subjectID)
	if len(members) == 0 {
		return domain.Fail("no lessons of %s at %s period %d", subjectID, dayName(day), period+1)
	}
	if day == toDay && period == toPeriod {
		return domain.OK(0, "group already at target")
	}
	s.relocate(members, func(ref domain.SlotRef) domain.SlotRef {
		return domain.SlotRef{ClassID: ref.ClassID, Day: toDay, Period: toPeriod}
	})
	if !s.persist(ctx, domain.BucketTimetable) {
		return domain.Fail("moved %d lessons but saving failed", len(members))
	}
	return domain.OK(len(members), "moved %d lessons", len(members))
}

// MoveElectiveGroup moves every lesson at day/period whose subject belongs to
// the elective group.
func (s *Store) MoveElectiveGroup(ctx context.Context, day, period int, groupID string, toDay, toPeriod int) domain.OpResult {
	if !s.validKey(toDay, toPeriod) {
		return domain.Fail("target %s period %d is outside the grid", dayName(toDay), toPeriod+1)
	}
	var group *domain.ElectiveGroup
	for i := range s.state.ElectiveGroups {
		if s.state.ElectiveGroups[i].ID == groupID {
			group = &s.state.ElectiveGroups[i]
			break
		}
	}
	if group == nil {
		return domain.Fail("elective group %s not found", groupID)
	}
	var members []GroupMember
	view := s.View()
	for _, classID := range view.ScheduledClassIDs() {
		for _, l := range view.Slot(classID, day, period) {
			if group.HasSubject(l.SubjectID) {
				members = append(members, GroupMember{ClassID: classID, Day: day, Period: period, Lesson: l})
			}
		}
	}
	if len(members) == 0 {
		return domain.Fail("no lessons of elective group %s at %s period %d", group.Name, dayName(day), period+1)
	}
	if day == toDay && period == toPeriod {
		return domain.OK(0, "group already at target")
	}
	s.relocate(members, func(ref domain.SlotRef) domain.SlotRef {
		return domain.SlotRef{ClassID: ref.ClassID, Day: toDay, Period: toPeriod}
	})
	if !s.persist(ctx, domain.BucketTimetable) {
		return domain.Fail("moved %d lessons but saving failed", len(members))
	}
	return domain.OK(len(members), "moved %d lessons", len(members))
}

// MoveLinkedLessons moves the slot together with every member of the linked
// groups directly containing it. All members shift by the same day/period
// offset; the move is refused before any change if a member would leave the
// grid. Every group slot reference to a moved position is rewritten, including
// references held by groups that do not contain the origin.
func (s *Store) MoveLinkedLessons(ctx context.Context, classID string, day, period, toDay, toPeriod int) domain.OpResult {
	origin := domain.SlotRef{ClassID: classID, Day: day, Period: period}
	refs, _ := s.linkedRefs(origin)
	dd, dp := toDay-day, toPeriod-period
	shift := func(ref domain.SlotRef) domain.SlotRef {
		return domain.SlotRef{ClassID: ref.ClassID, Day: ref.Day + dd, Period: ref.Period + dp}
	}
	for _, ref := range refs {
		to := shift(ref)
		if !s.validKey(to.Day, to.Period) {
			return domain.Fail("moving %s %s period %d would leave the grid", ref.ClassID, dayName(ref.Day), ref.Period+1)
		}
	}
	var members []GroupMember
	for _, ref := range refs {
		for _, l := range s.lessonsAt(ref.ClassID, ref.Key()) {
			members = append(members, GroupMember{ClassID: ref.ClassID, Day: ref.Day, Period: ref.Period, Lesson: l.Clone()})
		}
	}
	if len(members) == 0 {
		return domain.Fail("no lessons at %s %s period %d", classID, dayName(day), period+1)
	}
	if dd == 0 && dp == 0 {
		return domain.OK(0, "lessons already at target")
	}
	s.relocate(members, shift)
	moved := make(map[domain.SlotRef]struct{}, len(refs))
	for _, ref := range refs {
		moved[ref] = struct{}{}
	}
	for i := range s.state.LinkedGroups {
		g := &s.state.LinkedGroups[i]
		for j := range g.Slots {
			if _, ok := moved[g.Slots[j]]; ok {
				g.Slots[j] = shift(g.Slots[j])
			}
		}
	}
	if !s.persist(ctx, domain.BucketTimetable, domain.BucketLinkedGroups) {
		return domain.Fail("moved %d lessons but saving failed", len(members))
	}
	return domain.OK(len(members), "moved %d lessons", len(members))
}

// DeleteLinkedLessons clears the slot and every member of the linked groups
// directly containing it, then dissolves those groups.
func (s *Store) DeleteLinkedLessons(ctx context.Context, classID string, day, period int) domain.OpResult {
	refs, groupIdx := s.linkedRefs(domain.SlotRef{ClassID: classID, Day: day, Period: period})
	removed := 0
	for _, ref := range refs {
		removed += len(s.lessonsAt(ref.ClassID, ref.Key()))
		s.putLessons(ref.ClassID, ref.Key(), nil)
	}
	if len(groupIdx) > 0 {
		drop := make(map[int]bool, len(groupIdx))
		for _, i := range groupIdx {
			drop[i] = true
		}
		kept := make([]domain.LinkedGroup, 0, len(s.state.LinkedGroups)-len(groupIdx))
		for i, g := range s.state.LinkedGroups {
			if !drop[i] {
				kept = append(kept, g)
			}
		}
		s.state.LinkedGroups = kept
	}
	if !s.persist(ctx, domain.BucketTimetable, domain.BucketLinkedGroups) {
		return domain.Fail("deleted %d lessons but saving failed", removed)
	}
	return domain.OK(removed, "deleted %d lessons", removed)
}

// DeleteTTGroup removes every lesson of the joint group at day/period.
func (s *Store) DeleteTTGroup(ctx context.Context, day, period int, subjectID string) domain.OpResult {
	members := s.TTGroup(day, period, subjectID)
	if len(members) == 0 {
		return domain.Fail("no lessons of %s at %s period %d", subjectID, dayName(day), period+1)
	}
	for _, m := range members {
		s.takeLesson(m.ClassID, domain.SlotKey{Day: day, Period: period}, bySubject(subjectID))
	}
	if !s.persist(ctx, domain.BucketTimetable) {
		return domain.Fail("deleted %d lessons but saving failed", len(members))
	}
	return domain.OK(len(members), "deleted %d lessons", len(members))
}

// LinkSlots declares a linked group over at least two distinct slots.
func (s *Store) LinkSlots(ctx context.Context, refs []domain.SlotRef) (domain.LinkedGroup, domain.OpResult) {
	seen := make(map[domain.SlotRef]struct{}, len(refs))
	var slots []domain.SlotRef
	for _, ref := range refs {
		if ref.ClassID == "" || !s.validKey(ref.Day, ref.Period) {
			return domain.LinkedGroup{}, domain.Fail("slot %s %s period %d is outside the grid", ref.ClassID, dayName(ref.Day), ref.Period+1)
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		slots = append(slots, ref)
	}
	if len(slots) < 2 {
		return domain.LinkedGroup{}, domain.Fail("a linked group needs at least two slots")
	}
	group := domain.LinkedGroup{ID: s.newID(), Slots: slots}
	s.state.LinkedGroups = append(s.state.LinkedGroups, group)
	if !s.persist(ctx, domain.BucketLinkedGroups) {
		return group.Clone(), domain.Fail("linked %d slots but saving failed", len(slots))
	}
	return group.Clone(), domain.OK(len(slots), "linked %d slots", len(slots))
}

// UnlinkGroup dissolves a linked group; lessons stay in place.
func (s *Store) UnlinkGroup(ctx context.Context, groupID string) domain.OpResult {
	for i, g := range s.state.LinkedGroups {
		if g.ID != groupID {
			continue
		}
		s.state.LinkedGroups = append(s.state.LinkedGroups[:i:i], s.state.LinkedGroups[i+1:]...)
		if !s.persist(ctx, domain.BucketLinkedGroups) {
			return domain.Fail("unlinked group %s but saving failed", groupID)
		}
		return domain.OK(len(g.Slots), "unlinked group %s", groupID)
	}
	return domain.Fail("linked group %s not found", groupID)
}
