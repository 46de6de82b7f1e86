package core

import (
	"context"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// ParkingFilter narrows a bulk parking move. Nil fields match everything.
type ParkingFilter struct {
	ClassID string `json:"classId,omitempty"`
	Day     *int   `json:"day,omitempty"`
	Period  *int   `json:"period,omitempty"`
}

func (f ParkingFilter) matches(classID string, day, period int) bool {
	if f.ClassID != "" && f.ClassID != classID {
		return false
	}
	if f.Day != nil && *f.Day != day {
		return false
	}
	if f.Period != nil && *f.Period != period {
		return false
	}
	return true
}

// ParkedItems returns a copy of the teacher's parking list, oldest first.
func (s *Store) ParkedItems(teacherID string) []domain.ParkingItem {
	return domain.ParkingArea{teacherID: s.state.ParkingArea[teacherID]}.Clone()[teacherID]
}

func (s *Store) park(teacherID, classID string, day, period int) domain.OpResult {
	if len(s.state.ParkingArea[teacherID]) >= domain.MaxParkingItems {
		return domain.Fail("parking area for %s is full (%d items)", teacherID, domain.MaxParkingItems)
	}
	key := domain.SlotKey{Day: day, Period: period}
	lesson, ok := s.takeLesson(classID, key, byTeacher(teacherID))
	if !ok {
		return domain.Fail("no lesson for %s at %s %s period %d", teacherID, classID, dayName(day), period+1)
	}
	item := domain.ParkingItem{
		ID:             s.newID(),
		ClassID:        classID,
		SubjectID:      lesson.SubjectID,
		TeacherIDs:     lesson.TeacherIDs,
		RoomIDs:        lesson.RoomIDs,
		OriginalDay:    day,
		OriginalPeriod: period,
		ParkedAt:       s.clock.Now(),
	}
	s.state.ParkingArea[teacherID] = append(s.state.ParkingArea[teacherID], item)
	return domain.OK(1, "parked %s from %s", lesson.SubjectID, classID)
}

// MoveToParking takes the teacher's lesson off the slot into their parking list.
func (s *Store) MoveToParking(ctx context.Context, teacherID, classID string, day, period int) domain.OpResult {
	res := s.park(teacherID, classID, day, period)
	if !res.Success {
		return res
	}
	if !s.persist(ctx, domain.BucketTimetable, domain.BucketParkingArea) {
		return domain.Fail("parked lesson but saving failed")
	}
	return res
}

// MoveToParkingBulk parks every lesson of the teacher matching the filter,
// scanning class by class, day by day. It stops at the first failure; items
// already parked stay parked.
func (s *Store) MoveToParkingBulk(ctx context.Context, teacherID string, filter ParkingFilter) domain.OpResult {
	view := s.View()
	periods := view.Periods()
	parked := 0
	var failure *domain.OpResult
scan:
	for _, classID := range view.ScheduledClassIDs() {
		for day := 0; day < domain.Days; day++ {
			for period := 0; period < periods; period++ {
				if !filter.matches(classID, day, period) {
					continue
				}
				for _, l := range view.Slot(classID, day, period) {
					if !l.HasTeacher(teacherID) {
						continue
					}
					res := s.park(teacherID, classID, day, period)
					if !res.Success {
						failure = &res
						break scan
					}
					parked++
				}
			}
		}
	}
	saved := parked == 0 || s.persist(ctx, domain.BucketTimetable, domain.BucketParkingArea)
	switch {
	case failure != nil:
		return domain.OpResult{Success: false, Count: parked, Message: failure.Message}
	case !saved:
		return domain.OpResult{Success: false, Count: parked, Message: "parked lessons but saving failed"}
	case parked == 0:
		return domain.Fail("no lessons matched")
	}
	return domain.OK(parked, "parked %d lessons", parked)
}

func (s *Store) unpark(teacherID, itemID string, target *domain.SlotKey) domain.OpResult {
	items := s.state.ParkingArea[teacherID]
	for i, item := range items {
		if item.ID != itemID {
			continue
		}
		dest := item.Origin()
		if target != nil {
			dest = *target
		}
		if !s.validKey(dest.Day, dest.Period) {
			return domain.Fail("target %s period %d is outside the grid", dayName(dest.Day), dest.Period+1)
		}
		s.appendLesson(item.ClassID, dest, item.Lesson())
		rest := append(items[:i:i], items[i+1:]...)
		if len(rest) == 0 {
			delete(s.state.ParkingArea, teacherID)
		} else {
			s.state.ParkingArea[teacherID] = rest
		}
		return domain.OK(1, "restored %s to %s %s period %d", item.SubjectID, item.ClassID, dayName(dest.Day), dest.Period+1)
	}
	return domain.Fail("parking item %s not found", itemID)
}

// RestoreFromParking places the item back, at its original slot when target
// is nil, and removes it from the parking list.
func (s *Store) RestoreFromParking(ctx context.Context, teacherID, itemID string, target *domain.SlotKey) domain.OpResult {
	res := s.unpark(teacherID, itemID, target)
	if !res.Success {
		return res
	}
	if !s.persist(ctx, domain.BucketTimetable, domain.BucketParkingArea) {
		return domain.Fail("restored lesson but saving failed")
	}
	return res
}

// RestoreAllFromParking restores the teacher's items oldest first to their
// original slots. It stops at the first failure without undoing earlier restores.
func (s *Store) RestoreAllFromParking(ctx context.Context, teacherID string) domain.OpResult {
	items := s.ParkedItems(teacherID)
	if len(items) == 0 {
		return domain.Fail("parking area for %s is empty", teacherID)
	}
	restored := 0
	var failure *domain.OpResult
	for _, item := range items {
		res := s.unpark(teacherID, item.ID, nil)
		if !res.Success {
			failure = &res
			break
		}
		restored++
	}
	saved := restored == 0 || s.persist(ctx, domain.BucketTimetable, domain.BucketParkingArea)
	switch {
	case failure != nil:
		return domain.OpResult{Success: false, Count: restored, Message: failure.Message}
	case !saved:
		return domain.OpResult{Success: false, Count: restored, Message: "restored lessons but saving failed"}
	}
	return domain.OK(restored, "restored %d lessons", restored)
}

// DiscardParked drops a parked item without placing it.
func (s *Store) DiscardParked(ctx context.Context, teacherID, itemID string) domain.OpResult {
	items := s.state.ParkingArea[teacherID]
	for i, item := range items {
		if item.ID != itemID {
			continue
		}
		rest := append(items[:i:i], items[i+1:]...)
		if len(rest) == 0 {
			delete(s.state.ParkingArea, teacherID)
		} else {
			s.state.ParkingArea[teacherID] = rest
		}
		if !s.persist(ctx, domain.BucketParkingArea) {
			return domain.Fail("discarded item but saving failed")
		}
		return domain.OK(1, "discarded %s", item.SubjectID)
	}
	return domain.Fail("parking item %s not found", itemID)
}
