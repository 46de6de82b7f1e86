package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// NewTeacherDoubleBookingRule flags a teacher placed in two classes at once
// with lessons that are neither joint nor in the same elective group.
func NewTeacherDoubleBookingRule() domain.Rule {
	return teacherDoubleBookingRule{}
}

type teacherDoubleBookingRule struct{}

func (teacherDoubleBookingRule) ID() string          { return RuleTeacherDoubleBooking }
func (teacherDoubleBookingRule) Name() string        { return "Teacher double-booking" }
func (teacherDoubleBookingRule) Level() domain.Level { return domain.LevelError }

func (teacherDoubleBookingRule) Evaluate(_ context.Context, view domain.ScheduleView) ([]domain.Issue, error) {
	var issues []domain.Issue
	for _, c := range CheckConflicts(view) {
		issues = append(issues, domain.Issue{
			Rule:     RuleTeacherDoubleBooking,
			Level:    domain.LevelError,
			Message:  fmt.Sprintf("%s: %s", dayName(c.Day), c.Message(teacherName(view, c.TeacherID))),
			Entity:   domain.EntityTeacher,
			EntityID: c.TeacherID,
			Slots: []domain.SlotRef{
				{ClassID: c.ClassIDs[0], Day: c.Day, Period: c.Period},
				{ClassID: c.ClassIDs[1], Day: c.Day, Period: c.Period},
			},
		})
	}
	return issues, nil
}

// NewClassDoubleBookingRule flags class-slots holding more than one lesson
// unless every subject belongs to one elective group. Non-class duties may
// stack freely.
func NewClassDoubleBookingRule() domain.Rule {
	return classDoubleBookingRule{}
}

type classDoubleBookingRule struct{}

func (classDoubleBookingRule) ID() string          { return RuleClassDoubleBooking }
func (classDoubleBookingRule) Name() string        { return "Class double-booking" }
func (classDoubleBookingRule) Level() domain.Level { return domain.LevelError }

func (classDoubleBookingRule) Evaluate(_ context.Context, view domain.ScheduleView) ([]domain.Issue, error) {
	groups := view.ElectiveGroups()
	periods := view.Periods()
	var issues []domain.Issue
	for _, classID := range view.ScheduledClassIDs() {
		if classID == domain.NonClassDutyID {
			continue
		}
		for day := 0; day < domain.Days; day++ {
			for period := 0; period < periods; period++ {
				lessons := view.Slot(classID, day, period)
				if len(lessons) < 2 {
					continue
				}
				subjects := make([]string, 0, len(lessons))
				for _, l := range lessons {
					subjects = append(subjects, l.SubjectID)
				}
				if _, ok := electiveGroupOf(groups, subjects...); ok {
					continue
				}
				names := make([]string, 0, len(subjects))
				for _, id := range subjects {
					names = append(names, subjectName(view, id))
				}
				issues = append(issues, domain.Issue{
					Rule:     RuleClassDoubleBooking,
					Level:    domain.LevelError,
					Message:  fmt.Sprintf("class %s has %d lessons on %s period %d (%s)", classID, len(lessons), dayName(day), period+1, strings.Join(names, ", ")),
					Entity:   domain.EntityClass,
					EntityID: classID,
					Slots:    []domain.SlotRef{{ClassID: classID, Day: day, Period: period}},
				})
			}
		}
	}
	return issues, nil
}

// NewRoomDoubleBookingRule flags a special classroom booked by more than one
// class at the same time, unless all bookings are the same joint lesson.
func NewRoomDoubleBookingRule() domain.Rule {
	return roomDoubleBookingRule{}
}

type roomDoubleBookingRule struct{}

func (roomDoubleBookingRule) ID() string          { return RuleRoomDoubleBooking }
func (roomDoubleBookingRule) Name() string        { return "Special classroom double-booking" }
func (roomDoubleBookingRule) Level() domain.Level { return domain.LevelError }

type roomBooking struct {
	ref       domain.SlotRef
	subjectID string
}

func (roomDoubleBookingRule) Evaluate(_ context.Context, view domain.ScheduleView) ([]domain.Issue, error) {
	roomNames := make(map[string]string)
	for _, r := range view.SpecialClassrooms() {
		roomNames[r.ID] = r.Name
	}
	periods := view.Periods()
	classIDs := view.ScheduledClassIDs()
	var issues []domain.Issue
	for day := 0; day < domain.Days; day++ {
		for period := 0; period < periods; period++ {
			bookings := make(map[string][]roomBooking)
			for _, classID := range classIDs {
				for _, l := range view.Slot(classID, day, period) {
					for _, roomID := range l.RoomIDs {
						bookings[roomID] = append(bookings[roomID], roomBooking{
							ref:       domain.SlotRef{ClassID: classID, Day: day, Period: period},
							subjectID: l.SubjectID,
						})
					}
				}
			}
			roomIDs := make([]string, 0, len(bookings))
			for id := range bookings {
				roomIDs = append(roomIDs, id)
			}
			sort.Strings(roomIDs)
			for _, roomID := range roomIDs {
				list := bookings[roomID]
				if len(list) < 2 || sameSubject(list) {
					continue
				}
				name := roomNames[roomID]
				if name == "" {
					name = roomID
				}
				slots := make([]domain.SlotRef, 0, len(list))
				classes := make([]string, 0, len(list))
				for _, b := range list {
					slots = append(slots, b.ref)
					classes = append(classes, b.ref.ClassID)
				}
				issues = append(issues, domain.Issue{
					Rule:     RuleRoomDoubleBooking,
					Level:    domain.LevelError,
					Message:  fmt.Sprintf("%s is booked by %s on %s period %d", name, strings.Join(classes, ", "), dayName(day), period+1),
					Entity:   domain.EntitySpecialClassroom,
					EntityID: roomID,
					Slots:    slots,
				})
			}
		}
	}
	return issues, nil
}

func sameSubject(list []roomBooking) bool {
	for _, b := range list[1:] {
		if b.subjectID != list[0].subjectID {
			return false
		}
	}
	return true
}
