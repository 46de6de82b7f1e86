package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// NewMeetingOverlapRule warns when a teacher is placed on a lesson during a
// meeting they attend.
func NewMeetingOverlapRule() domain.Rule {
	return meetingOverlapRule{}
}

type meetingOverlapRule struct{}

func (meetingOverlapRule) ID() string          { return RuleMeetingOverlap }
func (meetingOverlapRule) Name() string        { return "Lesson during meeting" }
func (meetingOverlapRule) Level() domain.Level { return domain.LevelWarning }

func (meetingOverlapRule) Evaluate(_ context.Context, view domain.ScheduleView) ([]domain.Issue, error) {
	periods := view.Periods()
	var issues []domain.Issue
	for _, m := range view.Meetings() {
		for _, entry := range m.Schedule {
			key := entry.Key()
			if !key.Valid(periods) {
				continue
			}
			for _, teacherID := range m.TeacherIDs {
				for _, b := range TeacherBusyAt(view, teacherID, key.Day, key.Period) {
					issues = append(issues, domain.Issue{
						Rule:  RuleMeetingOverlap,
						Level: domain.LevelWarning,
						Message: fmt.Sprintf("%s teaches %s in %s during %s (%s period %d)",
							teacherName(view, teacherID), subjectName(view, b.Lesson.SubjectID), b.ClassID, m.Name, dayName(key.Day), key.Period+1),
						Entity:   domain.EntityTeacher,
						EntityID: teacherID,
						Slots:    []domain.SlotRef{{ClassID: b.ClassID, Day: key.Day, Period: key.Period}},
					})
				}
			}
		}
	}
	return issues, nil
}

// NewUnavailableOverlapRule warns when a teacher is placed on a slot they
// declared unavailable.
func NewUnavailableOverlapRule() domain.Rule {
	return unavailableOverlapRule{}
}

type unavailableOverlapRule struct{}

func (unavailableOverlapRule) ID() string          { return RuleUnavailableOverlap }
func (unavailableOverlapRule) Name() string        { return "Lesson in unavailable slot" }
func (unavailableOverlapRule) Level() domain.Level { return domain.LevelWarning }

func (unavailableOverlapRule) Evaluate(_ context.Context, view domain.ScheduleView) ([]domain.Issue, error) {
	periods := view.Periods()
	unavailable := view.UnavailableSlots()
	teacherIDs := make([]string, 0, len(unavailable))
	for id := range unavailable {
		teacherIDs = append(teacherIDs, id)
	}
	sort.Strings(teacherIDs)
	var issues []domain.Issue
	for _, teacherID := range teacherIDs {
		for _, raw := range unavailable[teacherID] {
			key, err := domain.ParseSlotKey(raw)
			if err != nil || !key.Valid(periods) {
				continue
			}
			for _, b := range TeacherBusyAt(view, teacherID, key.Day, key.Period) {
				issues = append(issues, domain.Issue{
					Rule:  RuleUnavailableOverlap,
					Level: domain.LevelWarning,
					Message: fmt.Sprintf("%s is unavailable on %s period %d but teaches %s in %s",
						teacherName(view, teacherID), dayName(key.Day), key.Period+1, subjectName(view, b.Lesson.SubjectID), b.ClassID),
					Entity:   domain.EntityTeacher,
					EntityID: teacherID,
					Slots:    []domain.SlotRef{{ClassID: b.ClassID, Day: key.Day, Period: key.Period}},
				})
			}
		}
	}
	return issues, nil
}
