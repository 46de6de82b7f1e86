package core

import (
	"context"
	"fmt"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// NewLessonCountMismatchRule compares each assignment's weekly hours with the
// lessons actually placed. Both shortfall and excess are errors.
func NewLessonCountMismatchRule() domain.Rule {
	return lessonCountMismatchRule{}
}

type lessonCountMismatchRule struct{}

func (lessonCountMismatchRule) ID() string          { return RuleLessonCountMismatch }
func (lessonCountMismatchRule) Name() string        { return "Placed lessons differ from assigned hours" }
func (lessonCountMismatchRule) Level() domain.Level { return domain.LevelError }

func (lessonCountMismatchRule) Evaluate(_ context.Context, view domain.ScheduleView) ([]domain.Issue, error) {
	var issues []domain.Issue
	for _, a := range view.Assignments() {
		placed := countPlaced(view, a.TeacherID, a.SubjectID, a.ClassID)
		if placed == a.Hours {
			continue
		}
		var detail string
		if placed < a.Hours {
			detail = fmt.Sprintf("%d short", a.Hours-placed)
		} else {
			detail = fmt.Sprintf("%d over", placed-a.Hours)
		}
		issues = append(issues, domain.Issue{
			Rule:  RuleLessonCountMismatch,
			Level: domain.LevelError,
			Message: fmt.Sprintf("%s %s (%s): placed %d/%d, %s",
				a.ClassID, subjectName(view, a.SubjectID), teacherName(view, a.TeacherID), placed, a.Hours, detail),
			Entity:   domain.EntityAssignment,
			EntityID: fmt.Sprintf("%s/%s/%s", a.TeacherID, a.SubjectID, a.ClassID),
		})
	}
	return issues, nil
}

// NewPlacementRateRule reports the share of assigned hours already placed.
func NewPlacementRateRule() domain.Rule {
	return placementRateRule{}
}

type placementRateRule struct{}

func (placementRateRule) ID() string          { return RulePlacementRate }
func (placementRateRule) Name() string        { return "Placement rate" }
func (placementRateRule) Level() domain.Level { return domain.LevelInfo }

func (placementRateRule) Evaluate(_ context.Context, view domain.ScheduleView) ([]domain.Issue, error) {
	placed, required := PlacementTotals(view)
	if required <= 0 {
		return nil, nil
	}
	rate := float64(placed) / float64(required) * 100
	return []domain.Issue{{
		Rule:    RulePlacementRate,
		Level:   domain.LevelInfo,
		Message: fmt.Sprintf("placement rate %.1f%% (%d/%d)", rate, placed, required),
		Entity:  domain.EntitySchedule,
	}}, nil
}

// PlacementTotals sums placed lessons and required hours over all assignments.
func PlacementTotals(view domain.ScheduleView) (placed, required int) {
	for _, a := range view.Assignments() {
		required += a.Hours
		placed += countPlaced(view, a.TeacherID, a.SubjectID, a.ClassID)
	}
	return placed, required
}
