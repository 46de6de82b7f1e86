package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// NewTeacherConsecutiveRule warns when a teacher teaches n or more periods in
// a row. Each maximal run yields one issue.
func NewTeacherConsecutiveRule(n int) domain.ThresholdRule {
	return &teacherConsecutiveRule{thresholdRule{threshold: n}}
}

type teacherConsecutiveRule struct{ thresholdRule }

func (*teacherConsecutiveRule) ID() string          { return RuleTeacherConsecutive }
func (*teacherConsecutiveRule) Name() string        { return "Teacher consecutive periods" }
func (*teacherConsecutiveRule) Level() domain.Level { return domain.LevelWarning }

func (r *teacherConsecutiveRule) Evaluate(_ context.Context, view domain.ScheduleView) ([]domain.Issue, error) {
	occupancy := teacherOccupancy(view)
	teacherIDs := make([]string, 0, len(occupancy))
	for id := range occupancy {
		teacherIDs = append(teacherIDs, id)
	}
	sort.Strings(teacherIDs)
	var issues []domain.Issue
	for _, teacherID := range teacherIDs {
		week := occupancy[teacherID]
		for day := 0; day < domain.Days; day++ {
			for _, run := range runsAtLeast(week[day], r.threshold) {
				issues = append(issues, domain.Issue{
					Rule:  RuleTeacherConsecutive,
					Level: domain.LevelWarning,
					Message: fmt.Sprintf("%s teaches %d consecutive periods on %s (periods %d-%d)",
						teacherName(view, teacherID), run.length(), dayName(day), run.start+1, run.end+1),
					Entity:   domain.EntityTeacher,
					EntityID: teacherID,
				})
			}
		}
	}
	return issues, nil
}

// NewClassConsecutiveRule warns when a class has n or more occupied periods
// in a row. Off by default.
func NewClassConsecutiveRule(n int) domain.ThresholdRule {
	return &classConsecutiveRule{thresholdRule{threshold: n}}
}

type classConsecutiveRule struct{ thresholdRule }

func (*classConsecutiveRule) ID() string          { return RuleClassConsecutive }
func (*classConsecutiveRule) Name() string        { return "Class consecutive periods" }
func (*classConsecutiveRule) Level() domain.Level { return domain.LevelWarning }

func (r *classConsecutiveRule) Evaluate(_ context.Context, view domain.ScheduleView) ([]domain.Issue, error) {
	periods := view.Periods()
	var issues []domain.Issue
	for _, class := range view.Classes() {
		for day := 0; day < domain.Days; day++ {
			marks := make([]bool, periods)
			for period := range marks {
				marks[period] = len(view.Slot(class.ID, day, period)) > 0
			}
			for _, run := range runsAtLeast(marks, r.threshold) {
				issues = append(issues, domain.Issue{
					Rule:  RuleClassConsecutive,
					Level: domain.LevelWarning,
					Message: fmt.Sprintf("class %s has %d consecutive lessons on %s (periods %d-%d)",
						class.Name, run.length(), dayName(day), run.start+1, run.end+1),
					Entity:   domain.EntityClass,
					EntityID: class.ID,
					Slots:    runSlots(class.ID, day, run),
				})
			}
		}
	}
	return issues, nil
}

// NewSameSubjectConsecutiveRule warns when a class has the same subject n or
// more periods in a row.
func NewSameSubjectConsecutiveRule(n int) domain.ThresholdRule {
	return &sameSubjectConsecutiveRule{thresholdRule{threshold: n}}
}

type sameSubjectConsecutiveRule struct{ thresholdRule }

func (*sameSubjectConsecutiveRule) ID() string          { return RuleSameSubjectConsecutive }
func (*sameSubjectConsecutiveRule) Name() string        { return "Same subject consecutive periods" }
func (*sameSubjectConsecutiveRule) Level() domain.Level { return domain.LevelWarning }

func (r *sameSubjectConsecutiveRule) Evaluate(_ context.Context, view domain.ScheduleView) ([]domain.Issue, error) {
	periods := view.Periods()
	var issues []domain.Issue
	for _, class := range view.Classes() {
		for day := 0; day < domain.Days; day++ {
			marks := make(map[string][]bool)
			var order []string
			for period := 0; period < periods; period++ {
				for _, l := range view.Slot(class.ID, day, period) {
					m, ok := marks[l.SubjectID]
					if !ok {
						m = make([]bool, periods)
						marks[l.SubjectID] = m
						order = append(order, l.SubjectID)
					}
					m[period] = true
				}
			}
			for _, subjectID := range order {
				for _, run := range runsAtLeast(marks[subjectID], r.threshold) {
					issues = append(issues, domain.Issue{
						Rule:  RuleSameSubjectConsecutive,
						Level: domain.LevelWarning,
						Message: fmt.Sprintf("class %s has %s for %d consecutive periods on %s (periods %d-%d)",
							class.Name, subjectName(view, subjectID), run.length(), dayName(day), run.start+1, run.end+1),
						Entity:   domain.EntityClass,
						EntityID: class.ID,
						Slots:    runSlots(class.ID, day, run),
					})
				}
			}
		}
	}
	return issues, nil
}

// NewTeacherFreePeriodsRule reports days on which a teacher who teaches at
// all has n or more free periods.
func NewTeacherFreePeriodsRule(n int) domain.ThresholdRule {
	return &teacherFreePeriodsRule{thresholdRule{threshold: n}}
}

type teacherFreePeriodsRule struct{ thresholdRule }

func (*teacherFreePeriodsRule) ID() string          { return RuleTeacherFreePeriods }
func (*teacherFreePeriodsRule) Name() string        { return "Teacher free periods" }
func (*teacherFreePeriodsRule) Level() domain.Level { return domain.LevelInfo }

func (r *teacherFreePeriodsRule) Evaluate(_ context.Context, view domain.ScheduleView) ([]domain.Issue, error) {
	occupancy := teacherOccupancy(view)
	var issues []domain.Issue
	for _, teacher := range view.Teachers() {
		week, ok := occupancy[teacher.ID]
		if !ok {
			continue
		}
		for day := 0; day < domain.Days; day++ {
			busy := 0
			for _, b := range week[day] {
				if b {
					busy++
				}
			}
			if busy == 0 {
				continue
			}
			if free := len(week[day]) - busy; free >= r.threshold {
				issues = append(issues, domain.Issue{
					Rule:     RuleTeacherFreePeriods,
					Level:    domain.LevelInfo,
					Message:  fmt.Sprintf("%s has %d free periods on %s", teacher.Name, free, dayName(day)),
					Entity:   domain.EntityTeacher,
					EntityID: teacher.ID,
				})
			}
		}
	}
	return issues, nil
}
