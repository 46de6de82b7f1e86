package core

import (
	"context"
	"fmt"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// Standard rule identifiers.
const (
	RuleTeacherDoubleBooking   = "teacher_double_booking"
	RuleClassDoubleBooking     = "class_double_booking"
	RuleRoomDoubleBooking      = "room_double_booking"
	RuleLessonCountMismatch    = "lesson_count_mismatch"
	RuleTeacherConsecutive     = "teacher_consecutive"
	RuleClassConsecutive       = "class_consecutive"
	RuleMeetingOverlap         = "meeting_overlap"
	RuleUnavailableOverlap     = "unavailable_overlap"
	RuleSameSubjectConsecutive = "same_subject_consecutive"
	RuleTeacherFreePeriods     = "teacher_free_periods"
	RulePlacementRate          = "placement_rate"
)

// RuleInfo describes a registered rule and its current configuration.
type RuleInfo struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Level     domain.Level `json:"level"`
	Enabled   bool         `json:"enabled"`
	Threshold *int         `json:"threshold,omitempty"`
}

// ValidationEngine runs independent rules over a schedule and buckets their
// issues by level.
type ValidationEngine struct {
	rules    []domain.Rule
	disabled map[string]bool
}

// NewValidationEngine constructs an empty engine.
func NewValidationEngine() *ValidationEngine {
	return &ValidationEngine{disabled: make(map[string]bool)}
}

// NewDefaultValidationEngine builds an engine with the standard rule set
// parameterized by the given thresholds.
func NewDefaultValidationEngine(settings domain.ValidationSettings) *ValidationEngine {
	engine := NewValidationEngine()
	for _, rule := range defaultRules(settings) {
		engine.Register(rule)
	}
	return engine
}

func defaultRules(settings domain.ValidationSettings) []domain.Rule {
	settings = settings.Normalize()
	return []domain.Rule{
		NewTeacherDoubleBookingRule(),
		NewClassDoubleBookingRule(),
		NewRoomDoubleBookingRule(),
		NewLessonCountMismatchRule(),
		NewTeacherConsecutiveRule(settings.TeacherConsecutive),
		NewClassConsecutiveRule(settings.ClassConsecutive),
		NewMeetingOverlapRule(),
		NewUnavailableOverlapRule(),
		NewSameSubjectConsecutiveRule(settings.SameSubjectConsecutive),
		NewTeacherFreePeriodsRule(settings.TeacherFreePeriods),
		NewPlacementRateRule(),
	}
}

// Register appends a rule to the engine. A rule with the same id replaces the
// earlier registration.
func (e *ValidationEngine) Register(rule domain.Rule) {
	for i, existing := range e.rules {
		if existing.ID() == rule.ID() {
			e.rules[i] = rule
			return
		}
	}
	e.rules = append(e.rules, rule)
}

func (e *ValidationEngine) find(id string) domain.Rule {
	for _, rule := range e.rules {
		if rule.ID() == id {
			return rule
		}
	}
	return nil
}

// SetEnabled toggles a rule. It reports false for unknown ids.
func (e *ValidationEngine) SetEnabled(id string, enabled bool) bool {
	if e.find(id) == nil {
		return false
	}
	if enabled {
		delete(e.disabled, id)
	} else {
		e.disabled[id] = true
	}
	return true
}

// SetThreshold updates a threshold rule. domain.ThresholdOff disables it.
// It reports false for unknown ids and rules without a threshold.
func (e *ValidationEngine) SetThreshold(id string, n int) bool {
	rule, ok := e.find(id).(domain.ThresholdRule)
	if !ok || n <= 0 {
		return false
	}
	rule.SetThreshold(n)
	return true
}

// ApplySettings pushes persisted thresholds into the threshold rules.
func (e *ValidationEngine) ApplySettings(settings domain.ValidationSettings) {
	settings = settings.Normalize()
	e.SetThreshold(RuleTeacherConsecutive, settings.TeacherConsecutive)
	e.SetThreshold(RuleClassConsecutive, settings.ClassConsecutive)
	e.SetThreshold(RuleSameSubjectConsecutive, settings.SameSubjectConsecutive)
	e.SetThreshold(RuleTeacherFreePeriods, settings.TeacherFreePeriods)
}

// Rules lists the registered rules in registration order.
func (e *ValidationEngine) Rules() []RuleInfo {
	out := make([]RuleInfo, 0, len(e.rules))
	for _, rule := range e.rules {
		info := RuleInfo{ID: rule.ID(), Name: rule.Name(), Level: rule.Level(), Enabled: !e.disabled[rule.ID()]}
		if tr, ok := rule.(domain.ThresholdRule); ok {
			n := tr.Threshold()
			info.Threshold = &n
		}
		out = append(out, info)
	}
	return out
}

// Run evaluates every enabled rule and aggregates the issues.
func (e *ValidationEngine) Run(ctx context.Context, view domain.ScheduleView) (domain.Report, error) {
	var report domain.Report
	for _, rule := range e.rules {
		if e.disabled[rule.ID()] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return domain.Report{}, err
		}
		issues, err := rule.Evaluate(ctx, view)
		if err != nil {
			return domain.Report{}, fmt.Errorf("rule %s: %w", rule.ID(), err)
		}
		for _, issue := range issues {
			if issue.Rule == "" {
				issue.Rule = rule.ID()
			}
			if issue.Level == "" {
				issue.Level = rule.Level()
			}
			report.Add(issue)
		}
	}
	return report, nil
}

// Shared helpers for the standard rules.

var dayNames = [domain.Days]string{"Mon", "Tue", "Wed", "Thu", "Fri"}

func dayName(day int) string {
	if day >= 0 && day < domain.Days {
		return dayNames[day]
	}
	return fmt.Sprintf("day %d", day)
}

func teacherName(view domain.ScheduleView, id string) string {
	if t, ok := view.FindTeacher(id); ok && t.Name != "" {
		return t.Name
	}
	return id
}

func subjectName(view domain.ScheduleView, id string) string {
	if s, ok := view.FindSubject(id); ok && s.Name != "" {
		return s.Name
	}
	return id
}

// teacherOccupancy marks, per teacher and day, the periods they teach in.
func teacherOccupancy(view domain.ScheduleView) map[string][domain.Days][]bool {
	periods := view.Periods()
	out := make(map[string][domain.Days][]bool)
	for _, classID := range view.ScheduledClassIDs() {
		for day := 0; day < domain.Days; day++ {
			for period := 0; period < periods; period++ {
				for _, l := range view.Slot(classID, day, period) {
					for _, teacherID := range l.TeacherIDs {
						week, ok := out[teacherID]
						if !ok {
							for d := range week {
								week[d] = make([]bool, periods)
							}
						}
						week[day][period] = true
						out[teacherID] = week
					}
				}
			}
		}
	}
	return out
}

// run is a maximal stretch of consecutive marked periods.
type run struct {
	start int
	end   int // inclusive
}

func (r run) length() int { return r.end - r.start + 1 }

// runsAtLeast returns the maximal runs of marked periods whose length reaches n.
func runsAtLeast(marks []bool, n int) []run {
	var out []run
	start := -1
	for i := 0; i <= len(marks); i++ {
		if i < len(marks) && marks[i] {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if r := (run{start: start, end: i - 1}); r.length() >= n {
				out = append(out, r)
			}
			start = -1
		}
	}
	return out
}

func runSlots(classID string, day int, r run) []domain.SlotRef {
	out := make([]domain.SlotRef, 0, r.length())
	for p := r.start; p <= r.end; p++ {
		out = append(out, domain.SlotRef{ClassID: classID, Day: day, Period: p})
	}
	return out
}

// thresholdRule carries the shared threshold plumbing of the count-based rules.
type thresholdRule struct {
	threshold int
}

func (r *thresholdRule) Threshold() int { return r.threshold }

func (r *thresholdRule) SetThreshold(n int) {
	if n > 0 {
		r.threshold = n
	}
}
