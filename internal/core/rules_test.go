package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

func runRule(t *testing.T, rule domain.Rule, s *Store) []domain.Issue {
	t.Helper()
	issues, err := rule.Evaluate(context.Background(), s.View())
	if err != nil {
		t.Fatalf("evaluate %s: %v", rule.ID(), err)
	}
	return issues
}

func TestLessonCountMismatchUnderAndOver(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.state.Assignments = []domain.Assignment{{TeacherID: "t1", SubjectID: "math", ClassID: "1-1", Hours: 4}}
	for day := 0; day < 3; day++ {
		mustSet(t, s, "1-1", day, 0, "math", []string{"t1"}, false)
	}
	issues := runRule(t, NewLessonCountMismatchRule(), s)
	if len(issues) != 1 || issues[0].Level != domain.LevelError || !strings.Contains(issues[0].Message, "placed 3/4") {
		t.Fatalf("expected 3/4 under-placement error, got %+v", issues)
	}
	mustSet(t, s, "1-1", 3, 0, "math", []string{"t1"}, false)
	if issues := runRule(t, NewLessonCountMismatchRule(), s); len(issues) != 0 {
		t.Fatalf("exact placement should be clean, got %+v", issues)
	}
	mustSet(t, s, "1-1", 4, 0, "math", []string{"t1"}, false)
	issues = runRule(t, NewLessonCountMismatchRule(), s)
	if len(issues) != 1 || !strings.Contains(issues[0].Message, "1 over") {
		t.Fatalf("expected 1-over error, got %+v", issues)
	}
}

func TestTeacherConsecutiveSingleRun(t *testing.T) {
	s, _, _ := newTestStore(t)
	for period := 0; period < 5; period++ {
		mustSet(t, s, "1-1", 0, period, "math", []string{"t1"}, false)
	}
	issues := runRule(t, NewTeacherConsecutiveRule(4), s)
	if len(issues) != 1 {
		t.Fatalf("expected exactly one warning, got %+v", issues)
	}
	if !strings.Contains(issues[0].Message, "periods 1-5") || issues[0].Level != domain.LevelWarning {
		t.Fatalf("warning should span periods 1-5, got %q", issues[0].Message)
	}
	if issues := runRule(t, NewTeacherConsecutiveRule(domain.ThresholdOff), s); len(issues) != 0 {
		t.Fatalf("disabled threshold must never fire, got %+v", issues)
	}
	if issues := runRule(t, NewTeacherConsecutiveRule(6), s); len(issues) != 0 {
		t.Fatalf("run shorter than threshold must not fire")
	}
}

func TestTeacherConsecutiveCountsAcrossClasses(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustSet(t, s, "1-1", 1, 0, "math", []string{"t1"}, false)
	mustSet(t, s, "1-2", 1, 1, "math", []string{"t1"}, false)
	mustSet(t, s, "non_class_duty", 1, 2, "hr", []string{"t1"}, false)
	mustSet(t, s, "2-1", 1, 4, "math", []string{"t1"}, false)
	issues := runRule(t, NewTeacherConsecutiveRule(3), s)
	if len(issues) != 1 || !strings.Contains(issues[0].Message, "periods 1-3") {
		t.Fatalf("expected one run over periods 1-3, got %+v", issues)
	}
}

func TestClassConsecutiveAndSameSubject(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustSet(t, s, "1-1", 2, 0, "math", []string{"t1"}, false)
	mustSet(t, s, "1-1", 2, 1, "math", []string{"t2"}, false)
	mustSet(t, s, "1-1", 2, 2, "math", []string{"t3"}, false)
	mustSet(t, s, "1-1", 2, 3, "eng", []string{"t1"}, false)
	if issues := runRule(t, NewClassConsecutiveRule(domain.ThresholdOff), s); len(issues) != 0 {
		t.Fatalf("class rule is off by default")
	}
	class := runRule(t, NewClassConsecutiveRule(4), s)
	if len(class) != 1 || len(class[0].Slots) != 4 {
		t.Fatalf("expected one 4-period class run, got %+v", class)
	}
	same := runRule(t, NewSameSubjectConsecutiveRule(3), s)
	if len(same) != 1 || !strings.Contains(same[0].Message, "Math") || len(same[0].Slots) != 3 {
		t.Fatalf("expected one same-subject run, got %+v", same)
	}
}

func TestDoubleBookingRules(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	mustSet(t, s, "1-1", 0, 0, "math", []string{"t1"}, false)
	mustSet(t, s, "1-1", 0, 0, "eng", []string{"t2"}, true)
	mustSet(t, s, "1-2", 0, 1, "elA", []string{"t1"}, true)
	mustSet(t, s, "1-2", 0, 1, "elB", []string{"t2"}, true)
	mustSet(t, s, "non_class_duty", 0, 2, "hr", []string{"t1"}, true)
	mustSet(t, s, "non_class_duty", 0, 2, "sci", []string{"t2"}, true)
	class := runRule(t, NewClassDoubleBookingRule(), s)
	if len(class) != 1 || class[0].EntityID != "1-1" {
		t.Fatalf("expected only the non-elective class slot flagged, got %+v", class)
	}

	s.SetSlot(ctx, "2-1", 1, 0, "sci", []string{"t1"}, []string{"lab"}, false)
	s.SetSlot(ctx, "2-2", 1, 0, "math", []string{"t2"}, []string{"lab"}, false)
	s.SetSlot(ctx, "3-1", 1, 1, "sci", []string{"t3"}, []string{"lab"}, false)
	s.SetSlot(ctx, "3-2", 1, 1, "sci", []string{"t3"}, []string{"lab"}, false)
	rooms := runRule(t, NewRoomDoubleBookingRule(), s)
	if len(rooms) != 1 || rooms[0].EntityID != "lab" || len(rooms[0].Slots) != 2 {
		t.Fatalf("expected one room clash, joint lesson exempt, got %+v", rooms)
	}

	mustSet(t, s, "3-3", 4, 4, "math", []string{"t3"}, false)
	mustSet(t, s, "2-3", 4, 4, "eng", []string{"t3"}, false)
	teachers := runRule(t, NewTeacherDoubleBookingRule(), s)
	if len(teachers) != 1 || teachers[0].EntityID != "t3" || !strings.Contains(teachers[0].Message, "Tanaka") {
		t.Fatalf("expected t3 double-booking, got %+v", teachers)
	}
}

func TestMeetingAndUnavailableOverlap(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.state.Meetings = []domain.Meeting{{ID: "m1", Name: "Staff", TeacherIDs: []string{"t1"}, Schedule: []domain.MeetingSlot{{Day: 0, Period: 1}}}}
	s.state.Settings.UnavailableSlots = map[string][]string{"t2": {"1-2", "bad"}}
	mustSet(t, s, "1-1", 0, 0, "math", []string{"t1"}, false)
	mustSet(t, s, "1-1", 0, 1, "math", []string{"t1"}, false)
	mustSet(t, s, "1-2", 1, 2, "eng", []string{"t2"}, false)

	meetings := runRule(t, NewMeetingOverlapRule(), s)
	if len(meetings) != 1 || meetings[0].Slots[0].Period != 0 {
		t.Fatalf("meeting period 1 maps to slot period 0, got %+v", meetings)
	}
	unavailable := runRule(t, NewUnavailableOverlapRule(), s)
	if len(unavailable) != 1 || unavailable[0].EntityID != "t2" {
		t.Fatalf("expected one unavailable overlap, got %+v", unavailable)
	}
}

func TestTeacherFreePeriodsOnlyOnTeachingDays(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustSet(t, s, "1-1", 0, 0, "math", []string{"t1"}, false)
	mustSet(t, s, "1-1", 1, 0, "math", []string{"t2"}, false)
	mustSet(t, s, "1-1", 1, 1, "math", []string{"t2"}, false)
	mustSet(t, s, "1-1", 1, 2, "math", []string{"t2"}, false)
	issues := runRule(t, NewTeacherFreePeriodsRule(4), s)
	if len(issues) != 1 || issues[0].EntityID != "t1" || issues[0].Level != domain.LevelInfo {
		t.Fatalf("expected one info for t1's Monday, got %+v", issues)
	}
}

func TestPlacementRate(t *testing.T) {
	s, _, _ := newTestStore(t)
	if issues := runRule(t, NewPlacementRateRule(), s); len(issues) != 0 {
		t.Fatalf("no demand means no rate, got %+v", issues)
	}
	s.state.Assignments = []domain.Assignment{
		{TeacherID: "t1", SubjectID: "math", ClassID: "1-1", Hours: 2},
		{TeacherID: "t2", SubjectID: "eng", ClassID: "1-1", Hours: 2},
	}
	mustSet(t, s, "1-1", 0, 0, "math", []string{"t1"}, false)
	issues := runRule(t, NewPlacementRateRule(), s)
	if len(issues) != 1 || !strings.Contains(issues[0].Message, "25.0% (1/4)") {
		t.Fatalf("unexpected rate issue %+v", issues)
	}
}

func TestValidationEngineRunBucketsAndToggles(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	s.state.Assignments = []domain.Assignment{{TeacherID: "t1", SubjectID: "math", ClassID: "1-1", Hours: 5}}
	for period := 0; period < 4; period++ {
		mustSet(t, s, "1-1", 0, period, "math", []string{"t1"}, false)
	}
	settings := domain.DefaultValidationSettings()
	settings.SameSubjectConsecutive = domain.ThresholdOff
	engine := NewDefaultValidationEngine(settings)
	report, err := engine.Run(ctx, s.View())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Count(domain.LevelError) != 1 || report.Count(domain.LevelWarning) != 1 || report.Count(domain.LevelInfo) != 1 {
		t.Fatalf("unexpected report %s", report.Summary())
	}
	if got := report.Summary(); got != "errors: 1, warnings: 1, info: 1" {
		t.Fatalf("unexpected summary %q", got)
	}

	if !engine.SetEnabled(RuleLessonCountMismatch, false) || engine.SetEnabled("missing", false) {
		t.Fatalf("SetEnabled should report known ids only")
	}
	if !engine.SetThreshold(RuleTeacherConsecutive, domain.ThresholdOff) {
		t.Fatalf("threshold rule should accept off")
	}
	if engine.SetThreshold(RulePlacementRate, 3) {
		t.Fatalf("non-threshold rule must refuse thresholds")
	}
	report, err = engine.Run(ctx, s.View())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.HasErrors() || len(report.Warnings) != 0 {
		t.Fatalf("disabled rules must not fire: %s", report.Summary())
	}
	for _, info := range engine.Rules() {
		if info.ID == RuleLessonCountMismatch && info.Enabled {
			t.Fatalf("rule info should reflect disabled state")
		}
		if info.ID == RuleTeacherConsecutive && (info.Threshold == nil || *info.Threshold != domain.ThresholdOff) {
			t.Fatalf("rule info should expose threshold")
		}
	}
}

type failingRule struct{}

func (failingRule) ID() string          { return "failing" }
func (failingRule) Name() string        { return "failing" }
func (failingRule) Level() domain.Level { return domain.LevelError }
func (failingRule) Evaluate(context.Context, domain.ScheduleView) ([]domain.Issue, error) {
	return nil, errSaveRejected
}

func TestValidationEngineErrors(t *testing.T) {
	s, _, _ := newTestStore(t)
	engine := NewValidationEngine()
	engine.Register(failingRule{})
	if _, err := engine.Run(context.Background(), s.View()); !errors.Is(err, errSaveRejected) {
		t.Fatalf("expected wrapped rule error, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDefaultValidationEngine(domain.ValidationSettings{}).Run(ctx, s.View()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestDefaultRulesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, rule := range defaultRules(domain.DefaultValidationSettings()) {
		if rule.ID() == "" || rule.Name() == "" {
			t.Fatalf("rule with empty id or name: %#v", rule)
		}
		if seen[rule.ID()] {
			t.Fatalf("duplicate rule id %s", rule.ID())
		}
		seen[rule.ID()] = true
	}
	if len(seen) != 11 {
		t.Fatalf("expected 11 standard rules, got %d", len(seen))
	}
}
