package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// Service is the concurrency-safe facade over Store and ValidationEngine.
// Every call is serialized, so adapters and background jobs may share it.
type Service struct {
	mu      sync.Mutex
	store   *Store
	engine  *ValidationEngine
	log     logrus.FieldLogger
	metrics MetricsRecorder
	clock   Clock
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	log     logrus.FieldLogger
	metrics MetricsRecorder
	clock   Clock
	newID   func() string
	engine  *ValidationEngine
}

// WithLogger sets the structured logger.
func WithLogger(log logrus.FieldLogger) ServiceOption {
	return func(c *serviceConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(c *serviceConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithClock overrides the time source used for parking timestamps and timing.
func WithClock(clock Clock) ServiceOption {
	return func(c *serviceConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(c *serviceConfig) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithValidationEngine replaces the default engine.
func WithValidationEngine(engine *ValidationEngine) ServiceOption {
	return func(c *serviceConfig) {
		if engine != nil {
			c.engine = engine
		}
	}
}

// NewService constructs a service writing through to kv. A nil kv keeps
// everything in memory.
func NewService(kv domain.StateStore, opts ...ServiceOption) *Service {
	cfg := serviceConfig{
		log:     logrus.StandardLogger(),
		metrics: noopMetrics{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	store := NewStore(kv, cfg.log)
	store.SetClock(cfg.clock)
	store.SetIDGenerator(cfg.newID)
	engine := cfg.engine
	if engine == nil {
		engine = NewDefaultValidationEngine(store.state.Settings.Validation)
	}
	return &Service{
		store:   store,
		engine:  engine,
		log:     cfg.log,
		metrics: cfg.metrics,
		clock:   cfg.clock,
	}
}

// NewInMemoryService constructs a service without durable storage.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(nil, opts...)
}

// run executes fn under the service lock, then logs and records the outcome.
func (s *Service) run(ctx context.Context, op string, fields logrus.Fields, fn func() domain.OpResult) domain.OpResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.clock.Now()
	res := fn()
	s.metrics.Observe(ctx, op, res.Success, s.clock.Now().Sub(start))
	entry := s.log.WithField("op", op).WithFields(fields).WithField("success", res.Success)
	if res.Success {
		entry.Debug(res.Message)
	} else {
		entry.Warn(res.Message)
	}
	return res
}

func boolResult(ok bool, format string, args ...any) domain.OpResult {
	if ok {
		return domain.OK(1, format, args...)
	}
	return domain.Fail("%s failed", fmt.Sprintf(format, args...))
}

func slotFields(classID string, day, period int) logrus.Fields {
	return logrus.Fields{"class": classID, "day": day, "period": period}
}

// read runs fn under the service lock without logging.
func (s *Service) read(fn func(st *Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
}

// Load hydrates the store from durable storage and applies persisted thresholds.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.clock.Now()
	err := s.store.Load(ctx)
	s.metrics.Observe(ctx, "load", err == nil, s.clock.Now().Sub(start))
	if err != nil {
		s.log.WithError(err).Error("load state")
		return err
	}
	s.engine.ApplySettings(s.store.state.Settings.Validation)
	s.log.WithFields(logrus.Fields{
		"teachers": len(s.store.state.Teachers),
		"classes":  len(s.store.state.classes),
	}).Info("state loaded")
	return nil
}

// State returns a deep copy of the whole state.
func (s *Service) State() State {
	var st State
	s.read(func(store *Store) { st = store.State() })
	return st
}

// ReplaceState applies transform to a copy of the state and swaps the result
// in wholesale, clearing undo history. A transform error aborts without change.
func (s *Service) ReplaceState(ctx context.Context, op string, transform func(State) (State, error)) domain.OpResult {
	return s.run(ctx, op, nil, func() domain.OpResult {
		next, err := transform(s.store.State())
		if err != nil {
			return domain.Fail("%v", err)
		}
		ok := s.store.Replace(ctx, next)
		s.store.ClearHistory()
		s.engine.ApplySettings(s.store.state.Settings.Validation)
		return boolResult(ok, "%s", op)
	})
}

// Slots

// SetSlot places or clears a lesson.
func (s *Service) SetSlot(ctx context.Context, classID string, day, period int, subjectID string, teacherIDs, roomIDs []string, appendMode bool) bool {
	fields := slotFields(classID, day, period)
	fields["subject"] = subjectID
	fields["append"] = appendMode
	return s.run(ctx, "set_slot", fields, func() domain.OpResult {
		return boolResult(s.store.SetSlot(ctx, classID, day, period, subjectID, teacherIDs, roomIDs, appendMode), "set slot")
	}).Success
}

// GetSlot returns the slot's lessons; never nil.
func (s *Service) GetSlot(classID string, day, period int) []domain.Lesson {
	var out []domain.Lesson
	s.read(func(store *Store) { out = store.GetSlot(classID, day, period) })
	return out
}

// ClearSlot empties the slot.
func (s *Service) ClearSlot(ctx context.Context, classID string, day, period int) bool {
	return s.run(ctx, "clear_slot", slotFields(classID, day, period), func() domain.OpResult {
		return boolResult(s.store.ClearSlot(ctx, classID, day, period), "clear slot")
	}).Success
}

// MoveSingleLesson moves one subject's lesson within a class.
func (s *Service) MoveSingleLesson(ctx context.Context, classID string, fromDay, fromPeriod int, subjectID string, teacherIDs []string, toDay, toPeriod int) bool {
	fields := slotFields(classID, fromDay, fromPeriod)
	fields["to_day"], fields["to_period"], fields["subject"] = toDay, toPeriod, subjectID
	return s.run(ctx, "move_single_lesson", fields, func() domain.OpResult {
		return boolResult(s.store.MoveSingleLesson(ctx, classID, fromDay, fromPeriod, subjectID, teacherIDs, toDay, toPeriod), "move lesson")
	}).Success
}

// RemoveLesson deletes one subject's lesson from the slot.
func (s *Service) RemoveLesson(ctx context.Context, classID string, day, period int, subjectID string) bool {
	return s.run(ctx, "remove_lesson", slotFields(classID, day, period), func() domain.OpResult {
		return boolResult(s.store.RemoveLesson(ctx, classID, day, period, subjectID), "remove lesson")
	}).Success
}

// RemoveTeacherFromLesson drops one teacher from a lesson.
func (s *Service) RemoveTeacherFromLesson(ctx context.Context, classID string, day, period int, subjectID, teacherID string) bool {
	fields := slotFields(classID, day, period)
	fields["teacher"] = teacherID
	return s.run(ctx, "remove_teacher_from_lesson", fields, func() domain.OpResult {
		return boolResult(s.store.RemoveTeacherFromLesson(ctx, classID, day, period, subjectID, teacherID), "remove teacher")
	}).Success
}

// CountPlacedHours counts placed lessons of an assignment triple.
func (s *Service) CountPlacedHours(teacherID, subjectID, classID string) int {
	var n int
	s.read(func(store *Store) { n = store.CountPlacedHours(teacherID, subjectID, classID) })
	return n
}

// Proposals

// ProposePlacement classifies a placement without applying it.
func (s *Service) ProposePlacement(classID string, day, period int, subjectID string, teacherIDs, roomIDs []string) Proposal {
	var p Proposal
	s.read(func(store *Store) { p = store.ProposePlacement(classID, day, period, subjectID, teacherIDs, roomIDs) })
	return p
}

// CommitPlacement applies a proposal, snapshotting first so it can be undone.
func (s *Service) CommitPlacement(ctx context.Context, p Proposal, mode PlacementMode) bool {
	fields := slotFields(p.ClassID, p.Day, p.Period)
	fields["kind"], fields["mode"] = p.Kind, mode
	return s.run(ctx, "commit_placement", fields, func() domain.OpResult {
		s.store.Snapshot()
		return boolResult(s.store.CommitPlacement(ctx, p, mode), "commit placement")
	}).Success
}

// Conflicts and groups

// CheckConflicts scans for teacher double-bookings.
func (s *Service) CheckConflicts() []Conflict {
	var out []Conflict
	s.read(func(store *Store) { out = store.CheckConflicts() })
	return out
}

// CheckTTConflict runs the advisory pre-placement check.
func (s *Service) CheckTTConflict(classID string, day, period int, teacherID, subjectID string) TTCheck {
	var out TTCheck
	s.read(func(store *Store) { out = store.CheckTTConflict(classID, day, period, teacherID, subjectID) })
	return out
}

// TTGroup resolves the joint-lesson group at a time.
func (s *Service) TTGroup(day, period int, subjectID string) []GroupMember {
	var out []GroupMember
	s.read(func(store *Store) { out = store.TTGroup(day, period, subjectID) })
	return out
}

// LinkedLessons resolves the lessons tied to the slot by linked groups.
func (s *Service) LinkedLessons(classID string, day, period int) []GroupMember {
	var out []GroupMember
	s.read(func(store *Store) { out = store.LinkedLessons(classID, day, period) })
	return out
}

// IsTTSlot classifies the slot's team-teaching relationships.
func (s *Service) IsTTSlot(classID string, day, period int) TTKind {
	var out TTKind
	s.read(func(store *Store) { out = store.IsTTSlot(classID, day, period) })
	return out
}

// IsElectiveSlot returns the slot's elective group id, or "".
func (s *Service) IsElectiveSlot(classID string, day, period int) string {
	var out string
	s.read(func(store *Store) { out = store.IsElectiveSlot(classID, day, period) })
	return out
}

// MoveTTGroup moves a joint-lesson group.
func (s *Service) MoveTTGroup(ctx context.Context, day, period int, subjectID string, toDay, toPeriod int) domain.OpResult {
	fields := logrus.Fields{"day": day, "period": period, "subject": subjectID, "to_day": toDay, "to_period": toPeriod}
	return s.run(ctx, "move_tt_group", fields, func() domain.OpResult {
		return s.store.MoveTTGroup(ctx, day, period, subjectID, toDay, toPeriod)
	})
}

// MoveLinkedLessons moves a slot with its linked group members.
func (s *Service) MoveLinkedLessons(ctx context.Context, classID string, day, period, toDay, toPeriod int) domain.OpResult {
	fields := slotFields(classID, day, period)
	fields["to_day"], fields["to_period"] = toDay, toPeriod
	return s.run(ctx, "move_linked_lessons", fields, func() domain.OpResult {
		return s.store.MoveLinkedLessons(ctx, classID, day, period, toDay, toPeriod)
	})
}

// MoveElectiveGroup moves an elective group's lessons at a time.
func (s *Service) MoveElectiveGroup(ctx context.Context, day, period int, groupID string, toDay, toPeriod int) domain.OpResult {
	fields := logrus.Fields{"day": day, "period": period, "group": groupID, "to_day": toDay, "to_period": toPeriod}
	return s.run(ctx, "move_elective_group", fields, func() domain.OpResult {
		return s.store.MoveElectiveGroup(ctx, day, period, groupID, toDay, toPeriod)
	})
}

// DeleteLinkedLessons clears a slot with its linked group members.
func (s *Service) DeleteLinkedLessons(ctx context.Context, classID string, day, period int) domain.OpResult {
	return s.run(ctx, "delete_linked_lessons", slotFields(classID, day, period), func() domain.OpResult {
		return s.store.DeleteLinkedLessons(ctx, classID, day, period)
	})
}

// DeleteTTGroup removes a joint-lesson group.
func (s *Service) DeleteTTGroup(ctx context.Context, day, period int, subjectID string) domain.OpResult {
	fields := logrus.Fields{"day": day, "period": period, "subject": subjectID}
	return s.run(ctx, "delete_tt_group", fields, func() domain.OpResult {
		return s.store.DeleteTTGroup(ctx, day, period, subjectID)
	})
}

// LinkSlots declares a linked group.
func (s *Service) LinkSlots(ctx context.Context, refs []domain.SlotRef) (domain.LinkedGroup, domain.OpResult) {
	var group domain.LinkedGroup
	res := s.run(ctx, "link_slots", logrus.Fields{"slots": len(refs)}, func() domain.OpResult {
		var res domain.OpResult
		group, res = s.store.LinkSlots(ctx, refs)
		return res
	})
	return group, res
}

// UnlinkGroup dissolves a linked group.
func (s *Service) UnlinkGroup(ctx context.Context, groupID string) domain.OpResult {
	return s.run(ctx, "unlink_group", logrus.Fields{"group": groupID}, func() domain.OpResult {
		return s.store.UnlinkGroup(ctx, groupID)
	})
}

// Parking

// ParkedItems lists a teacher's parked lessons.
func (s *Service) ParkedItems(teacherID string) []domain.ParkingItem {
	var out []domain.ParkingItem
	s.read(func(store *Store) { out = store.ParkedItems(teacherID) })
	return out
}

// MoveToParking parks a teacher's lesson.
func (s *Service) MoveToParking(ctx context.Context, teacherID, classID string, day, period int) domain.OpResult {
	fields := slotFields(classID, day, period)
	fields["teacher"] = teacherID
	return s.run(ctx, "move_to_parking", fields, func() domain.OpResult {
		return s.store.MoveToParking(ctx, teacherID, classID, day, period)
	})
}

// MoveToParkingBulk parks every matching lesson of a teacher.
func (s *Service) MoveToParkingBulk(ctx context.Context, teacherID string, filter ParkingFilter) domain.OpResult {
	return s.run(ctx, "move_to_parking_bulk", logrus.Fields{"teacher": teacherID}, func() domain.OpResult {
		return s.store.MoveToParkingBulk(ctx, teacherID, filter)
	})
}

// RestoreFromParking re-places a parked lesson.
func (s *Service) RestoreFromParking(ctx context.Context, teacherID, itemID string, target *domain.SlotKey) domain.OpResult {
	return s.run(ctx, "restore_from_parking", logrus.Fields{"teacher": teacherID, "item": itemID}, func() domain.OpResult {
		return s.store.RestoreFromParking(ctx, teacherID, itemID, target)
	})
}

// RestoreAllFromParking re-places every parked lesson of a teacher.
func (s *Service) RestoreAllFromParking(ctx context.Context, teacherID string) domain.OpResult {
	return s.run(ctx, "restore_all_from_parking", logrus.Fields{"teacher": teacherID}, func() domain.OpResult {
		return s.store.RestoreAllFromParking(ctx, teacherID)
	})
}

// DiscardParked drops a parked lesson.
func (s *Service) DiscardParked(ctx context.Context, teacherID, itemID string) domain.OpResult {
	return s.run(ctx, "discard_parked", logrus.Fields{"teacher": teacherID, "item": itemID}, func() domain.OpResult {
		return s.store.DiscardParked(ctx, teacherID, itemID)
	})
}

// History

// Snapshot records undoable state.
func (s *Service) Snapshot() {
	s.read(func(store *Store) { store.Snapshot() })
}

// Undo reverts to the newest snapshot.
func (s *Service) Undo(ctx context.Context) domain.OpResult {
	return s.run(ctx, "undo", nil, func() domain.OpResult { return s.store.Undo(ctx) })
}

// Redo reapplies the newest undone state.
func (s *Service) Redo(ctx context.Context) domain.OpResult {
	return s.run(ctx, "redo", nil, func() domain.OpResult { return s.store.Redo(ctx) })
}

// CanUndo reports whether an undo is available.
func (s *Service) CanUndo() bool {
	var ok bool
	s.read(func(store *Store) { ok = store.CanUndo() })
	return ok
}

// CanRedo reports whether a redo is available.
func (s *Service) CanRedo() bool {
	var ok bool
	s.read(func(store *Store) { ok = store.CanRedo() })
	return ok
}

// Registry

// AddTeacher registers a teacher.
func (s *Service) AddTeacher(ctx context.Context, t domain.Teacher) domain.OpResult {
	return s.run(ctx, "add_teacher", logrus.Fields{"teacher": t.ID}, func() domain.OpResult { return s.store.AddTeacher(ctx, t) })
}

// UpdateTeacher updates a teacher.
func (s *Service) UpdateTeacher(ctx context.Context, t domain.Teacher) domain.OpResult {
	return s.run(ctx, "update_teacher", logrus.Fields{"teacher": t.ID}, func() domain.OpResult { return s.store.UpdateTeacher(ctx, t) })
}

// DeleteTeacher removes a teacher and cascades.
func (s *Service) DeleteTeacher(ctx context.Context, id string) domain.OpResult {
	return s.run(ctx, "delete_teacher", logrus.Fields{"teacher": id}, func() domain.OpResult { return s.store.DeleteTeacher(ctx, id) })
}

// AddCategory registers a category.
func (s *Service) AddCategory(ctx context.Context, c domain.Category) domain.OpResult {
	return s.run(ctx, "add_category", logrus.Fields{"category": c.ID}, func() domain.OpResult { return s.store.AddCategory(ctx, c) })
}

// UpdateCategory updates a category.
func (s *Service) UpdateCategory(ctx context.Context, c domain.Category) domain.OpResult {
	return s.run(ctx, "update_category", logrus.Fields{"category": c.ID}, func() domain.OpResult { return s.store.UpdateCategory(ctx, c) })
}

// DeleteCategory removes an unused category.
func (s *Service) DeleteCategory(ctx context.Context, id string) domain.OpResult {
	return s.run(ctx, "delete_category", logrus.Fields{"category": id}, func() domain.OpResult { return s.store.DeleteCategory(ctx, id) })
}

// AddSubject registers a subject.
func (s *Service) AddSubject(ctx context.Context, subj domain.Subject) domain.OpResult {
	return s.run(ctx, "add_subject", logrus.Fields{"subject": subj.ID}, func() domain.OpResult { return s.store.AddSubject(ctx, subj) })
}

// UpdateSubject updates a subject.
func (s *Service) UpdateSubject(ctx context.Context, subj domain.Subject) domain.OpResult {
	return s.run(ctx, "update_subject", logrus.Fields{"subject": subj.ID}, func() domain.OpResult { return s.store.UpdateSubject(ctx, subj) })
}

// DeleteSubject removes a subject and cascades.
func (s *Service) DeleteSubject(ctx context.Context, id string) domain.OpResult {
	return s.run(ctx, "delete_subject", logrus.Fields{"subject": id}, func() domain.OpResult { return s.store.DeleteSubject(ctx, id) })
}

// AddSpecialClassroom registers a room.
func (s *Service) AddSpecialClassroom(ctx context.Context, r domain.SpecialClassroom) domain.OpResult {
	return s.run(ctx, "add_special_classroom", logrus.Fields{"room": r.ID}, func() domain.OpResult { return s.store.AddSpecialClassroom(ctx, r) })
}

// UpdateSpecialClassroom updates a room.
func (s *Service) UpdateSpecialClassroom(ctx context.Context, r domain.SpecialClassroom) domain.OpResult {
	return s.run(ctx, "update_special_classroom", logrus.Fields{"room": r.ID}, func() domain.OpResult { return s.store.UpdateSpecialClassroom(ctx, r) })
}

// DeleteSpecialClassroom removes a room.
func (s *Service) DeleteSpecialClassroom(ctx context.Context, id string) domain.OpResult {
	return s.run(ctx, "delete_special_classroom", logrus.Fields{"room": id}, func() domain.OpResult { return s.store.DeleteSpecialClassroom(ctx, id) })
}

// AddMeeting registers a meeting.
func (s *Service) AddMeeting(ctx context.Context, m domain.Meeting) (domain.Meeting, domain.OpResult) {
	var created domain.Meeting
	res := s.run(ctx, "add_meeting", logrus.Fields{"meeting": m.Name}, func() domain.OpResult {
		var res domain.OpResult
		created, res = s.store.AddMeeting(ctx, m)
		return res
	})
	return created, res
}

// UpdateMeeting updates a meeting.
func (s *Service) UpdateMeeting(ctx context.Context, m domain.Meeting) domain.OpResult {
	return s.run(ctx, "update_meeting", logrus.Fields{"meeting": m.ID}, func() domain.OpResult { return s.store.UpdateMeeting(ctx, m) })
}

// DeleteMeeting removes a meeting.
func (s *Service) DeleteMeeting(ctx context.Context, id string) domain.OpResult {
	return s.run(ctx, "delete_meeting", logrus.Fields{"meeting": id}, func() domain.OpResult { return s.store.DeleteMeeting(ctx, id) })
}

// SetAssignment creates or updates an assignment.
func (s *Service) SetAssignment(ctx context.Context, a domain.Assignment) domain.OpResult {
	fields := logrus.Fields{"teacher": a.TeacherID, "subject": a.SubjectID, "class": a.ClassID}
	return s.run(ctx, "set_assignment", fields, func() domain.OpResult { return s.store.SetAssignment(ctx, a) })
}

// DeleteAssignment removes an assignment.
func (s *Service) DeleteAssignment(ctx context.Context, key domain.AssignmentKey) domain.OpResult {
	fields := logrus.Fields{"teacher": key.TeacherID, "subject": key.SubjectID, "class": key.ClassID}
	return s.run(ctx, "delete_assignment", fields, func() domain.OpResult { return s.store.DeleteAssignment(ctx, key) })
}

// AddElectiveGroup declares an elective group.
func (s *Service) AddElectiveGroup(ctx context.Context, g domain.ElectiveGroup) (domain.ElectiveGroup, domain.OpResult) {
	var created domain.ElectiveGroup
	res := s.run(ctx, "add_elective_group", logrus.Fields{"group": g.Name}, func() domain.OpResult {
		var res domain.OpResult
		created, res = s.store.AddElectiveGroup(ctx, g)
		return res
	})
	return created, res
}

// UpdateElectiveGroup updates an elective group.
func (s *Service) UpdateElectiveGroup(ctx context.Context, g domain.ElectiveGroup) domain.OpResult {
	return s.run(ctx, "update_elective_group", logrus.Fields{"group": g.ID}, func() domain.OpResult { return s.store.UpdateElectiveGroup(ctx, g) })
}

// DeleteElectiveGroup removes an elective group.
func (s *Service) DeleteElectiveGroup(ctx context.Context, id string) domain.OpResult {
	return s.run(ctx, "delete_elective_group", logrus.Fields{"group": id}, func() domain.OpResult { return s.store.DeleteElectiveGroup(ctx, id) })
}

// UpdateSettings replaces settings, regenerating classes and thresholds.
func (s *Service) UpdateSettings(ctx context.Context, settings domain.Settings) domain.OpResult {
	return s.run(ctx, "update_settings", logrus.Fields{"periods": settings.Periods}, func() domain.OpResult {
		res := s.store.UpdateSettings(ctx, settings)
		if res.Success {
			s.engine.ApplySettings(s.store.state.Settings.Validation)
		}
		return res
	})
}

// SetUnavailable replaces a teacher's unavailable slots.
func (s *Service) SetUnavailable(ctx context.Context, teacherID string, keys []string) domain.OpResult {
	return s.run(ctx, "set_unavailable", logrus.Fields{"teacher": teacherID}, func() domain.OpResult {
		return s.store.SetUnavailable(ctx, teacherID, keys)
	})
}

// Classes returns the generated class sections.
func (s *Service) Classes() []domain.ClassSection {
	var out []domain.ClassSection
	s.read(func(store *Store) { out = store.Classes() })
	return out
}

// Validation

// Validate runs the validation engine over the current schedule.
func (s *Service) Validate(ctx context.Context) (domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.clock.Now()
	report, err := s.engine.Run(ctx, s.store.View())
	s.metrics.Observe(ctx, "validate", err == nil, s.clock.Now().Sub(start))
	if err != nil {
		s.log.WithError(err).Error("validate")
		return domain.Report{}, err
	}
	if rr, ok := s.metrics.(ReportRecorder); ok {
		rr.ObserveReport(ctx, report)
	}
	s.log.WithFields(logrus.Fields{
		"errors":   len(report.Errors),
		"warnings": len(report.Warnings),
		"infos":    len(report.Infos),
	}).Info(report.Summary())
	return report, nil
}

// Rules lists the validation rules and their configuration.
func (s *Service) Rules() []RuleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Rules()
}

// SetRuleEnabled toggles a validation rule.
func (s *Service) SetRuleEnabled(ctx context.Context, id string, enabled bool) domain.OpResult {
	return s.run(ctx, "set_rule_enabled", logrus.Fields{"rule": id, "enabled": enabled}, func() domain.OpResult {
		if !s.engine.SetEnabled(id, enabled) {
			return domain.Fail("rule %s not found", id)
		}
		return domain.OK(1, "rule %s enabled=%t", id, enabled)
	})
}

// SetRuleThreshold updates a threshold rule and persists it in settings.
func (s *Service) SetRuleThreshold(ctx context.Context, id string, n int) domain.OpResult {
	return s.run(ctx, "set_rule_threshold", logrus.Fields{"rule": id, "threshold": n}, func() domain.OpResult {
		v := &s.store.state.Settings.Validation
		var field *int
		switch id {
		case RuleTeacherConsecutive:
			field = &v.TeacherConsecutive
		case RuleClassConsecutive:
			field = &v.ClassConsecutive
		case RuleSameSubjectConsecutive:
			field = &v.SameSubjectConsecutive
		case RuleTeacherFreePeriods:
			field = &v.TeacherFreePeriods
		}
		if field == nil || !s.engine.SetThreshold(id, n) {
			return domain.Fail("rule %s has no threshold", id)
		}
		*field = n
		return s.store.saved(ctx, domain.OK(1, "rule %s threshold %d", id, n), domain.BucketSettings)
	})
}

// PlacementTotals sums placed and required hours.
func (s *Service) PlacementTotals() (placed, required int) {
	s.read(func(store *Store) { placed, required = PlacementTotals(store.View()) })
	return placed, required
}
