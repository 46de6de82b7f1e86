package core

import (
	"context"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// HistoryDepth caps both the undo and the redo stack.
const HistoryDepth = 5

// Snapshot is the undoable part of the state.
type Snapshot struct {
	Assignments  []domain.Assignment  `json:"assignments"`
	Timetable    domain.Timetable     `json:"timetable"`
	LinkedGroups []domain.LinkedGroup `json:"linkedGroups"`
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Assignments:  append([]domain.Assignment{}, s.Assignments...),
		Timetable:    s.Timetable.Clone(),
		LinkedGroups: domain.CloneLinkedGroups(s.LinkedGroups),
	}
}

type history struct {
	undo []Snapshot
	redo []Snapshot
}

func push(stack []Snapshot, snap Snapshot) []Snapshot {
	stack = append(stack, snap)
	if over := len(stack) - HistoryDepth; over > 0 {
		stack = append(stack[:0:0], stack[over:]...)
	}
	return stack
}

func (s *Store) current() Snapshot {
	return Snapshot{
		Assignments:  s.state.Assignments,
		Timetable:    s.state.Timetable,
		LinkedGroups: s.state.LinkedGroups,
	}.clone()
}

func (s *Store) apply(snap Snapshot) {
	snap = snap.clone()
	s.state.Assignments = snap.Assignments
	s.state.Timetable = snap.Timetable
	s.state.LinkedGroups = snap.LinkedGroups
}

// Snapshot records the undoable state ahead of a mutation and clears redo.
// Callers invoke it immediately before any change they want reversible.
func (s *Store) Snapshot() {
	s.history.undo = push(s.history.undo, s.current())
	s.history.redo = nil
}

// Undo swaps the live state with the newest snapshot.
func (s *Store) Undo(ctx context.Context) domain.OpResult {
	n := len(s.history.undo)
	if n == 0 {
		return domain.Fail("nothing to undo")
	}
	prev := s.history.undo[n-1]
	s.history.undo = s.history.undo[:n-1]
	s.history.redo = push(s.history.redo, s.current())
	s.apply(prev)
	if !s.persist(ctx, domain.BucketAssignments, domain.BucketTimetable, domain.BucketLinkedGroups) {
		return domain.Fail("undone but saving failed")
	}
	return domain.OK(0, "undone")
}

// Redo reapplies the newest undone state.
func (s *Store) Redo(ctx context.Context) domain.OpResult {
	n := len(s.history.redo)
	if n == 0 {
		return domain.Fail("nothing to redo")
	}
	next := s.history.redo[n-1]
	s.history.redo = s.history.redo[:n-1]
	s.history.undo = push(s.history.undo, s.current())
	s.apply(next)
	if !s.persist(ctx, domain.BucketAssignments, domain.BucketTimetable, domain.BucketLinkedGroups) {
		return domain.Fail("redone but saving failed")
	}
	return domain.OK(0, "redone")
}

// CanUndo reports whether an undo is available.
func (s *Store) CanUndo() bool { return len(s.history.undo) > 0 }

// CanRedo reports whether a redo is available.
func (s *Store) CanRedo() bool { return len(s.history.redo) > 0 }

// HistoryLen returns the sizes of the undo and redo stacks.
func (s *Store) HistoryLen() (undo, redo int) { return len(s.history.undo), len(s.history.redo) }

// ClearHistory drops both stacks.
func (s *Store) ClearHistory() {
	s.history = history{}
}
