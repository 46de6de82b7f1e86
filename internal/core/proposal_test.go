package core

import (
	"context"
	"reflect"
	"testing"
)

func TestProposePlacementClassifies(t *testing.T) {
	cases := []struct {
		name     string
		seed     func(t *testing.T, s *Store)
		subject  string
		teachers []string
		kind     ProposalKind
		mode     PlacementMode
	}{
		{
			name:     "empty",
			seed:     func(*testing.T, *Store) {},
			subject:  "math",
			teachers: []string{"t1"},
			kind:     ProposalEmpty,
			mode:     PlacementReplace,
		},
		{
			name: "team teaching",
			seed: func(t *testing.T, s *Store) {
				mustSet(t, s, "1-1", 0, 0, "math", []string{"t1"}, false)
			},
			subject:  "math",
			teachers: []string{"t2"},
			kind:     ProposalTeamTeaching,
			mode:     PlacementAppend,
		},
		{
			name: "elective",
			seed: func(t *testing.T, s *Store) {
				mustSet(t, s, "1-1", 0, 0, "elA", []string{"t1"}, false)
			},
			subject:  "elB",
			teachers: []string{"t2"},
			kind:     ProposalElective,
			mode:     PlacementAppend,
		},
		{
			name: "overwrite",
			seed: func(t *testing.T, s *Store) {
				mustSet(t, s, "1-1", 0, 0, "eng", []string{"t2"}, false)
			},
			subject:  "math",
			teachers: []string{"t1"},
			kind:     ProposalOverwrite,
			mode:     PlacementReplace,
		},
		{
			name: "double booking",
			seed: func(t *testing.T, s *Store) {
				mustSet(t, s, "1-2", 0, 0, "eng", []string{"t1"}, false)
			},
			subject:  "math",
			teachers: []string{"t1"},
			kind:     ProposalDoubleBooking,
			mode:     PlacementReplace,
		},
		{
			name: "joint lesson",
			seed: func(t *testing.T, s *Store) {
				mustSet(t, s, "1-2", 0, 0, "math", []string{"t1"}, false)
			},
			subject:  "math",
			teachers: []string{"t1"},
			kind:     ProposalJointLesson,
			mode:     PlacementReplace,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _, _ := newTestStore(t)
			tc.seed(t, s)
			before := s.State()
			p := s.ProposePlacement("1-1", 0, 0, tc.subject, tc.teachers, nil)
			if p.Kind != tc.kind || p.Mode != tc.mode {
				t.Fatalf("got kind=%s mode=%s, want %s/%s", p.Kind, p.Mode, tc.kind, tc.mode)
			}
			if p.Message == "" {
				t.Fatalf("proposal should carry a message")
			}
			if !reflect.DeepEqual(before, s.State()) {
				t.Fatalf("proposing must not mutate state")
			}
		})
	}
}

func TestProposePlacementReportsConflicts(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustSet(t, s, "1-2", 0, 0, "eng", []string{"t1"}, false)
	mustSet(t, s, "1-3", 0, 0, "math", []string{"t1"}, false)
	p := s.ProposePlacement("1-1", 0, 0, "math", []string{"t1", "t1"}, nil)
	if !reflect.DeepEqual(p.TeacherIDs, []string{"t1"}) {
		t.Fatalf("teacher ids should be deduplicated, got %v", p.TeacherIDs)
	}
	if len(p.Conflicts) != 1 || p.Conflicts[0].ClassID != "1-2" {
		t.Fatalf("only the incompatible booking should be listed, got %+v", p.Conflicts)
	}
	if p.Kind != ProposalDoubleBooking {
		t.Fatalf("double booking outranks joint lesson, got %s", p.Kind)
	}
}

func TestCommitPlacement(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	mustSet(t, s, "1-1", 0, 0, "math", []string{"t1"}, false)

	team := s.ProposePlacement("1-1", 0, 0, "math", []string{"t2"}, nil)
	if !s.CommitPlacement(ctx, team, "") {
		t.Fatalf("commit team teaching failed")
	}
	got := s.GetSlot("1-1", 0, 0)
	if len(got) != 1 || !reflect.DeepEqual(got[0].TeacherIDs, []string{"t1", "t2"}) {
		t.Fatalf("team teaching should merge teachers, got %+v", got)
	}

	over := s.ProposePlacement("1-1", 0, 0, "eng", []string{"t3"}, nil)
	if over.Kind != ProposalOverwrite {
		t.Fatalf("expected overwrite, got %s", over.Kind)
	}
	if !s.CommitPlacement(ctx, over, PlacementAppend) {
		t.Fatalf("commit with override mode failed")
	}
	if got := s.GetSlot("1-1", 0, 0); len(got) != 2 {
		t.Fatalf("append override should keep the existing lesson, got %+v", got)
	}

	replace := s.ProposePlacement("1-1", 0, 0, "sci", []string{"t3"}, []string{"lab"})
	if !s.CommitPlacement(ctx, replace, "") {
		t.Fatalf("commit replace failed")
	}
	got = s.GetSlot("1-1", 0, 0)
	if len(got) != 1 || got[0].SubjectID != "sci" || !reflect.DeepEqual(got[0].RoomIDs, []string{"lab"}) {
		t.Fatalf("replace should leave only the new lesson, got %+v", got)
	}

	if s.CommitPlacement(ctx, Proposal{ClassID: "1-1", Day: 7, SubjectID: "math"}, "") {
		t.Fatalf("out-of-grid commit must fail")
	}
}
