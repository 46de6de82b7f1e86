package core

import (
	"context"
	"fmt"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// ProposalKind classifies what committing a placement would do.
type ProposalKind string

// Placement classifications.
const (
	ProposalEmpty         ProposalKind = "empty"
	ProposalTeamTeaching  ProposalKind = "team_teaching"
	ProposalJointLesson   ProposalKind = "joint_lesson"
	ProposalOverwrite     ProposalKind = "overwrite"
	ProposalElective      ProposalKind = "elective"
	ProposalDoubleBooking ProposalKind = "double_booking"
)

// PlacementMode selects how a committed placement treats existing lessons.
type PlacementMode string

// Commit modes.
const (
	PlacementReplace PlacementMode = "replace"
	PlacementAppend  PlacementMode = "append"
)

// Proposal is a placement evaluated against the current schedule but not yet
// applied. Declining is simply not committing it.
type Proposal struct {
	ClassID    string   `json:"classId"`
	Day        int      `json:"day"`
	Period     int      `json:"period"`
	SubjectID  string   `json:"subjectId"`
	TeacherIDs []string `json:"teacherIds"`
	RoomIDs    []string `json:"specialClassroomIds,omitempty"`

	Kind ProposalKind `json:"kind"`
	// Mode is the suggested commit mode for Kind.
	Mode     PlacementMode   `json:"mode"`
	Existing []domain.Lesson `json:"existing"`
	// Conflicts lists bookings in other classes the placement would double-book.
	Conflicts []Booking `json:"conflicts,omitempty"`
	Check     TTCheck   `json:"check"`
	Message   string    `json:"message"`
}

// ProposePlacement classifies a placement without mutating anything.
func ProposePlacement(view domain.ScheduleView, classID string, day, period int, subjectID string, teacherIDs, roomIDs []string) Proposal {
	p := Proposal{
		ClassID:    classID,
		Day:        day,
		Period:     period,
		SubjectID:  subjectID,
		TeacherIDs: dedupeStrings(teacherIDs),
		RoomIDs:    dedupeStrings(roomIDs),
		Existing:   view.Slot(classID, day, period),
		Mode:       PlacementReplace,
	}
	groups := view.ElectiveGroups()
	candidate := domain.Lesson{SubjectID: subjectID, TeacherIDs: p.TeacherIDs}
	joint := false
	for _, teacherID := range p.TeacherIDs {
		for _, b := range TeacherBusyAt(view, teacherID, day, period) {
			if b.ClassID == classID {
				continue
			}
			if compatible(groups, candidate, b.Lesson) {
				joint = joint || b.Lesson.SubjectID == subjectID
				continue
			}
			p.Conflicts = append(p.Conflicts, b)
		}
	}
	if len(p.TeacherIDs) > 0 {
		p.Check = CheckTTConflict(view, classID, day, period, p.TeacherIDs[0], subjectID)
	}

	sameSubject, others := false, make([]string, 0, len(p.Existing))
	for _, l := range p.Existing {
		if l.SubjectID == subjectID {
			sameSubject = true
			continue
		}
		others = append(others, l.SubjectID)
	}
	switch {
	case sameSubject:
		p.Kind, p.Mode = ProposalTeamTeaching, PlacementAppend
		p.Message = fmt.Sprintf("%s is already placed here; add as team teaching", subjectName(view, subjectID))
	case len(others) > 0 && electiveWith(groups, subjectID, others):
		p.Kind, p.Mode = ProposalElective, PlacementAppend
		p.Message = fmt.Sprintf("%s shares an elective group with the lessons here", subjectName(view, subjectID))
	case len(others) > 0:
		p.Kind = ProposalOverwrite
		p.Message = fmt.Sprintf("%s would replace %d existing lesson(s)", subjectName(view, subjectID), len(others))
	case len(p.Conflicts) > 0:
		p.Kind = ProposalDoubleBooking
		p.Message = fmt.Sprintf("teacher is already teaching in %s at this time", p.Conflicts[0].ClassID)
	case joint:
		p.Kind = ProposalJointLesson
		p.Message = p.Check.Message
	default:
		p.Kind = ProposalEmpty
		p.Message = "slot is free"
	}
	return p
}

func electiveWith(groups []domain.ElectiveGroup, subjectID string, others []string) bool {
	_, ok := electiveGroupOf(groups, append([]string{subjectID}, others...)...)
	return ok
}

// ProposePlacement classifies a placement against the store's current state.
func (s *Store) ProposePlacement(classID string, day, period int, subjectID string, teacherIDs, roomIDs []string) Proposal {
	return ProposePlacement(s.View(), classID, day, period, subjectID, teacherIDs, roomIDs)
}

// CommitPlacement applies the proposal unconditionally. An empty mode uses the
// proposal's suggested one.
func (s *Store) CommitPlacement(ctx context.Context, p Proposal, mode PlacementMode) bool {
	if mode == "" {
		mode = p.Mode
	}
	return s.SetSlot(ctx, p.ClassID, p.Day, p.Period, p.SubjectID, p.TeacherIDs, p.RoomIDs, mode == PlacementAppend)
}
