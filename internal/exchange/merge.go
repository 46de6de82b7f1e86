package exchange

import (
	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

func applyMasters(st core.State, m Masters, mode Mode) core.State {
	if mode == ModeReplace {
		st.Teachers = orEmpty(m.Teachers)
		st.Categories = orEmpty(m.Categories)
		st.Subjects = orEmpty(m.Subjects)
		st.ElectiveGroups = orEmpty(m.ElectiveGroups)
		st.Assignments = orEmpty(m.Assignments)
		if m.SpecialClassrooms != nil {
			st.SpecialClassrooms = m.SpecialClassrooms
		}
		if m.Meetings != nil {
			st.Meetings = m.Meetings
		}
		return st
	}
	st.Teachers = mergeBy(st.Teachers, m.Teachers, func(t domain.Teacher) string { return t.ID })
	st.Categories = mergeBy(st.Categories, m.Categories, func(c domain.Category) string { return c.ID })
	st.Subjects = mergeBy(st.Subjects, m.Subjects, func(s domain.Subject) string { return s.ID })
	st.ElectiveGroups = mergeBy(st.ElectiveGroups, m.ElectiveGroups, func(g domain.ElectiveGroup) string { return g.ID })
	st.Assignments = mergeBy(st.Assignments, m.Assignments, func(a domain.Assignment) domain.AssignmentKey { return a.Key() })
	st.SpecialClassrooms = mergeBy(st.SpecialClassrooms, m.SpecialClassrooms, func(r domain.SpecialClassroom) string { return r.ID })
	st.Meetings = mergeBy(st.Meetings, m.Meetings, func(mt domain.Meeting) string { return mt.ID })
	return st
}

// mergeBy appends incoming entries whose key is not yet present. Later
// duplicates inside incoming are dropped too.
func mergeBy[T any, K comparable](current, incoming []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(current)+len(incoming))
	out := append([]T(nil), current...)
	for _, v := range current {
		seen[key(v)] = struct{}{}
	}
	for _, v := range incoming {
		k := key(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
