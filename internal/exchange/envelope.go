// Package exchange encodes and applies portable export files: master data,
// timetable, settings or the full document set wrapped in a versioned
// envelope.
package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/compat"
	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// Version is written into every envelope.
const Version = 1

// Kind names the payload carried by an envelope.
type Kind string

const (
	KindMaster    Kind = "master"
	KindTimetable Kind = "timetable"
	KindSettings  Kind = "settings"
	KindFull      Kind = "full"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindMaster, KindTimetable, KindSettings, KindFull}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Mode selects how master data is combined with the current state.
type Mode string

const (
	// ModeReplace swaps the imported collections in wholesale.
	ModeReplace Mode = "replace"
	// ModeMerge appends only entries whose key is absent.
	ModeMerge Mode = "merge"
)

var (
	// ErrUnsupportedVersion is returned for envelopes newer than Version.
	ErrUnsupportedVersion = errors.New("unsupported export version")
	// ErrUnknownKind is returned for an unrecognised envelope type.
	ErrUnknownKind = errors.New("unknown export type")
	// ErrUnknownMode is returned for an unrecognised import mode.
	ErrUnknownMode = errors.New("unknown import mode")
)

// Envelope wraps every export.
type Envelope struct {
	Version    int             `json:"version"`
	ExportedAt time.Time       `json:"exportedAt"`
	Type       Kind            `json:"type"`
	Data       json.RawMessage `json:"data"`
}

// Masters is the master data payload.
type Masters struct {
	Teachers          []domain.Teacher          `json:"teachers"`
	Categories        []domain.Category         `json:"categories"`
	Subjects          []domain.Subject          `json:"subjects"`
	ElectiveGroups    []domain.ElectiveGroup    `json:"electiveGroups"`
	Assignments       []domain.Assignment       `json:"assignments"`
	SpecialClassrooms []domain.SpecialClassroom `json:"specialClassrooms,omitempty"`
	Meetings          []domain.Meeting          `json:"meetings,omitempty"`
}

// Full is the complete payload.
type Full struct {
	Settings  domain.Settings `json:"settings"`
	Masters   Masters         `json:"masters"`
	Timetable json.RawMessage `json:"timetable"`
}

func mastersOf(st core.State) Masters {
	return Masters{
		Teachers:          st.Teachers,
		Categories:        st.Categories,
		Subjects:          st.Subjects,
		ElectiveGroups:    st.ElectiveGroups,
		Assignments:       st.Assignments,
		SpecialClassrooms: st.SpecialClassrooms,
		Meetings:          st.Meetings,
	}
}

// Export wraps the selected part of st.
func Export(st core.State, kind Kind, now time.Time) (Envelope, error) {
	var data any
	switch kind {
	case KindMaster:
		data = mastersOf(st)
	case KindTimetable:
		data = st.Timetable
	case KindSettings:
		data = st.Settings
	case KindFull:
		tt, err := json.Marshal(st.Timetable)
		if err != nil {
			return Envelope{}, fmt.Errorf("encode timetable: %w", err)
		}
		data = Full{Settings: st.Settings, Masters: mastersOf(st), Timetable: tt}
	default:
		return Envelope{}, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", kind, err)
	}
	return Envelope{Version: Version, ExportedAt: now.UTC().Truncate(time.Second), Type: kind, Data: raw}, nil
}

// Encode renders env as indented JSON.
func Encode(env Envelope) ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}

// Decode parses and checks an envelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version < 1 || env.Version > Version {
		return Envelope{}, fmt.Errorf("%w %d", ErrUnsupportedVersion, env.Version)
	}
	if !env.Type.Valid() {
		return Envelope{}, fmt.Errorf("%w %q", ErrUnknownKind, env.Type)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return Envelope{}, fmt.Errorf("envelope %s carries no data", env.Type)
	}
	return env, nil
}

// Apply returns st with env applied. Mode only affects master data; timetable
// and settings payloads always replace. Timetable payloads go through the
// legacy migration, and linked groups and parked lessons are dropped with the
// timetable they referred to.
func Apply(st core.State, env Envelope, mode Mode) (core.State, error) {
	if mode == "" {
		mode = ModeReplace
	}
	if mode != ModeReplace && mode != ModeMerge {
		return core.State{}, fmt.Errorf("%w %q", ErrUnknownMode, mode)
	}
	switch env.Type {
	case KindMaster:
		var m Masters
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return core.State{}, fmt.Errorf("decode master: %w", err)
		}
		return applyMasters(st, m, mode), nil
	case KindTimetable:
		return applyTimetable(st, env.Data)
	case KindSettings:
		var settings domain.Settings
		if err := json.Unmarshal(env.Data, &settings); err != nil {
			return core.State{}, fmt.Errorf("decode settings: %w", err)
		}
		st.Settings = settings.Normalize()
		return st, nil
	case KindFull:
		var full Full
		if err := json.Unmarshal(env.Data, &full); err != nil {
			return core.State{}, fmt.Errorf("decode full: %w", err)
		}
		st.Settings = full.Settings.Normalize()
		st = applyMasters(st, full.Masters, ModeReplace)
		if len(full.Timetable) == 0 {
			st.Timetable = domain.Timetable{}
			st.LinkedGroups = nil
			st.ParkingArea = domain.ParkingArea{}
			return st, nil
		}
		return applyTimetable(st, full.Timetable)
	default:
		return core.State{}, fmt.Errorf("%w %q", ErrUnknownKind, env.Type)
	}
}

func applyTimetable(st core.State, raw json.RawMessage) (core.State, error) {
	tt, _, err := compat.DecodeTimetable(raw, st.KnownIDs())
	if err != nil {
		return core.State{}, fmt.Errorf("decode timetable: %w", err)
	}
	st.Timetable = tt
	st.LinkedGroups = nil
	st.ParkingArea = domain.ParkingArea{}
	return st, nil
}
