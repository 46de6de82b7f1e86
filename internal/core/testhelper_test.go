package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

var errSaveRejected = errors.New("quota exceeded")

// fakeKV is an in-package StateStore with failure injection.
type fakeKV struct {
	data     map[domain.Bucket][]byte
	saves    map[domain.Bucket]int
	failSave error
	failLoad error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[domain.Bucket][]byte), saves: make(map[domain.Bucket]int)}
}

func (f *fakeKV) Load(_ context.Context, bucket domain.Bucket) ([]byte, bool, error) {
	if f.failLoad != nil {
		return nil, false, f.failLoad
	}
	payload, ok := f.data[bucket]
	return append([]byte(nil), payload...), ok, nil
}

func (f *fakeKV) Save(_ context.Context, bucket domain.Bucket, payload []byte) error {
	if f.failSave != nil {
		return f.failSave
	}
	f.data[bucket] = append([]byte(nil), payload...)
	f.saves[bucket]++
	return nil
}

func (f *fakeKV) Driver() domain.Driver { return "fake" }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

var fixedTime = time.Date(2024, 4, 8, 9, 0, 0, 0, time.UTC)

// newTestStore returns a store seeded with a small registry: teachers t1..t3,
// subjects math/eng/sci, hidden subject hr, electives elA/elB in group el,
// room lab, and the default 3x3 classes with 6 periods.
func newTestStore(t *testing.T) (*Store, *fakeKV, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	kv := newFakeKV()
	s := NewStore(kv, logger)
	s.SetIDGenerator(sequentialIDs())
	s.SetClock(ClockFunc(func() time.Time { return fixedTime }))
	s.state.Teachers = []domain.Teacher{
		{ID: "t1", Name: "Sato"},
		{ID: "t2", Name: "Suzuki"},
		{ID: "t3", Name: "Tanaka"},
	}
	s.state.Categories = []domain.Category{{ID: "c1", Name: "Core"}}
	s.state.Subjects = []domain.Subject{
		{ID: "math", CategoryID: "c1", Name: "Math"},
		{ID: "eng", CategoryID: "c1", Name: "English"},
		{ID: "sci", CategoryID: "c1", Name: "Science"},
		{ID: "hr", CategoryID: "c1", Name: "Homeroom", Hidden: true},
		{ID: "elA", CategoryID: "c1", Name: "Elective A"},
		{ID: "elB", CategoryID: "c1", Name: "Elective B"},
	}
	s.state.ElectiveGroups = []domain.ElectiveGroup{{ID: "el", Name: "Electives", SubjectIDs: []string{"elA", "elB"}}}
	s.state.SpecialClassrooms = []domain.SpecialClassroom{{ID: "lab", Name: "Lab"}}
	return s, kv, hook
}

func mustSet(t *testing.T, s *Store, classID string, day, period int, subjectID string, teacherIDs []string, appendMode bool) {
	t.Helper()
	if !s.SetSlot(context.Background(), classID, day, period, subjectID, teacherIDs, nil, appendMode) {
		t.Fatalf("set slot %s %d-%d failed", classID, day, period)
	}
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}
