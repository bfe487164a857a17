package remind

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/task"
)

type captureNotifier struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (c *captureNotifier) Notify(title, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.bodies = append(c.bodies, body)
	return nil
}

func (c *captureNotifier) delivered() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.bodies))
	copy(out, c.bodies)
	return out
}

var schedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestScheduler(granted bool, n Notifier) *Scheduler {
	return New(
		WithPermission(granted),
		WithNotifier(n),
		WithClock(func() time.Time { return schedNow }),
	)
}

func dueTask(id string, due time.Time) task.Task {
	return task.Task{ID: id, Text: "task " + id, Due: task.At(due)}
}

func TestScheduleLeadTime(t *testing.T) {
	// Task due tomorrow noon with the default 1h lead triggers at 11:00.
	s := newTestScheduler(true, &captureNotifier{})
	due := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	s.Schedule(dueTask("1", due))

	pending := s.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending has %d entries, want 1", len(pending))
	}
	want := due.Add(-time.Hour)
	if !pending[0].TriggerAt.Equal(want) {
		t.Errorf("trigger at %v, want %v", pending[0].TriggerAt, want)
	}
}

func TestScheduleNoPermission(t *testing.T) {
	s := newTestScheduler(false, &captureNotifier{})
	s.Schedule(dueTask("1", schedNow.Add(24*time.Hour)))

	if len(s.Pending()) != 0 {
		t.Error("scheduled despite missing permission")
	}
}

func TestSchedulePastTrigger(t *testing.T) {
	s := newTestScheduler(true, &captureNotifier{})

	// Due in 30 minutes: the 1h lead puts the trigger in the past.
	s.Schedule(dueTask("1", schedNow.Add(30*time.Minute)))
	if len(s.Pending()) != 0 {
		t.Error("scheduled a trigger that already passed")
	}
}

func TestScheduleSupersedesByID(t *testing.T) {
	s := newTestScheduler(true, &captureNotifier{})
	first := schedNow.Add(24 * time.Hour)
	second := schedNow.Add(48 * time.Hour)

	s.Schedule(dueTask("1", first))
	s.Schedule(dueTask("1", second))

	pending := s.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending has %d entries, want 1", len(pending))
	}
	if !pending[0].TriggerAt.Equal(second.Add(-time.Hour)) {
		t.Errorf("second schedule did not supersede: trigger %v", pending[0].TriggerAt)
	}
}

func TestCancelIdempotent(t *testing.T) {
	s := newTestScheduler(true, &captureNotifier{})
	s.Schedule(dueTask("1", schedNow.Add(24*time.Hour)))

	s.Cancel("1")
	if len(s.Pending()) != 0 {
		t.Fatal("cancel did not remove the entry")
	}
	// Safe on an id with nothing pending.
	s.Cancel("1")
	s.Cancel("never-scheduled")
}

func TestSweepFiresDueEntries(t *testing.T) {
	n := &captureNotifier{}
	now := schedNow
	s := New(
		WithPermission(true),
		WithNotifier(n),
		WithClock(func() time.Time { return now }),
	)

	s.Schedule(dueTask("soon", now.Add(90*time.Minute)))
	s.Schedule(dueTask("later", now.Add(48*time.Hour)))

	// Advance past the first trigger only.
	now = now.Add(time.Hour)
	s.sweep()

	got := n.delivered()
	if len(got) != 1 || got[0] != "task soon" {
		t.Errorf("sweep delivered %v, want [task soon]", got)
	}
	if len(s.Pending()) != 1 {
		t.Errorf("fired entry not removed: %v", s.Pending())
	}
}

func TestSweepRecoversNotifierFailure(t *testing.T) {
	n := &captureNotifier{err: errors.New("dbus unavailable")}
	now := schedNow
	s := New(
		WithPermission(true),
		WithNotifier(n),
		WithClock(func() time.Time { return now }),
	)

	s.Schedule(dueTask("1", now.Add(90*time.Minute)))
	now = now.Add(2 * time.Hour)
	s.sweep()

	// The failed entry is consumed, not retried forever.
	if len(s.Pending()) != 0 {
		t.Errorf("failed entry left pending: %v", s.Pending())
	}
}

func TestWithLeadZero(t *testing.T) {
	n := &captureNotifier{}
	s := New(
		WithPermission(true),
		WithNotifier(n),
		WithLead(0),
		WithClock(func() time.Time { return schedNow }),
	)

	s.Schedule(dueTask("1", schedNow.Add(10*time.Minute)))
	pending := s.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending has %d entries, want 1", len(pending))
	}
	if !pending[0].TriggerAt.Equal(schedNow.Add(10 * time.Minute)) {
		t.Errorf("zero lead trigger at %v", pending[0].TriggerAt)
	}
}

func TestPendingSortedByTrigger(t *testing.T) {
	s := newTestScheduler(true, &captureNotifier{})
	s.Schedule(dueTask("b", schedNow.Add(72*time.Hour)))
	s.Schedule(dueTask("a", schedNow.Add(24*time.Hour)))

	pending := s.Pending()
	if len(pending) != 2 || pending[0].ID != "a" {
		t.Errorf("pending not sorted by trigger: %+v", pending)
	}
}
