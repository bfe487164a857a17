package store

import (
	"errors"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/task"
)

// fakeReminders records schedule/cancel calls in order.
type fakeReminders struct {
	scheduled []string
	cancelled []string
}

func (f *fakeReminders) Schedule(t task.Task) {
	f.scheduled = append(f.scheduled, t.ID)
}

func (f *fakeReminders) Cancel(id string) {
	f.cancelled = append(f.cancelled, id)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *fakeReminders) {
	t.Helper()
	rem := &fakeReminders{}
	return New(rem, WithClock(fixedClock(testNow))), rem
}

func remoteTask(id, text string, due time.Time) task.Task {
	return task.Task{ID: id, Text: text, Due: task.At(due), Owner: 1}
}

func TestCreateValidation(t *testing.T) {
	s, rem := newTestStore(t)
	due := testNow.Add(2 * time.Hour)

	tests := []struct {
		name string
		text string
		due  time.Time
	}{
		{name: "empty text", text: "", due: due},
		{name: "whitespace text", text: "   ", due: due},
		{name: "zero due", text: "Buy milk", due: time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(tt.text, tt.due)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verr *task.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}

	if s.Len() != 0 {
		t.Errorf("store changed by rejected create: %d tasks", s.Len())
	}
	if len(rem.scheduled) != 0 {
		t.Errorf("reminder scheduled for rejected create: %v", rem.scheduled)
	}
}

func TestCreateOptimisticInsert(t *testing.T) {
	s, rem := newTestStore(t)
	due := testNow.Add(2 * time.Hour)

	created, err := s.Create("Buy milk", due)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created.Local() {
		t.Errorf("created task should carry a provisional id, got %q", created.ID)
	}
	if s.Len() != 1 {
		t.Fatalf("store has %d tasks, want 1", s.Len())
	}
	if len(rem.scheduled) != 1 || rem.scheduled[0] != created.ID {
		t.Errorf("schedule effect missing: %v", rem.scheduled)
	}
}

func TestLoadMergeDeduplicates(t *testing.T) {
	s, _ := newTestStore(t)
	due := testNow.Add(24 * time.Hour)

	s.Load([]task.Task{
		remoteTask("1", "remote one", due),
		remoteTask("2", "remote two", due),
		remoteTask("1", "remote one again", due),
	})

	if s.Len() != 2 {
		t.Fatalf("merged store has %d tasks, want 2", s.Len())
	}
	seen := map[string]bool{}
	for _, tk := range s.Tasks() {
		if seen[tk.ID] {
			t.Errorf("duplicate id %q after merge", tk.ID)
		}
		seen[tk.ID] = true
	}
}

func TestLoadLocalEditWins(t *testing.T) {
	s, _ := newTestStore(t)
	due := testNow.Add(24 * time.Hour)

	s.Load([]task.Task{remoteTask("7", "original text", due)})
	if err := s.Update("7", "edited locally", due); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// A second load delivers the stale remote copy.
	s.Load([]task.Task{remoteTask("7", "original text", due)})

	got, ok := s.Get("7")
	if !ok {
		t.Fatal("task 7 missing after reload")
	}
	if got.Text != "edited locally" {
		t.Errorf("stale remote entry overwrote local edit: %q", got.Text)
	}
}

func TestLoadKeepsLocallyCreatedTasks(t *testing.T) {
	s, _ := newTestStore(t)
	due := testNow.Add(3 * time.Hour)

	local, err := s.Create("local only", due)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	s.Load([]task.Task{remoteTask("1", "remote", due)})

	if _, ok := s.Get(local.ID); !ok {
		t.Error("load discarded a locally created task")
	}
	if s.Len() != 2 {
		t.Errorf("store has %d tasks, want 2", s.Len())
	}
}

func TestLoadNormalizesRemoteDueDates(t *testing.T) {
	s, _ := newTestStore(t)

	s.Load([]task.Task{remoteTask("1", "no due date", time.Time{})})

	got, _ := s.Get("1")
	if !got.Due.Time.Equal(testNow) {
		t.Errorf("invalid remote due not normalized to now: %v", got.Due.Time)
	}
}

func TestLoadCorrelatesProvisionalTask(t *testing.T) {
	s, _ := newTestStore(t)
	due := testNow.Add(4 * time.Hour)

	local, err := s.Create("Buy milk", due)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The server later reports the same logical task under its own id.
	s.Load([]task.Task{remoteTask("99", "Buy milk", due.Add(time.Second))})

	if s.Len() != 1 {
		t.Fatalf("correlation failed, store has %d tasks", s.Len())
	}
	if _, ok := s.Get(local.ID); ok {
		t.Error("provisional id survived correlation")
	}
	got, ok := s.Get("99")
	if !ok {
		t.Fatal("server id missing after correlation")
	}
	if got.Text != "Buy milk" {
		t.Errorf("correlated task lost its text: %q", got.Text)
	}
}

func TestAdoptID(t *testing.T) {
	s, rem := newTestStore(t)
	due := testNow.Add(4 * time.Hour)

	local, _ := s.Create("Buy milk", due)
	s.AdoptID(local.ID, "42")

	if _, ok := s.Get(local.ID); ok {
		t.Error("provisional id still present after adoption")
	}
	if _, ok := s.Get("42"); !ok {
		t.Error("server id missing after adoption")
	}
	// Reminder keying follows the id: cancel old, schedule new.
	if len(rem.cancelled) == 0 || rem.cancelled[len(rem.cancelled)-1] != local.ID {
		t.Errorf("provisional reminder not cancelled: %v", rem.cancelled)
	}
	if rem.scheduled[len(rem.scheduled)-1] != "42" {
		t.Errorf("adopted id not rescheduled: %v", rem.scheduled)
	}
}

func TestToggleCompletedCancelsReminder(t *testing.T) {
	s, rem := newTestStore(t)
	due := testNow.Add(4 * time.Hour)

	created, _ := s.Create("Buy milk", due)
	if err := s.ToggleCompleted(created.ID, true); err != nil {
		t.Fatalf("ToggleCompleted: %v", err)
	}

	if len(rem.cancelled) != 1 || rem.cancelled[0] != created.ID {
		t.Errorf("completing did not cancel reminder: %v", rem.cancelled)
	}

	sec := s.Sections()
	if len(sec.Completed) != 1 {
		t.Errorf("completed task not in Completed section: %+v", sec)
	}
	if len(sec.Today)+len(sec.Future)+len(sec.Overdue) != 0 {
		t.Error("completed task appears in another section")
	}
}

func TestToggleBackReschedules(t *testing.T) {
	s, rem := newTestStore(t)
	due := testNow.Add(4 * time.Hour)

	created, _ := s.Create("Buy milk", due)
	s.ToggleCompleted(created.ID, true)
	s.ToggleCompleted(created.ID, false)

	if rem.scheduled[len(rem.scheduled)-1] != created.ID {
		t.Errorf("un-completing did not reschedule: %v", rem.scheduled)
	}
}

func TestDeleteCancelsReminder(t *testing.T) {
	s, rem := newTestStore(t)
	due := testNow.Add(4 * time.Hour)

	created, _ := s.Create("Buy milk", due)
	if err := s.Delete(created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Len() != 0 {
		t.Error("task still present after delete")
	}
	if len(rem.cancelled) != 1 || rem.cancelled[0] != created.ID {
		t.Errorf("delete did not cancel reminder: %v", rem.cancelled)
	}

	if err := s.Delete(created.ID); err == nil {
		t.Error("deleting a missing task should report an error")
	}
}

func TestUpdateReschedules(t *testing.T) {
	s, rem := newTestStore(t)
	due := testNow.Add(4 * time.Hour)

	created, _ := s.Create("Buy milk", due)
	if err := s.Update(created.ID, "Buy oat milk", due.Add(time.Hour)); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := s.Get(created.ID)
	if got.Text != "Buy oat milk" {
		t.Errorf("text not updated: %q", got.Text)
	}
	if len(rem.scheduled) != 2 {
		t.Errorf("due change did not reschedule: %v", rem.scheduled)
	}

	if err := s.Update("nope", "x", due); err == nil {
		t.Error("updating a missing task should report an error")
	}
}

func TestClearCompletedIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	due := testNow.Add(4 * time.Hour)

	a, _ := s.Create("done already", due)
	b, _ := s.Create("still open", due)
	s.ToggleCompleted(a.ID, true)

	removed := s.ClearCompleted()
	if len(removed) != 1 || removed[0] != a.ID {
		t.Fatalf("ClearCompleted removed %v, want [%s]", removed, a.ID)
	}
	after := s.Tasks()

	again := s.ClearCompleted()
	if len(again) != 0 {
		t.Errorf("second ClearCompleted removed %v", again)
	}
	if len(s.Tasks()) != len(after) {
		t.Error("second ClearCompleted changed the store")
	}
	if _, ok := s.Get(b.ID); !ok {
		t.Error("incomplete task removed by ClearCompleted")
	}
}

func TestLocalTasksSurviveWithoutLoad(t *testing.T) {
	// The remote fetch failing never touches the store: tasks created
	// before or after the failure stay visible.
	s, _ := newTestStore(t)
	due := testNow.Add(2 * time.Hour)

	s.Create("first", due)
	s.Create("second", due.Add(time.Hour))

	sec := s.Sections()
	if sec.Total() != 2 {
		t.Errorf("sectioned view has %d tasks, want 2", sec.Total())
	}
	if len(sec.Today) != 2 {
		t.Errorf("both tasks due today, got Today=%d", len(sec.Today))
	}
}
