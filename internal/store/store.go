// Package store holds the session's task collection and applies mutations.
package store

import (
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/task"
)

// CorrelationWindow bounds how far apart the due instants of a
// provisional local task and a remote task may be while still being
// treated as the same logical task during a merge.
const CorrelationWindow = 2 * time.Second

// Reminders is the sink for reminder side effects. The store never
// talks to a notification backend directly; it diffs state snapshots
// and forwards the resulting effects here.
type Reminders interface {
	Schedule(t task.Task)
	Cancel(id string)
}

// Store owns the in-memory task collection for one session. It is
// created on UI mount and discarded on teardown; there is no durable
// backing. All methods must be called from a single goroutine.
type Store struct {
	tasks []task.Task
	rem   Reminders
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the store's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store. rem may be nil when the caller does not
// schedule reminders (one-shot CLI paths).
func New(rem Reminders, opts ...Option) *Store {
	s := &Store{
		rem: rem,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tasks returns a snapshot copy of the current collection.
func (s *Store) Tasks() []task.Task {
	out := make([]task.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Len returns the number of tasks in the store.
func (s *Store) Len() int {
	return len(s.tasks)
}

// Get returns the task with the given id, or a zero task.
func (s *Store) Get(id string) (task.Task, bool) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return s.tasks[i], true
		}
	}
	return task.Task{}, false
}

// Sections derives the sectioned view of the current collection.
func (s *Store) Sections() Sectioned {
	return Sections(s.tasks, s.now())
}

// Load merges a remote snapshot into the store without discarding
// tasks created or edited locally since the previous load. Local
// entries win over a remote entry with the same id: the local copy
// reflects the most recent user intent.
func (s *Store) Load(remote []task.Task) {
	old := s.Tasks()
	s.tasks = Merge(s.tasks, remote, s.now())
	s.applyEffects(old)
}

// Create validates and optimistically appends a new task under a
// provisional local id. The remote confirmation, if any, arrives later
// via AdoptID.
func (s *Store) Create(text string, due time.Time) (task.Task, error) {
	if err := task.Validate(text, due); err != nil {
		return task.Task{}, err
	}
	now := s.now()
	t := task.Task{
		ID:        task.NewLocalID(now),
		Text:      text,
		Due:       task.At(due),
		Owner:     1,
		CreatedAt: now,
	}
	old := s.Tasks()
	s.tasks = append(s.tasks, t)
	s.applyEffects(old)
	return t, nil
}

// Update replaces the text and due instant of an existing task.
// Scheduling is keyed by id, so the effect diff supersedes any prior
// reminder for the task.
func (s *Store) Update(id, text string, due time.Time) error {
	if err := task.Validate(text, due); err != nil {
		return err
	}
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("task %q not found", id)
	}
	old := s.Tasks()
	s.tasks[i].Text = text
	s.tasks[i].Due = task.At(due)
	s.applyEffects(old)
	return nil
}

// ToggleCompleted flips the completion state. Completing a task
// cancels its pending reminder.
func (s *Store) ToggleCompleted(id string, completed bool) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("task %q not found", id)
	}
	old := s.Tasks()
	s.tasks[i].Completed = completed
	s.applyEffects(old)
	return nil
}

// Delete removes a task and cancels its pending reminder. The removal
// is immediate and independent of any remote confirmation.
func (s *Store) Delete(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("task %q not found", id)
	}
	old := s.Tasks()
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.applyEffects(old)
	return nil
}

// ClearCompleted removes every completed task and returns their ids so
// the caller can issue best-effort remote deletes. Calling it twice in
// a row leaves the store in the same state as calling it once.
func (s *Store) ClearCompleted() []string {
	old := s.Tasks()
	var removed []string
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.Completed {
			removed = append(removed, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
	s.applyEffects(old)
	return removed
}

// AdoptID replaces a provisional local id with the server-confirmed
// one. Reminder keying follows the id through the effect diff. If the
// remote id is already present the provisional duplicate is dropped.
func (s *Store) AdoptID(localID, remoteID string) {
	i := s.index(localID)
	if i < 0 {
		return
	}
	old := s.Tasks()
	if s.index(remoteID) >= 0 {
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	} else {
		s.tasks[i].ID = remoteID
	}
	s.applyEffects(old)
}

func (s *Store) index(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) applyEffects(old []task.Task) {
	if s.rem == nil {
		return
	}
	for _, e := range Diff(old, s.tasks) {
		switch e.Kind {
		case EffectSchedule:
			s.rem.Schedule(e.Task)
		case EffectCancel:
			s.rem.Cancel(e.ID)
		}
	}
}

// Merge concatenates the local collection and a remote snapshot,
// local first, and deduplicates by id keeping the first occurrence.
// Remote due instants pass through the normalizer so the merged
// collection never carries an invalid instant. A remote task that
// correlates with a provisional local one (same text, due instants
// within CorrelationWindow) confirms it: the local entry adopts the
// remote id and the remote copy is dropped.
func Merge(local, remote []task.Task, now time.Time) []task.Task {
	merged := make([]task.Task, 0, len(local)+len(remote))
	seen := make(map[string]int, len(local)+len(remote))

	for _, t := range local {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = len(merged)
		merged = append(merged, t)
	}

	for _, r := range remote {
		r.Due = task.At(task.Normalize(r.Due.Time, now))
		if _, ok := seen[r.ID]; ok {
			continue
		}
		if i, ok := correlate(merged, r); ok {
			delete(seen, merged[i].ID)
			merged[i].ID = r.ID
			seen[r.ID] = i
			continue
		}
		seen[r.ID] = len(merged)
		merged = append(merged, r)
	}

	return merged
}

// correlate finds a provisional local task that represents the same
// logical task as a remote entry whose server id differs.
func correlate(merged []task.Task, r task.Task) (int, bool) {
	for i := range merged {
		if !merged[i].Local() || merged[i].Text != r.Text {
			continue
		}
		d := merged[i].Due.Time.Sub(r.Due.Time)
		if d < 0 {
			d = -d
		}
		if d <= CorrelationWindow {
			return i, true
		}
	}
	return -1, false
}
