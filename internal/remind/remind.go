// Package remind schedules best-effort local reminders for due tasks.
package remind

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	rcron "github.com/robfig/cron/v3"

	"github.com/taskdeck/taskdeck/internal/task"
)

// DefaultLead is how long before the due instant a reminder fires.
const DefaultLead = time.Hour

// DefaultSweepSpec drives the pending-table sweep.
const DefaultSweepSpec = "@every 30s"

// Notifier delivers a single reminder. Implementations must not block
// for long; failures are logged by the scheduler and never propagated.
type Notifier interface {
	Notify(title, body string) error
}

// Entry is a pending reminder.
type Entry struct {
	ID        string
	Text      string
	TriggerAt time.Time
}

// Scheduler keeps at most one pending reminder per task id and fires
// them through a Notifier when their trigger instant passes. All of it
// is best effort: nothing here may fail a task mutation.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]Entry

	lead     time.Duration
	granted  bool
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time

	sweepSpec string
	cron      *rcron.Cron
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLead sets the lead time between reminder and due instant.
func WithLead(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.lead = d
		}
	}
}

// WithPermission sets whether reminder scheduling is attempted at all.
func WithPermission(granted bool) Option {
	return func(s *Scheduler) {
		s.granted = granted
	}
}

// WithNotifier sets the delivery backend.
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) {
		s.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithSweepSpec overrides the cron spec for the sweep job.
func WithSweepSpec(spec string) Option {
	return func(s *Scheduler) {
		s.sweepSpec = spec
	}
}

// New creates a scheduler. Without WithPermission(true) every
// Schedule call is a silent no-op, matching an ungranted notification
// permission.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		pending:   make(map[string]Entry),
		lead:      DefaultLead,
		logger:    log.Default(),
		now:       time.Now,
		sweepSpec: DefaultSweepSpec,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule registers a reminder for a task, superseding any pending
// reminder with the same id. It is a no-op when permission is not
// granted, no notifier is configured, or the trigger instant is not
// strictly in the future.
func (s *Scheduler) Schedule(t task.Task) {
	if !s.granted || s.notifier == nil {
		return
	}
	trigger := t.Due.Time.Add(-s.lead)
	if !trigger.After(s.now()) {
		s.logger.Debug("reminder trigger already passed", "id", t.ID, "trigger", trigger)
		return
	}

	s.mu.Lock()
	s.pending[t.ID] = Entry{ID: t.ID, Text: t.Text, TriggerAt: trigger}
	s.mu.Unlock()
	s.logger.Debug("reminder scheduled", "id", t.ID, "trigger", trigger)
}

// Cancel drops the pending reminder for id. Cancelling an id with no
// pending reminder is a no-op.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	_, had := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()
	if had {
		s.logger.Debug("reminder cancelled", "id", id)
	}
}

// Pending returns the pending reminders sorted by trigger instant.
func (s *Scheduler) Pending() []Entry {
	s.mu.Lock()
	out := make([]Entry, 0, len(s.pending))
	for _, e := range s.pending {
		out = append(out, e)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].TriggerAt.Before(out[j].TriggerAt)
	})
	return out
}

// Start begins the background sweep. The scheduler stops when ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = rcron.New()
	if _, err := s.cron.AddFunc(s.sweepSpec, s.sweep); err != nil {
		return fmt.Errorf("register reminder sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Debug("reminder sweep started", "spec", s.sweepSpec)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the sweep, waiting briefly for an in-flight run.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(2 * time.Second):
		s.logger.Warn("reminder sweep stop timed out")
	}
}

// sweep fires every pending reminder whose trigger instant has passed.
// A fired entry is removed whether or not delivery succeeded.
func (s *Scheduler) sweep() {
	now := s.now()

	s.mu.Lock()
	var due []Entry
	for id, e := range s.pending {
		if !e.TriggerAt.After(now) {
			due = append(due, e)
			delete(s.pending, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		return due[i].TriggerAt.Before(due[j].TriggerAt)
	})
	for _, e := range due {
		if err := s.notifier.Notify("Task due soon", e.Text); err != nil {
			s.logger.Warn("reminder delivery failed", "id", e.ID, "err", err)
		}
	}
}

// LogNotifier writes reminders to the log. It is the fallback backend
// when no notify command is configured.
type LogNotifier struct {
	Logger *log.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(title, body string) error {
	logger := n.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Info(title, "task", body)
	return nil
}

// CommandNotifier delivers reminders by running an external command
// (for example notify-send) with the title and body appended as
// arguments.
type CommandNotifier struct {
	Command string
}

// Notify implements Notifier.
func (n CommandNotifier) Notify(title, body string) error {
	fields := strings.Fields(n.Command)
	if len(fields) == 0 {
		return fmt.Errorf("empty notify command")
	}
	args := append(fields[1:], title, body)
	if err := exec.Command(fields[0], args...).Run(); err != nil {
		return fmt.Errorf("notify command %q: %w", fields[0], err)
	}
	return nil
}
