package store

import (
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/task"
)

func taskAt(id string, due time.Time, completed bool) task.Task {
	return task.Task{ID: id, Text: "task " + id, Due: task.At(due), Completed: completed}
}

func TestSectionsPartition(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		due  time.Time
		done bool
		want string
	}{
		{name: "due in 2h same day", due: now.Add(2 * time.Hour), want: SectionToday},
		{name: "due earlier today", due: now.Add(-3 * time.Hour), want: SectionToday},
		{name: "due at midnight tonight", due: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), want: SectionFuture},
		{name: "due tomorrow", due: now.AddDate(0, 0, 1), want: SectionFuture},
		{name: "due next month", due: now.AddDate(0, 1, 0), want: SectionFuture},
		{name: "overdue yesterday", due: now.AddDate(0, 0, -1), want: SectionOverdue},
		{name: "completed overrides due date", due: now.AddDate(0, 0, 1), done: true, want: SectionCompleted},
		{name: "completed and overdue", due: now.AddDate(0, 0, -5), done: true, want: SectionCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sec := Sections([]task.Task{taskAt("1", tt.due, tt.done)}, now)
			for _, name := range SectionNames {
				bucket := sec.Get(name)
				if name == tt.want {
					if len(bucket) != 1 {
						t.Errorf("task missing from %s", name)
					}
					continue
				}
				if len(bucket) != 0 {
					t.Errorf("task also present in %s", name)
				}
			}
		})
	}
}

func TestSectionsExactlyOneBucket(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tasks := []task.Task{
		taskAt("1", now.Add(time.Hour), false),
		taskAt("2", now.AddDate(0, 0, 2), false),
		taskAt("3", now.AddDate(0, 0, -2), false),
		taskAt("4", now.Add(time.Hour), true),
	}

	sec := Sections(tasks, now)
	if sec.Total() != len(tasks) {
		t.Errorf("partition lost tasks: total %d, want %d", sec.Total(), len(tasks))
	}
}

func TestSectionsSortedAscending(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tasks := []task.Task{
		taskAt("late", now.AddDate(0, 0, 5), false),
		taskAt("soon", now.AddDate(0, 0, 1), false),
		taskAt("mid", now.AddDate(0, 0, 3), false),
	}

	sec := Sections(tasks, now)
	if len(sec.Future) != 3 {
		t.Fatalf("Future has %d tasks, want 3", len(sec.Future))
	}
	for i := 1; i < len(sec.Future); i++ {
		if sec.Future[i].Due.Time.Before(sec.Future[i-1].Due.Time) {
			t.Errorf("Future not sorted ascending at %d: %v after %v",
				i, sec.Future[i].Due.Time, sec.Future[i-1].Due.Time)
		}
	}
}

func TestSectionsStableOnTies(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, 1)
	tasks := []task.Task{
		taskAt("a", due, false),
		taskAt("b", due, false),
		taskAt("c", due, false),
	}

	sec := Sections(tasks, now)
	want := []string{"a", "b", "c"}
	for i, tk := range sec.Future {
		if tk.ID != want[i] {
			t.Errorf("tie order changed: position %d has %q, want %q", i, tk.ID, want[i])
		}
	}
}

func TestSectionsCalendarDayNotWindow(t *testing.T) {
	// 23:00 now, task due in 2 hours: same instant distance as a
	// same-day task but it is tomorrow, so it lands in Future.
	now := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	sec := Sections([]task.Task{taskAt("1", now.Add(2*time.Hour), false)}, now)

	if len(sec.Future) != 1 {
		t.Errorf("task due after midnight should be Future, got %+v", sec)
	}
}

func TestSectionsEmpty(t *testing.T) {
	sec := Sections(nil, time.Now())
	if sec.Total() != 0 {
		t.Errorf("empty input produced %d tasks", sec.Total())
	}
}
