package store

import (
	"sort"
	"time"

	"github.com/taskdeck/taskdeck/internal/task"
)

// Section names, in display order.
const (
	SectionToday     = "Today"
	SectionFuture    = "Future"
	SectionOverdue   = "Overdue"
	SectionCompleted = "Completed"
)

// SectionNames lists the sections in display order.
var SectionNames = []string{SectionToday, SectionFuture, SectionOverdue, SectionCompleted}

// Sectioned is the time-bucketed view of a task collection. Every task
// appears in exactly one bucket.
type Sectioned struct {
	Today     []task.Task
	Future    []task.Task
	Overdue   []task.Task
	Completed []task.Task
}

// Get returns the bucket with the given section name.
func (s Sectioned) Get(name string) []task.Task {
	switch name {
	case SectionToday:
		return s.Today
	case SectionFuture:
		return s.Future
	case SectionOverdue:
		return s.Overdue
	case SectionCompleted:
		return s.Completed
	}
	return nil
}

// Total returns the number of tasks across all buckets.
func (s Sectioned) Total() int {
	return len(s.Today) + len(s.Future) + len(s.Overdue) + len(s.Completed)
}

// Sections sorts tasks ascending by due instant (stable, ties keep
// their relative order) and partitions them. The rules apply per task,
// first match wins:
//  1. completed tasks land in Completed regardless of due date
//  2. due on the same calendar day as now (local calendar day, not a
//     24h window) lands in Today
//  3. due strictly after now's calendar day lands in Future
//  4. everything else is overdue and incomplete and lands in Overdue
func Sections(tasks []task.Task, now time.Time) Sectioned {
	sorted := make([]task.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Due.Time.Before(sorted[j].Due.Time)
	})

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var out Sectioned
	for _, t := range sorted {
		due := t.Due.Time.In(now.Location())
		switch {
		case t.Completed:
			out.Completed = append(out.Completed, t)
		case !due.Before(dayEnd):
			out.Future = append(out.Future, t)
		case !due.Before(dayStart):
			out.Today = append(out.Today, t)
		default:
			out.Overdue = append(out.Overdue, t)
		}
	}
	return out
}
