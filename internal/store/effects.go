package store

import "github.com/taskdeck/taskdeck/internal/task"

// EffectKind discriminates reminder effects.
type EffectKind int

const (
	// EffectSchedule requests a reminder for Task. Scheduling is keyed
	// by task id, so a schedule effect supersedes any pending reminder
	// for the same id.
	EffectSchedule EffectKind = iota
	// EffectCancel drops any pending reminder for ID.
	EffectCancel
)

// Effect is a reminder side effect derived from a state transition.
type Effect struct {
	Kind EffectKind
	Task task.Task
	ID   string
}

// Diff compares two store snapshots and returns the reminder effects
// the transition implies. It is pure: mutations compute their new
// state first, then hand both snapshots here, which keeps the store
// testable without a notification backend.
//
// Rules, per task id:
//   - appeared, incomplete          -> schedule
//   - due instant changed           -> schedule (supersedes by key)
//   - flipped incomplete->complete  -> cancel
//   - flipped complete->incomplete  -> schedule
//   - disappeared                   -> cancel
func Diff(prev, next []task.Task) []Effect {
	oldByID := make(map[string]task.Task, len(prev))
	for _, t := range prev {
		oldByID[t.ID] = t
	}
	newByID := make(map[string]struct{}, len(next))

	var effects []Effect
	for _, n := range next {
		newByID[n.ID] = struct{}{}
		o, existed := oldByID[n.ID]
		if n.Completed {
			if existed && !o.Completed {
				effects = append(effects, Effect{Kind: EffectCancel, ID: n.ID})
			}
			continue
		}
		if !existed || o.Completed || !o.Due.Time.Equal(n.Due.Time) {
			effects = append(effects, Effect{Kind: EffectSchedule, Task: n})
		}
	}

	for _, o := range prev {
		if _, ok := newByID[o.ID]; !ok {
			effects = append(effects, Effect{Kind: EffectCancel, ID: o.ID})
		}
	}
	return effects
}
