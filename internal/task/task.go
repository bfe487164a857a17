// Package task defines the task model and due-date normalization.
package task

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// LocalIDPrefix marks ids generated on this device before the remote
// has confirmed the task.
const LocalIDPrefix = "local-"

// Task is a single to-do item. JSON field names match the demo API.
type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"todo"`
	Due       FlexTime  `json:"dueDate,omitempty"`
	Completed bool      `json:"completed"`
	Owner     int       `json:"userId,omitempty"`
	CreatedAt time.Time `json:"-"`
}

// IsZero returns true if the task is empty (has no ID).
func (t *Task) IsZero() bool {
	return t.ID == ""
}

// Local reports whether the task carries a provisional, locally
// generated id.
func (t *Task) Local() bool {
	return IsLocalID(t.ID)
}

// IsLocalID reports whether id was generated locally and never sent
// to the remote.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

var localSeq atomic.Uint64

// NewLocalID returns a provisional id for an offline-created task.
// The millisecond timestamp plus an atomic sequence number keeps ids
// unique within a session even when tasks are created in the same
// instant from different goroutines (the update loop and a gateway
// fallback can both mint ids).
func NewLocalID(now time.Time) string {
	return fmt.Sprintf("%s%d-%d", LocalIDPrefix, now.UnixMilli(), localSeq.Add(1))
}

// FlexTime is a time.Time that tolerates the representations the demo
// API and user input actually produce: RFC3339 strings, bare dates,
// and unix-millisecond numbers. A value that cannot be parsed decodes
// as the zero time; Normalize repairs it at the boundary.
type FlexTime struct {
	time.Time
}

var flexLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (ft *FlexTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		ft.Time = time.Time{}
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}
	for _, layout := range flexLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ft.Time = t
			return nil
		}
	}
	// Malformed input degrades to zero rather than failing the whole
	// payload; Normalize substitutes "now" downstream.
	ft.Time = time.Time{}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (ft FlexTime) MarshalJSON() ([]byte, error) {
	if ft.Time.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(ft.Time.Format(time.RFC3339))
}

// At wraps a time.Time in a FlexTime.
func At(t time.Time) FlexTime {
	return FlexTime{Time: t}
}

// Normalize coerces a due-date candidate into a valid instant. A valid
// (non-zero) input is returned unchanged; anything else becomes now.
// Never errors, and Normalize(Normalize(x)) == Normalize(x).
func Normalize(due time.Time, now time.Time) time.Time {
	if !due.IsZero() {
		return due
	}
	return now
}

// ParseDue parses the due-date entry formats accepted from the CLI and
// the TUI form. A bare time means today; a bare date means midnight.
// Unlike Normalize this is a boundary check and reports bad input.
func ParseDue(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ValidationError{Field: "due", Err: fmt.Errorf("empty due date")}
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("15:04", s, now.Location()); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
	}
	return time.Time{}, &ValidationError{Field: "due", Err: fmt.Errorf("unrecognized due date %q", s)}
}

// Validate checks the fields a user can enter. It is called at the
// create/edit boundary; tasks already in the store are assumed valid.
func Validate(text string, due time.Time) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "todo", Err: fmt.Errorf("text must not be empty")}
	}
	if due.IsZero() {
		return &ValidationError{Field: "due", Err: fmt.Errorf("due date is not a valid instant")}
	}
	return nil
}

// ValidationError reports invalid user input with the field at fault.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SameDay reports whether a and b fall on the same calendar day in
// a's location. This is a calendar comparison, not a 24h window.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
