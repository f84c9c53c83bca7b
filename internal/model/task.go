package model

import "time"

// Task is a to-do item owned by exactly one user.
type Task struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	DueDate   time.Time `json:"dueDate"`
	Completed bool      `json:"completed"`
	UserID    int       `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Status buckets a task falls into relative to the current time.
const (
	StatusOverdue   = "overdue"
	StatusDueToday  = "dueToday"
	StatusDueLater  = "dueLater"
	StatusCompleted = "completed"
)

// Bound is one end of a due-date range.
type Bound struct {
	At        time.Time
	Inclusive bool
}

// DueRange selects pending tasks by due date. A nil bound is open.
type DueRange struct {
	Lower *Bound
	Upper *Bound
}

// Contains reports whether t falls within the range.
func (r DueRange) Contains(t time.Time) bool {
	if r.Lower != nil {
		if r.Lower.Inclusive && t.Before(r.Lower.At) {
			return false
		}
		if !r.Lower.Inclusive && !t.After(r.Lower.At) {
			return false
		}
	}
	if r.Upper != nil {
		if r.Upper.Inclusive && t.After(r.Upper.At) {
			return false
		}
		if !r.Upper.Inclusive && !t.Before(r.Upper.At) {
			return false
		}
	}
	return true
}

// NormalizeTime converts t to UTC at microsecond precision, the resolution both
// stores keep.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
