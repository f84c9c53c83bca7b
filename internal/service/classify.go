package service

import (
	"fmt"
	"time"

	"todoapp/internal/model"
)

type DueTodayMode string

const (
	// DueTodayInstant matches tasks whose due date equals the current instant exactly.
	// Almost nothing ever lands in this bucket; kept as the default because that is
	// what existing clients observe.
	DueTodayInstant DueTodayMode = "instant"
	// DueTodayCalendarDay buckets by calendar day in the configured location.
	DueTodayCalendarDay DueTodayMode = "calendar_day"
)

func ParseDueTodayMode(s string) (DueTodayMode, error) {
	switch DueTodayMode(s) {
	case "", DueTodayInstant:
		return DueTodayInstant, nil
	case DueTodayCalendarDay:
		return DueTodayCalendarDay, nil
	}
	return "", fmt.Errorf("unknown due_today_mode %q", s)
}

// Classifier turns "now" into the three pending due-date windows.
type Classifier struct {
	Mode     DueTodayMode
	Location *time.Location
}

func (c Classifier) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Windows returns the overdue, due-today and due-later ranges for now.
func (c Classifier) Windows(now time.Time) (overdue, today, later model.DueRange) {
	if c.Mode == DueTodayCalendarDay {
		local := now.In(c.location())
		start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.location())
		end := start.AddDate(0, 0, 1)
		start, end = model.NormalizeTime(start), model.NormalizeTime(end)

		overdue = model.DueRange{Upper: &model.Bound{At: start}}
		today = model.DueRange{
			Lower: &model.Bound{At: start, Inclusive: true},
			Upper: &model.Bound{At: end},
		}
		later = model.DueRange{Lower: &model.Bound{At: end, Inclusive: true}}
		return
	}

	now = model.NormalizeTime(now)
	overdue = model.DueRange{Upper: &model.Bound{At: now}}
	today = model.DueRange{
		Lower: &model.Bound{At: now, Inclusive: true},
		Upper: &model.Bound{At: now, Inclusive: true},
	}
	later = model.DueRange{Lower: &model.Bound{At: now}}
	return
}

// StatusOf places a single task in its bucket.
func (c Classifier) StatusOf(t model.Task, now time.Time) string {
	if t.Completed {
		return model.StatusCompleted
	}
	overdue, today, _ := c.Windows(now)
	switch {
	case overdue.Contains(t.DueDate):
		return model.StatusOverdue
	case today.Contains(t.DueDate):
		return model.StatusDueToday
	default:
		return model.StatusDueLater
	}
}

// ParseDueDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates, the latter
// taken as midnight in the classifier's location.
func (c Classifier) ParseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return model.NormalizeTime(t), nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", s, c.location()); err == nil {
		return model.NormalizeTime(t), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, c.location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q", s)
	}
	return model.NormalizeTime(t), nil
}
