package repository

import (
	"time"

	"todoapp/internal/model"
)

// DueConditions renders r as predicates on due_date. arg binds a bound's instant
// and returns its placeholder.
func DueConditions(r model.DueRange, arg func(time.Time) string) []string {
	if r.Lower != nil && r.Upper != nil &&
		r.Lower.Inclusive && r.Upper.Inclusive && r.Lower.At.Equal(r.Upper.At) {
		return []string{"due_date = " + arg(r.Lower.At)}
	}

	var conds []string
	if r.Lower != nil {
		op := " > "
		if r.Lower.Inclusive {
			op = " >= "
		}
		conds = append(conds, "due_date"+op+arg(r.Lower.At))
	}
	if r.Upper != nil {
		op := " < "
		if r.Upper.Inclusive {
			op = " <= "
		}
		conds = append(conds, "due_date"+op+arg(r.Upper.At))
	}
	return conds
}
