package scheduling

import (
	"time"

	"github.com/iliyamo/events-marketplace/internal/model"
)

// MaxSeriesInstances caps how many instances one series may generate.
// The cap bounds worst-case transaction size and is enforced during
// expansion, before any row is written.
const MaxSeriesInstances = 365

// Window is one candidate instance slot. End is exclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open windows intersect. Touching
// boundaries do not overlap: an event ending exactly when another
// starts is fine.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && w.End.After(o.Start)
}

// Expansion is the result of expanding a series. Truncated is set
// when the cap was reached before the end bound; that is not an
// error, but callers should surface it as a warning.
type Expansion struct {
	Windows   []Window
	Truncated bool
}

// ExpandSeries generates the instance windows for a recurring series.
// The template's own [start, end) window is never emitted; the first
// window is the one immediately following it. Each window keeps the
// template's exact duration, including across month-length changes,
// and windows are emitted while their start is at or before until.
func ExpandSeries(start, end time.Time, pattern model.RecurrencePattern, until time.Time) Expansion {
	var exp Expansion
	if !pattern.Valid() || !end.After(start) {
		return exp
	}
	duration := end.Sub(start)
	for cur := stepForward(start, pattern); !cur.After(until); cur = stepForward(cur, pattern) {
		if len(exp.Windows) == MaxSeriesInstances {
			exp.Truncated = true
			break
		}
		exp.Windows = append(exp.Windows, Window{Start: cur, End: cur.Add(duration)})
	}
	return exp
}

// stepForward advances one pattern step. MONTHLY is a calendar month,
// so Jan 31 normalizes forward the way time.AddDate defines it.
func stepForward(t time.Time, pattern model.RecurrencePattern) time.Time {
	switch pattern {
	case model.RecurDaily:
		return t.AddDate(0, 0, 1)
	case model.RecurWeekly:
		return t.AddDate(0, 0, 7)
	case model.RecurMonthly:
		return t.AddDate(0, 1, 0)
	}
	return t
}
