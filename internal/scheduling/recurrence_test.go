package scheduling

import (
	"testing"
	"time"

	"github.com/iliyamo/events-marketplace/internal/model"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestExpandWeeklySeries(t *testing.T) {
	start := date(2025, 6, 8, 10, 0)
	end := date(2025, 6, 8, 12, 0)
	until := date(2025, 6, 22, 23, 59)

	exp := ExpandSeries(start, end, model.RecurWeekly, until)
	if exp.Truncated {
		t.Fatal("unexpected truncation")
	}
	want := []Window{
		{Start: date(2025, 6, 15, 10, 0), End: date(2025, 6, 15, 12, 0)},
		{Start: date(2025, 6, 22, 10, 0), End: date(2025, 6, 22, 12, 0)},
	}
	if len(exp.Windows) != len(want) {
		t.Fatalf("got %d windows, want %d", len(exp.Windows), len(want))
	}
	for i, w := range want {
		if !exp.Windows[i].Start.Equal(w.Start) || !exp.Windows[i].End.Equal(w.End) {
			t.Errorf("window %d = %v..%v, want %v..%v",
				i, exp.Windows[i].Start, exp.Windows[i].End, w.Start, w.End)
		}
	}
}

func TestExpandDailyCount(t *testing.T) {
	start := date(2025, 6, 1, 9, 0)
	end := date(2025, 6, 1, 10, 0)
	until := date(2025, 6, 10, 9, 0)

	exp := ExpandSeries(start, end, model.RecurDaily, until)
	if len(exp.Windows) != 9 {
		t.Fatalf("got %d windows, want 9", len(exp.Windows))
	}
}

func TestExpandMonthlyNormalizesShortMonths(t *testing.T) {
	// Jan 31 + 1 calendar month lands on Mar 3 in a non-leap year,
	// the way time.AddDate defines month arithmetic.
	start := date(2025, 1, 31, 18, 0)
	end := date(2025, 1, 31, 20, 0)
	until := date(2025, 4, 30, 0, 0)

	exp := ExpandSeries(start, end, model.RecurMonthly, until)
	if len(exp.Windows) == 0 {
		t.Fatal("no windows generated")
	}
	if got := exp.Windows[0].Start; !got.Equal(date(2025, 3, 3, 18, 0)) {
		t.Fatalf("first window starts %v, want 2025-03-03T18:00Z", got)
	}
}

func TestExpandPreservesDurationAndOrder(t *testing.T) {
	start := date(2025, 2, 1, 22, 30)
	end := date(2025, 2, 2, 1, 30) // crosses midnight
	until := start.AddDate(1, 0, 0)

	exp := ExpandSeries(start, end, model.RecurMonthly, until)
	if len(exp.Windows) == 0 {
		t.Fatal("no windows generated")
	}
	dur := end.Sub(start)
	prev := start
	for i, w := range exp.Windows {
		if w.End.Sub(w.Start) != dur {
			t.Errorf("window %d duration %v, want %v", i, w.End.Sub(w.Start), dur)
		}
		if !w.Start.After(prev) {
			t.Errorf("window %d start %v not after previous %v", i, w.Start, prev)
		}
		prev = w.Start
	}
}

func TestExpandCapsAtMaxInstances(t *testing.T) {
	start := date(2025, 1, 1, 9, 0)
	end := date(2025, 1, 1, 10, 0)
	until := start.AddDate(3, 0, 0)

	exp := ExpandSeries(start, end, model.RecurDaily, until)
	if !exp.Truncated {
		t.Fatal("expected truncation")
	}
	if len(exp.Windows) != MaxSeriesInstances {
		t.Fatalf("got %d windows, want %d", len(exp.Windows), MaxSeriesInstances)
	}
}

func TestExpandInvalidInput(t *testing.T) {
	start := date(2025, 6, 8, 10, 0)
	end := date(2025, 6, 8, 12, 0)

	if exp := ExpandSeries(start, end, model.RecurrencePattern("YEARLY"), start.AddDate(1, 0, 0)); len(exp.Windows) != 0 {
		t.Fatalf("unknown pattern produced %d windows", len(exp.Windows))
	}
	if exp := ExpandSeries(start, start, model.RecurDaily, start.AddDate(0, 1, 0)); len(exp.Windows) != 0 {
		t.Fatalf("zero-length window produced %d windows", len(exp.Windows))
	}
	if exp := ExpandSeries(start, end, model.RecurWeekly, start); len(exp.Windows) != 0 {
		t.Fatalf("bound before first step produced %d windows", len(exp.Windows))
	}
}

func TestWindowOverlaps(t *testing.T) {
	a := Window{Start: date(2025, 6, 8, 10, 0), End: date(2025, 6, 8, 12, 0)}

	cases := []struct {
		name string
		b    Window
		want bool
	}{
		{"identical", a, true},
		{"partial", Window{Start: date(2025, 6, 8, 11, 0), End: date(2025, 6, 8, 13, 0)}, true},
		{"contained", Window{Start: date(2025, 6, 8, 10, 30), End: date(2025, 6, 8, 11, 30)}, true},
		{"containing", Window{Start: date(2025, 6, 8, 9, 0), End: date(2025, 6, 8, 13, 0)}, true},
		{"touching after", Window{Start: date(2025, 6, 8, 12, 0), End: date(2025, 6, 8, 14, 0)}, false},
		{"touching before", Window{Start: date(2025, 6, 8, 8, 0), End: date(2025, 6, 8, 10, 0)}, false},
		{"disjoint", Window{Start: date(2025, 6, 9, 10, 0), End: date(2025, 6, 9, 12, 0)}, false},
	}
	for _, c := range cases {
		if got := a.Overlaps(c.b); got != c.want {
			t.Errorf("%s: Overlaps = %v, want %v", c.name, got, c.want)
		}
		if got := c.b.Overlaps(a); got != c.want {
			t.Errorf("%s: Overlaps not symmetric", c.name)
		}
	}
}
