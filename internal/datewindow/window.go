// Package datewindow resolves relative time phrases into absolute calendar
// windows. All windows are half-open [Start, End); weeks start on Monday and
// month/year windows align to calendar boundaries.
package datewindow

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNotRecognized reports a phrase outside the supported families. Callers
// must not guess a window on this error.
var ErrNotRecognized = errors.New("date phrase not recognized")

// Window is a half-open interval [Start, End). A zero Start means the window
// is unbounded in the past ("older than" filters).
type Window struct {
	Start time.Time
	End   time.Time
}

// Unbounded reports whether the window has no lower bound.
func (w Window) Unbounded() bool { return w.Start.IsZero() }

var (
	agoRe       = regexp.MustCompile(`^(a|an|\d+)\s+(day|week|month|year)s?\s+ago$`)
	olderThanRe = regexp.MustCompile(`^older\s+than\s+(a|an|\d+)\s+(day|week|month|year)s?$`)
)

// Resolve turns a phrase into a Window anchored at now. Calendar units
// realign to their grid: "2 months ago" is the whole calendar month two
// months back, not an arbitrary 30-day slice.
func Resolve(phrase string, now time.Time) (Window, error) {
	key := strings.ToLower(strings.TrimSpace(phrase))
	switch key {
	case "today":
		start := midnight(now)
		return Window{start, start.AddDate(0, 0, 1)}, nil
	case "yesterday":
		start := midnight(now).AddDate(0, 0, -1)
		return Window{start, start.AddDate(0, 0, 1)}, nil
	case "this week":
		start := mondayOf(now)
		return Window{start, start.AddDate(0, 0, 7)}, nil
	case "last week":
		start := mondayOf(now).AddDate(0, 0, -7)
		return Window{start, start.AddDate(0, 0, 7)}, nil
	case "this month":
		start := firstOfMonth(now)
		return Window{start, start.AddDate(0, 1, 0)}, nil
	case "last month":
		end := firstOfMonth(now)
		return Window{end.AddDate(0, -1, 0), end}, nil
	case "this year":
		start := firstOfYear(now)
		return Window{start, start.AddDate(1, 0, 0)}, nil
	case "last year":
		end := firstOfYear(now)
		return Window{end.AddDate(-1, 0, 0), end}, nil
	}

	if m := agoRe.FindStringSubmatch(key); m != nil {
		n, err := quantity(m[1])
		if err != nil {
			return Window{}, ErrNotRecognized
		}
		return unitWindowAgo(now, n, m[2])
	}
	if m := olderThanRe.FindStringSubmatch(key); m != nil {
		n, err := quantity(m[1])
		if err != nil {
			return Window{}, ErrNotRecognized
		}
		return Window{End: subtractUnits(now, n, m[2])}, nil
	}
	return Window{}, ErrNotRecognized
}

// unitWindowAgo anchors a window of length one unit, ending exclusively at
// the unit boundary containing now minus n units.
func unitWindowAgo(now time.Time, n int, unit string) (Window, error) {
	switch unit {
	case "day":
		start := midnight(now).AddDate(0, 0, -n)
		return Window{start, start.AddDate(0, 0, 1)}, nil
	case "week":
		start := mondayOf(now.AddDate(0, 0, -7*n))
		return Window{start, start.AddDate(0, 0, 7)}, nil
	case "month":
		start := firstOfMonth(now.AddDate(0, -n, 0))
		return Window{start, start.AddDate(0, 1, 0)}, nil
	case "year":
		start := firstOfYear(now.AddDate(-n, 0, 0))
		return Window{start, start.AddDate(1, 0, 0)}, nil
	}
	return Window{}, ErrNotRecognized
}

func subtractUnits(now time.Time, n int, unit string) time.Time {
	switch unit {
	case "day":
		return now.AddDate(0, 0, -n)
	case "week":
		return now.AddDate(0, 0, -7*n)
	case "month":
		return now.AddDate(0, -n, 0)
	case "year":
		return now.AddDate(-n, 0, 0)
	}
	return now
}

func quantity(token string) (int, error) {
	if token == "a" || token == "an" {
		return 1, nil
	}
	n, err := strconv.Atoi(token)
	if err != nil || n < 1 {
		return 0, ErrNotRecognized
	}
	return n, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return midnight(t).AddDate(0, 0, -offset)
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func firstOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}
