// Package schedule holds the pure date helpers used by the booking tasks.
package schedule

import (
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ParseWeekday parses a weekday name, case-insensitively.
func ParseWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	return wd, ok
}

// NextWeekday returns the next occurrence of target strictly after from.
// When from already falls on target, the result is seven days later.
func NextWeekday(from time.Time, target time.Weekday) time.Time {
	ahead := (int(target) - int(from.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return from.AddDate(0, 0, ahead)
}

// Midnight truncates t to the start of its day, keeping the location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// At combines a date with a time of day in the date's location.
func At(date time.Time, hour, min, sec int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, min, sec, 0, date.Location())
}

// ISODate renders YYYY-MM-DD, the format used in ledger keys and on the
// dashboard.
func ISODate(t time.Time) string { return t.Format("2006-01-02") }

// APIDate renders DD-MM-YYYY, the format the Nubapp calendar endpoints
// expect.
func APIDate(t time.Time) string { return t.Format("02-01-2006") }

// ParseTimeOfDay parses "HH:MM:SS" or "HH:MM".
func ParseTimeOfDay(s string) (hour, min, sec int, ok bool) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		t, err = time.Parse("15:04", s)
		if err != nil {
			return 0, 0, 0, false
		}
	}
	return t.Hour(), t.Minute(), t.Second(), true
}
