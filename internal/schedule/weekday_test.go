package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextWeekday(t *testing.T) {
	tests := []struct {
		name   string
		from   time.Time
		target time.Weekday
		want   time.Time
	}{
		{
			// same weekday must advance a full week, never same-day
			name:   "same day",
			from:   date(2024, time.January, 3), // a Wednesday
			target: time.Wednesday,
			want:   date(2024, time.January, 10),
		},
		{
			name:   "later in week",
			from:   date(2024, time.January, 1), // a Monday
			target: time.Friday,
			want:   date(2024, time.January, 5),
		},
		{
			name:   "earlier in week wraps",
			from:   date(2024, time.January, 5), // a Friday
			target: time.Monday,
			want:   date(2024, time.January, 8),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextWeekday(tt.from, tt.target)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.target, got.Weekday())
			assert.True(t, got.After(tt.from), "result must be strictly after from")
		})
	}
}

func TestNextWeekdayAllPairs(t *testing.T) {
	start := date(2024, time.March, 1)
	for d := 0; d < 7; d++ {
		from := start.AddDate(0, 0, d)
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			got := NextWeekday(from, wd)
			if got.Weekday() != wd {
				t.Fatalf("NextWeekday(%v, %v) = %v, wrong weekday", from, wd, got)
			}
			if !got.After(from) || got.Sub(from) > 7*24*time.Hour {
				t.Fatalf("NextWeekday(%v, %v) = %v, out of (from, from+7d]", from, wd, got)
			}
		}
	}
}

func TestParseWeekday(t *testing.T) {
	wd, ok := ParseWeekday("monday")
	assert.True(t, ok)
	assert.Equal(t, time.Monday, wd)

	wd, ok = ParseWeekday("FRIDAY")
	assert.True(t, ok)
	assert.Equal(t, time.Friday, wd)

	wd, ok = ParseWeekday(" sunday ")
	assert.True(t, ok)
	assert.Equal(t, time.Sunday, wd)

	_, ok = ParseWeekday("invalid")
	assert.False(t, ok)
}

func TestParseTimeOfDay(t *testing.T) {
	h, m, s, ok := ParseTimeOfDay("18:00:00")
	assert.True(t, ok)
	assert.Equal(t, []int{18, 0, 0}, []int{h, m, s})

	h, m, s, ok = ParseTimeOfDay("07:30")
	assert.True(t, ok)
	assert.Equal(t, []int{7, 30, 0}, []int{h, m, s})

	_, _, _, ok = ParseTimeOfDay("25:99")
	assert.False(t, ok)
}

func TestDateFormats(t *testing.T) {
	d := date(2024, time.February, 9)
	assert.Equal(t, "2024-02-09", ISODate(d))
	assert.Equal(t, "09-02-2024", APIDate(d))
}

func TestAtAndMidnight(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	assert.NoError(t, err)

	now := time.Date(2024, time.June, 10, 17, 45, 12, 0, loc)
	mid := Midnight(now)
	assert.Equal(t, time.Date(2024, time.June, 10, 0, 0, 0, 0, loc), mid)

	at := At(mid, 18, 1, 0)
	assert.Equal(t, time.Date(2024, time.June, 10, 18, 1, 0, 0, loc), at)
	assert.Equal(t, loc, at.Location())
}
