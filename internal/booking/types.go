package booking

import "strings"

// Slot is one bookable interval on the provider's calendar.
// Start/End are the provider's local timestamps ("2006-01-02 15:04:05");
// occupancy counts are only present on some endpoints.
type Slot struct {
	Start     string
	End       string
	ID        string
	Name      string
	Inscribed *int
	Capacity  *int
}

// Booking is an existing reservation or waiting-list entry.
type Booking struct {
	Start     string
	End       string
	Activity  string
	SlotID    string
	Inscribed *int
	Capacity  *int
}

// Bookings groups a user's confirmed bookings and waiting-list entries.
type Bookings struct {
	Bookings    []Booking
	WaitingList []Booking
}

// FreeSpots returns capacity minus inscribed, floored at zero. The second
// return is false when either count is missing.
func (s Slot) FreeSpots() (int, bool) {
	if s.Inscribed == nil || s.Capacity == nil {
		return 0, false
	}
	free := *s.Capacity - *s.Inscribed
	if free < 0 {
		free = 0
	}
	return free, true
}

// FindSlot returns the first slot whose start contains timeOfDay and,
// when activity is non-empty, whose name contains it case-insensitively.
func FindSlot(slots []Slot, timeOfDay, activity string) (Slot, bool) {
	for _, s := range slots {
		if !strings.Contains(s.Start, timeOfDay) {
			continue
		}
		if activity != "" && !containsFold(s.Name, activity) {
			continue
		}
		return s, true
	}
	return Slot{}, false
}

// MatchesActivity reports whether the booking's activity name contains
// the filter case-insensitively. An empty filter matches everything.
func (b Booking) MatchesActivity(filter string) bool {
	if filter == "" {
		return true
	}
	return containsFold(b.Activity, filter)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
