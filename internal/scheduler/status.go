package scheduler

import (
	"sort"
	"sync"
)

// Entry is the latest status of one booking task, shown on the
// dashboard. Each task writes only its own key; the dashboard reads
// snapshots.
type Entry struct {
	UserName   string
	Day        string
	Time       string
	TargetDate string
	OpensAt    string
	Status     string
}

// StatusTable maps task identity ("user name:weekday") to its entry.
type StatusTable struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewStatusTable() *StatusTable {
	return &StatusTable{entries: make(map[string]Entry)}
}

func (t *StatusTable) Set(key string, e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = e
}

// Snapshot returns a copy of all entries sorted by target date, then
// user name, for stable rendering.
func (t *StatusTable) Snapshot() []Entry {
	t.mu.Lock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TargetDate != out[j].TargetDate {
			return out[i].TargetDate < out[j].TargetDate
		}
		return out[i].UserName < out[j].UserName
	})
	return out
}
