// Package ledger persists the set of already-handled bookings so that a
// restart never books the same slot twice.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Key identifies one user's occurrence of one slot on one date.
func Key(login string, targetDate time.Time, slotTime string) string {
	return fmt.Sprintf("%s:%s:%s", login, targetDate.Format("2006-01-02"), slotTime)
}

// Ledger is a mutex-guarded set of keys backed by a JSON file. Loading is
// fail-soft: a missing or corrupt file is treated as an empty set. Writes
// rewrite the whole file; a write failure is logged and the in-memory set
// stays authoritative for the running process.
type Ledger struct {
	path string
	log  zerolog.Logger

	mu   sync.Mutex
	keys map[string]struct{}
}

// Load reads the ledger file at path. It never fails.
func Load(path string, logger zerolog.Logger) *Ledger {
	l := &Ledger{
		path: path,
		log:  logger.With().Str("component", "ledger").Logger(),
		keys: make(map[string]struct{}),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.log.Warn().Err(err).Str("path", path).Msg("cannot read ledger, starting empty")
		}
		return l
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		l.log.Warn().Err(err).Str("path", path).Msg("cannot parse ledger, starting empty")
		return l
	}
	for _, k := range keys {
		l.keys[k] = struct{}{}
	}
	l.log.Info().Int("keys", len(l.keys)).Str("path", path).Msg("loaded booked slots")
	return l
}

func (l *Ledger) Contains(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keys[key]
	return ok
}

// Insert adds the key and rewrites the backing file while still holding
// the lock, so concurrent inserts serialize their writes.
func (l *Ledger) Insert(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[key] = struct{}{}
	l.persistLocked()
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// Keys returns the keys sorted, for display.
func (l *Ledger) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedLocked()
}

func (l *Ledger) sortedLocked() []string {
	keys := make([]string, 0, len(l.keys))
	for k := range l.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (l *Ledger) persistLocked() {
	data, err := json.MarshalIndent(l.sortedLocked(), "", "  ")
	if err != nil {
		l.log.Error().Err(err).Msg("cannot encode ledger")
		return
	}
	if err := os.WriteFile(l.path, data, 0o600); err != nil {
		l.log.Error().Err(err).Str("path", l.path).Msg("cannot write ledger")
	}
}
