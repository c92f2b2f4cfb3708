// Package watcher polls every user's waiting-list entries and books
// them as soon as capacity frees up.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/wod-scheduler/internal/booking"
	"github.com/example/wod-scheduler/internal/config"
	"github.com/example/wod-scheduler/internal/telemetry"
)

const (
	// polling interval while nobody is on a waiting list
	DefaultIdleInterval = time.Hour
	// polling interval while at least one user is waiting
	DefaultActiveInterval = time.Minute
)

// Watcher is the single process-wide waiting-list loop. The interval
// adapts: short while any user has waiting-list entries, long otherwise.
type Watcher struct {
	Provider booking.Provider
	Users    []config.User
	Loc      *time.Location
	Logger   zerolog.Logger
	Metrics  *telemetry.Metrics

	IdleInterval   time.Duration
	ActiveInterval time.Duration

	mu        sync.Mutex
	lastCheck time.Time

	// injectable for tests
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func New(provider booking.Provider, users []config.User, loc *time.Location, logger zerolog.Logger, metrics *telemetry.Metrics) *Watcher {
	return &Watcher{
		Provider:       provider,
		Users:          users,
		Loc:            loc,
		Logger:         logger.With().Str("component", "watcher").Logger(),
		Metrics:        metrics,
		IdleInterval:   DefaultIdleInterval,
		ActiveInterval: DefaultActiveInterval,
		now:            time.Now,
		sleep:          sleepCtx,
	}
}

// LastCheck returns when the last cycle finished, if any cycle has.
func (w *Watcher) LastCheck() (time.Time, bool) {
	if w == nil {
		return time.Time{}, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastCheck, !w.lastCheck.IsZero()
}

// Run loops until ctx is cancelled. The first cycle runs after the
// active interval so a fresh waiting-list entry is retried quickly.
func (w *Watcher) Run(ctx context.Context) error {
	w.Logger.Info().Dur("idle", w.IdleInterval).Dur("active", w.ActiveInterval).
		Msg("waiting-list watcher started")
	interval := w.ActiveInterval
	for {
		if err := w.sleep(ctx, interval); err != nil {
			return err
		}
		anyWaiting := w.cycle(ctx)
		if anyWaiting {
			interval = w.ActiveInterval
		} else {
			interval = w.IdleInterval
		}
		w.Logger.Debug().Dur("next_check", interval).Msg("cycle done")

		w.mu.Lock()
		w.lastCheck = w.now().In(w.Loc)
		w.mu.Unlock()
	}
}

// cycle checks all users once and reports whether anyone had
// waiting-list entries.
func (w *Watcher) cycle(ctx context.Context) bool {
	anyWaiting := false
	total := 0
	for i := range w.Users {
		user := w.Users[i]
		n, err := w.checkUser(ctx, user)
		if err != nil {
			w.Logger.Error().Err(err).Str("user", user.Name).Msg("waiting-list check failed")
			continue
		}
		if n > 0 {
			anyWaiting = true
		}
		total += n
	}
	w.Metrics.RecordWatcherCycle(total)
	return anyWaiting
}

// checkUser returns how many waiting-list entries the user has and
// opportunistically books any whose slot has a free spot. Promotion
// results are only logged: success shows up as a normal booking on the
// next fetch.
func (w *Watcher) checkUser(ctx context.Context, user config.User) (int, error) {
	sess, err := w.Provider.Login(ctx, user.Login, user.Password)
	if err != nil {
		return 0, err
	}
	current, err := sess.Bookings(ctx)
	if err != nil {
		return 0, err
	}
	entries := current.WaitingList
	if len(entries) == 0 {
		w.Logger.Debug().Str("user", user.Name).Msg("no waiting entries")
		return 0, nil
	}

	occupancy := w.occupancyForEntries(ctx, sess, entries)

	for _, entry := range entries {
		if entry.SlotID == "" {
			continue
		}
		slot, ok := occupancy[entry.SlotID]
		if !ok {
			continue
		}
		free, known := slot.FreeSpots()
		if !known || free == 0 {
			continue
		}
		w.Logger.Info().Str("user", user.Name).Str("slot", entry.SlotID).
			Str("start", entry.Start).Int("inscribed", *slot.Inscribed).
			Int("capacity", *slot.Capacity).Msg("free spot, booking from waiting list")
		res, err := sess.Book(ctx, entry.SlotID)
		switch {
		case err != nil:
			w.Logger.Warn().Err(err).Str("user", user.Name).Str("slot", entry.SlotID).
				Msg("promotion request failed")
		case res.Success:
			w.Logger.Info().Str("user", user.Name).Str("slot", entry.SlotID).
				Msg("booked from waiting list")
			w.Metrics.RecordPromotion()
		default:
			w.Logger.Warn().Str("user", user.Name).Str("slot", entry.SlotID).
				Str("reason", res.Message).Msg("promotion refused")
		}
	}
	return len(entries), nil
}

// occupancyForEntries fetches the slot list once per distinct date the
// waiting-list entries reference and indexes the slots by id.
func (w *Watcher) occupancyForEntries(ctx context.Context, sess booking.Session, entries []booking.Booking) map[string]booking.Slot {
	seen := make(map[string]struct{})
	occupancy := make(map[string]booking.Slot)
	for _, entry := range entries {
		if len(entry.Start) < 10 {
			continue
		}
		ymd := entry.Start[:10]
		if _, dup := seen[ymd]; dup {
			continue
		}
		seen[ymd] = struct{}{}

		date, err := time.ParseInLocation("2006-01-02", ymd, w.Loc)
		if err != nil {
			w.Logger.Warn().Str("start", entry.Start).Msg("unparseable waiting-list date")
			continue
		}
		slots, err := sess.Slots(ctx, date)
		if err != nil {
			w.Logger.Warn().Err(err).Str("date", ymd).Msg("cannot fetch slots for waiting-list date")
			continue
		}
		for _, s := range slots {
			if s.ID != "" {
				occupancy[s.ID] = s
			}
		}
	}
	return occupancy
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
