package scheduler

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/example/wod-scheduler/internal/booking"
	"github.com/example/wod-scheduler/internal/config"
	"github.com/example/wod-scheduler/internal/history"
	"github.com/example/wod-scheduler/internal/ledger"
	"github.com/example/wod-scheduler/internal/telemetry"
	"github.com/example/wod-scheduler/internal/watcher"
)

// Supervisor owns the background booking machinery: one Task per
// (user × configured weekday) plus the waiting-list watcher, all under
// one errgroup so the serve command can shut everything down through
// its context.
type Supervisor struct {
	Config   *config.Config
	Provider booking.Provider
	Ledger   *ledger.Ledger
	Status   *StatusTable
	Watcher  *watcher.Watcher
	History  *history.Store
	Metrics  *telemetry.Metrics
	Logger   zerolog.Logger
}

// Run spawns every task and blocks until ctx is cancelled. A user/day
// combination with a broken configuration is skipped with a warning;
// the rest proceed.
func (s *Supervisor) Run(ctx context.Context) error {
	loc := s.Config.Location()
	g, ctx := errgroup.WithContext(ctx)

	for _, user := range s.Config.Users {
		for _, day := range user.Slots {
			spec, ok := s.Config.Slots[day]
			if !ok {
				s.Logger.Warn().Str("day", day).Str("user", user.Name).
					Msg("no slot configured for day, skipping")
				continue
			}
			task, err := NewTask(user, day, spec, loc)
			if err != nil {
				s.Logger.Warn().Err(err).Str("day", day).Str("user", user.Name).
					Msg("skipping slot")
				continue
			}
			task.Provider = s.Provider
			task.Ledger = s.Ledger
			task.Status = s.Status
			task.History = s.History
			task.Metrics = s.Metrics
			task.Logger = s.Logger

			s.Logger.Info().Str("user", user.Name).Str("day", day).
				Str("time", spec.Time).Str("activity", spec.Activity).
				Msg("spawning booking task")
			g.Go(func() error { return task.Run(ctx) })
		}
	}

	if s.Watcher != nil {
		g.Go(func() error { return s.Watcher.Run(ctx) })
	}
	return g.Wait()
}
