package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/wod-scheduler/internal/history"
	"github.com/example/wod-scheduler/internal/ledger"
	"github.com/example/wod-scheduler/internal/nubapp"
	"github.com/example/wod-scheduler/internal/scheduler"
	"github.com/example/wod-scheduler/internal/telemetry"
	"github.com/example/wod-scheduler/internal/watcher"
	"github.com/example/wod-scheduler/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the booking tasks, the waiting-list watcher and the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			led := ledger.Load(cfg.StateFile, logger)
			logger.Info().Str("path", cfg.StateFile).Int("entries", led.Len()).Msg("booked-slot ledger loaded")

			hist, err := history.Open(cfg.HistoryFile, logger)
			if err != nil {
				// history is best-effort, the engine runs without it
				logger.Warn().Err(err).Str("path", cfg.HistoryFile).Msg("attempt history disabled")
				hist = nil
			} else {
				defer hist.Close()
			}

			metrics := telemetry.New()
			provider := nubapp.New(cfg.App.ApplicationID, cfg.App.CategoryActivityID, logger)

			status := scheduler.NewStatusTable()
			watch := watcher.New(provider, cfg.Users, cfg.Location(), logger, metrics)

			supervisor := &scheduler.Supervisor{
				Config:   cfg,
				Provider: provider,
				Ledger:   led,
				Status:   status,
				Watcher:  watch,
				History:  hist,
				Metrics:  metrics,
				Logger:   logger.With().Str("component", "scheduler").Logger(),
			}
			go func() {
				if err := supervisor.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error().Err(err).Msg("supervisor stopped")
					cancel()
				}
			}()

			ws := &web.Server{
				Config:   cfg,
				Provider: provider,
				Status:   status,
				Watcher:  watch,
				History:  hist,
				Metrics:  metrics.Handler(),
				Logger:   logger.With().Str("component", "web").Logger(),
			}
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), logger)
		},
	}
}
