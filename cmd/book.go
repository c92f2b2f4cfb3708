package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/wod-scheduler/internal/booking"
	"github.com/example/wod-scheduler/internal/config"
	"github.com/example/wod-scheduler/internal/nubapp"
	"github.com/example/wod-scheduler/internal/schedule"
)

func newBookCmd() *cobra.Command {
	var (
		userName  string
		multiUser bool
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "book [weekday...]",
		Short: "Book the configured slot for the next occurrence of each weekday, right now",
		Long: `Book attempts the configured slot for the next occurrence of each named
weekday immediately, without waiting for the booking window. Useful when
the service was down when a window opened. With no arguments it books
every weekday the user has configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			provider := nubapp.New(cfg.App.ApplicationID, cfg.App.CategoryActivityID, logger)

			users, err := selectUsers(cfg, userName, multiUser)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			for i, user := range users {
				if i > 0 {
					// pause between accounts so the API does not see a burst
					time.Sleep(5 * time.Second)
				}
				days := args
				if len(days) == 0 {
					days = user.Slots
				}
				if err := bookDays(ctx, cfg, provider, user, days, dryRun); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userName, "user", "", "config user to book for (default: first user)")
	cmd.Flags().BoolVar(&multiUser, "multi-users", false, "book for every configured user")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the slot that would be booked without booking it")
	return cmd
}

func selectUsers(cfg *config.Config, name string, all bool) ([]config.User, error) {
	if all {
		return cfg.Users, nil
	}
	if name == "" {
		user, ok := cfg.FirstUser()
		if !ok {
			return nil, fmt.Errorf("no users configured")
		}
		return []config.User{user}, nil
	}
	for _, user := range cfg.Users {
		if strings.EqualFold(user.Name, name) {
			return []config.User{user}, nil
		}
	}
	return nil, fmt.Errorf("unknown user %q", name)
}

func bookDays(ctx context.Context, cfg *config.Config, provider booking.Provider, user config.User, days []string, dryRun bool) error {
	sess, err := provider.Login(ctx, user.Login, user.Password)
	if err != nil {
		return fmt.Errorf("login %s: %w", user.Name, err)
	}

	loc := cfg.Location()
	now := time.Now().In(loc)

	for _, day := range days {
		spec, ok := cfg.Slots[day]
		if !ok {
			logger.Warn().Str("day", day).Msg("no slot configured for day, skipping")
			continue
		}
		weekday, ok := schedule.ParseWeekday(day)
		if !ok {
			logger.Warn().Str("day", day).Msg("not a weekday, skipping")
			continue
		}
		target := schedule.NextWeekday(now, weekday)

		slots, err := sess.Slots(ctx, target)
		if err != nil {
			return fmt.Errorf("fetch slots for %s: %w", schedule.ISODate(target), err)
		}
		slot, ok := booking.FindSlot(slots, spec.Time, spec.Activity)
		if !ok {
			fmt.Printf("%s %s: no %s slot at %s\n", user.Name, schedule.ISODate(target), spec.Activity, spec.Time)
			continue
		}

		if dryRun {
			fmt.Printf("%s %s: would book %s at %s (id %s)\n",
				user.Name, schedule.ISODate(target), slot.Name, slot.Start, slot.ID)
			continue
		}

		result, err := sess.Book(ctx, slot.ID)
		if err != nil {
			return fmt.Errorf("book %s: %w", slot.ID, err)
		}
		if !result.Success {
			wl, err := sess.BookWaitingList(ctx, slot.ID)
			if err != nil {
				return fmt.Errorf("join waiting list %s: %w", slot.ID, err)
			}
			if wl.Success {
				fmt.Printf("%s %s: slot full, joined waiting list\n", user.Name, schedule.ISODate(target))
			} else {
				fmt.Printf("%s %s: failed: %s\n", user.Name, schedule.ISODate(target), wl.Message)
			}
			continue
		}
		fmt.Printf("%s %s: booked %s at %s\n", user.Name, schedule.ISODate(target), slot.Name, slot.Start)
	}
	return nil
}
