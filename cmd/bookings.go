package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/wod-scheduler/internal/booking"
	"github.com/example/wod-scheduler/internal/nubapp"
)

func newBookingsCmd() *cobra.Command {
	var multiUser bool
	var userName string

	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List upcoming bookings and waiting-list entries",
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
			for _, user := range users {
				sess, err := provider.Login(ctx, user.Login, user.Password)
				if err != nil {
					return fmt.Errorf("login %s: %w", user.Name, err)
				}
				current, err := sess.Bookings(ctx)
				if err != nil {
					return fmt.Errorf("fetch bookings for %s: %w", user.Name, err)
				}

				fmt.Printf("%s:\n", user.Name)
				if len(current.Bookings) == 0 && len(current.WaitingList) == 0 {
					fmt.Println("  no upcoming bookings")
					continue
				}
				for _, b := range current.Bookings {
					fmt.Printf("  %s\n", formatBooking(b, ""))
				}
				for _, b := range current.WaitingList {
					fmt.Printf("  %s\n", formatBooking(b, " (waiting list)"))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userName, "user", "", "config user to list (default: first user)")
	cmd.Flags().BoolVar(&multiUser, "multi-users", false, "list every configured user")
	return cmd
}

func formatBooking(b booking.Booking, suffix string) string {
	name := b.Activity
	if name == "" {
		name = "?"
	}
	out := fmt.Sprintf("%s  %s%s", b.Start, name, suffix)
	if b.Inscribed != nil && b.Capacity != nil {
		out += fmt.Sprintf("  [%d/%d]", *b.Inscribed, *b.Capacity)
	}
	return out
}
