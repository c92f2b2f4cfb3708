package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/wod-scheduler/internal/nubapp"
)

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Log in and dump the account's activity categories, for filling in the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			user, ok := cfg.FirstUser()
			if !ok {
				return fmt.Errorf("no users configured")
			}
			provider := nubapp.New(cfg.App.ApplicationID, cfg.App.CategoryActivityID, logger)

			logged, err := provider.Login(cmd.Context(), user.Login, user.Password)
			if err != nil {
				return fmt.Errorf("login %s: %w", user.Name, err)
			}
			sess := logged.(*nubapp.Session)
			fmt.Printf("logged in as %s (id_user %s)\n\n", user.Name, sess.IDUser())

			categories, err := sess.Categories(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch categories: %w", err)
			}
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, categories, "", "  "); err != nil {
				// raw is still useful when the shape surprises us
				_, _ = os.Stdout.Write(categories)
				return nil
			}
			_, _ = pretty.WriteTo(os.Stdout)
			fmt.Println()
			return nil
		},
	}
}
