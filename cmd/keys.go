package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newKeysCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate dashboard cookie keys (and a password hash) for the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := make([]byte, 32)
			block := make([]byte, 32)
			if _, err := rand.Read(hash); err != nil {
				return err
			}
			if _, err := rand.Read(block); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "cookie_hash_key = %q\n", base64.StdEncoding.EncodeToString(hash))
			fmt.Fprintf(os.Stdout, "cookie_block_key = %q\n", base64.StdEncoding.EncodeToString(block))

			if password != "" {
				pw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "password_hash = %q\n", string(pw))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "also print a bcrypt hash of this dashboard password")
	return cmd
}
