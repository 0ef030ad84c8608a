package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/identity"
)

func newSignupCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account in the local identity provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PRODUCTIVITY_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("--email and --password (or PRODUCTIVITY_PASSWORD) are required")
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			provider := identity.New(db, a.cfg.Session.TTL, a.logger)
			sess, err := provider.SignUp(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\nsession token: %s\nexpires: %s\n",
				sess.Email, sess.Token, sess.ExpiresAt.Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}
