package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/atproto-session-cli/internal/ports"
)

func newCreateAccountCmd(app *app) *cobra.Command {
	var service string
	var email string
	var handle string
	var password string
	var inviteCode string

	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Register a new account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if service == "" {
				service = app.defaultService
			}

			err := app.session.CreateAccount(cmd.Context(), service, ports.CreateAccountParams{
				Email:      email,
				Handle:     handle,
				Password:   password,
				InviteCode: inviteCode,
			})
			if err != nil {
				return err
			}

			data, _ := app.session.Data()
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Account created: @%s (%s)\n", data.Handle, data.DID)
			return err
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Account service URL (defaults to the configured service)")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&handle, "handle", "", "Desired handle")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&inviteCode, "invite-code", "", "Invite code, if the service requires one")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("handle")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
