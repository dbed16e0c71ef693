package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *app) *cobra.Command {
	var service string
	var handle string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an account service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if service == "" {
				service = app.defaultService
			}

			if err := app.session.Login(cmd.Context(), service, handle, password); err != nil {
				return err
			}

			data, _ := app.session.Data()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Logged in as @%s (%s)\n", data.Handle, data.DID)
			return err
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Account service URL (defaults to the configured service)")
	cmd.Flags().StringVar(&handle, "handle", "", "Handle or identifier")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("handle")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
