package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDescribeCmd(app *app) *cobra.Command {
	var service string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Show a service's account-creation configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if service == "" {
				service = app.defaultService
			}

			description, err := app.session.DescribeService(cmd.Context(), service)
			if err != nil {
				return err
			}

			if asJSON {
				encoded, err := json.MarshalIndent(description, "", "  ")
				if err != nil {
					return fmt.Errorf("encode description: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "service: %s\n", service)
			fmt.Fprintf(out, "invite code required: %t\n", description.InviteCodeRequired)
			if len(description.AvailableUserDomains) > 0 {
				fmt.Fprintf(out, "user domains: %s\n", strings.Join(description.AvailableUserDomains, ", "))
			}
			if description.PrivacyPolicy != "" {
				fmt.Fprintf(out, "privacy policy: %s\n", description.PrivacyPolicy)
			}
			if description.TermsOfService != "" {
				fmt.Fprintf(out, "terms of service: %s\n", description.TermsOfService)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Account service URL (defaults to the configured service)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the description as JSON")

	return cmd
}
