package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/atproto-session-cli/internal/application"
)

func newConnectCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Verify the stored session against the service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			hadSession := app.session.HasSession()

			status, err := runConnectSpinner(cmd.Context(), cmd.ErrOrStderr(), app.session.Connect)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), connectResultLine(app, hadSession, status))
			return err
		},
	}
}

func connectResultLine(app *app, hadSession bool, status application.Status) string {
	switch {
	case status.Online:
		data, _ := app.session.Data()
		return fmt.Sprintf("online as @%s (%s)", data.Handle, data.DID)
	case !hadSession:
		return "no session to verify; run `aps login` first"
	case status.HasSession:
		return "offline: service unreachable, session kept"
	default:
		return "session rejected by service and cleared; run `aps login` again"
	}
}
