package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "aps",
		Short:         "AT-protocol session CLI (aps): manage one account session",
		Long:          "aps keeps a single authenticated session against an AT-protocol account service: log in, create an account, verify a restored session against the server, and log out.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newCreateAccountCmd(app),
		newLogoutCmd(app),
		newConnectCmd(app),
		newStatusCmd(app),
		newDescribeCmd(app),
	)

	return rootCmd
}
