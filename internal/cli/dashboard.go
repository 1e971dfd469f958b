package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDashboardCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:               "dashboard",
		Short:             "Show who you are signed in as",
		PersistentPreRunE: requireSession(deps),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := deps.Sessions.Snapshot()
			fmt.Fprintln(cmd.OutOrStdout(), "Dashboard")
			printUser(cmd, st)
			return nil
		},
	}
}
