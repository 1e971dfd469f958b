// Package cli implements the mentorctl command tree.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/mentor-portal/internal/auth"
	"github.com/spec-kit/mentor-portal/internal/service"
	"github.com/spec-kit/mentor-portal/internal/session"
)

// ErrNotSignedIn is returned by protected commands when there is no valid session.
var ErrNotSignedIn = errors.New("not signed in: run 'mentorctl auth login' first")

// Deps are the collaborators every command shares.
type Deps struct {
	Sessions  *session.Store
	Customers *service.CustomerService
	Guard     *auth.Guard
}

// NewRootCommand builds the mentorctl command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "mentorctl",
		Short: "Command line client for the mentorship platform",
		Long: `mentorctl signs in to the mentorship platform and manages your customer profile.

The session token is kept in the configured token storage, so a login
survives between invocations.`,
		SilenceUsage: true,
	}

	root.AddCommand(newAuthCommand(deps))
	root.AddCommand(newProfileCommand(deps))
	root.AddCommand(newDashboardCommand(deps))
	return root
}

// requireSession runs the route guard for a protected command.
func requireSession(deps Deps) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		mount := deps.Guard.Mount(ctx)
		switch mount.Wait() {
		case auth.PhaseRender:
			return nil
		case auth.PhaseRedirect:
			return ErrNotSignedIn
		default:
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("session check: %w", err)
			}
			return errors.New("session check canceled")
		}
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
