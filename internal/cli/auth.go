package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/mentor-portal/internal/domain"
	"github.com/spec-kit/mentor-portal/internal/session"
)

func newAuthCommand(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage your platform session",
	}
	cmd.AddCommand(newAuthRegisterCommand(deps))
	cmd.AddCommand(newAuthLoginCommand(deps))
	cmd.AddCommand(newAuthLogoutCommand(deps))
	cmd.AddCommand(newAuthStatusCommand(deps))
	return cmd
}

func newAuthRegisterCommand(deps Deps) *cobra.Command {
	var email, password, kind string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Long: `Create a mentor or mentee account. After registration you are signed in.

Examples:
  mentorctl auth register --email ada@example.com --password s3cret --type MENTOR`,
		RunE: func(cmd *cobra.Command, args []string) error {
			customerType, ok := domain.ParseCustomerType(kind)
			if !ok {
				return fmt.Errorf("--type must be MENTOR or MENTEE, got %q", kind)
			}

			err := deps.Sessions.Register(commandContext(cmd), domain.RegisterInput{
				Email:        email,
				Password:     password,
				CustomerType: customerType,
			})
			if err != nil {
				return submitError("registration failed", deps.Sessions, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Registration successful. You are now signed in.")
			printUser(cmd, deps.Sessions.Snapshot())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (required)")
	cmd.Flags().StringVar(&kind, "type", string(domain.CustomerTypeMentee), "Account type: MENTOR or MENTEE")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newAuthLoginCommand(deps Deps) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Sessions.Login(commandContext(cmd), email, password); err != nil {
				return submitError("login failed", deps.Sessions, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Signed in.")
			printUser(cmd, deps.Sessions.Snapshot())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newAuthLogoutCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			// an unreadable session file is still removed below
			if err := deps.Sessions.InitializeAuth(ctx); err != nil && ctx.Err() != nil {
				return err
			}
			deps.Sessions.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newAuthStatusCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the stored session is still valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if err := deps.Sessions.InitializeAuth(ctx); err != nil {
				return err
			}
			if deps.Sessions.HasToken() {
				if err := deps.Sessions.ValidateToken(ctx); err != nil && ctx.Err() != nil {
					return ctx.Err()
				}
			}

			st := deps.Sessions.Snapshot()
			if !st.IsAuthenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				fmt.Fprintln(cmd.OutOrStdout(), "Use 'mentorctl auth login' to sign in.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed in")
			printUser(cmd, st)
			return nil
		},
	}
}

func printUser(cmd *cobra.Command, st session.State) {
	if st.User == nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User ID: %d\n", st.User.UserID)
	fmt.Fprintf(out, "Email:   %s\n", st.User.Email)
	fmt.Fprintf(out, "Type:    %s\n", strings.ToLower(string(st.User.CustomerType)))
}

// submitError prefers the message the session recorded for the user.
func submitError(prefix string, sessions *session.Store, err error) error {
	if msg := sessions.Snapshot().Error; msg != "" {
		return fmt.Errorf("%s: %s", prefix, msg)
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
