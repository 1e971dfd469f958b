package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spec-kit/mentor-portal/internal/domain"
)

func newProfileCommand(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "profile",
		Short:             "Show or update your customer profile",
		PersistentPreRunE: requireSession(deps),
	}
	cmd.AddCommand(newProfileShowCommand(deps))
	cmd.AddCommand(newProfileUpdateCommand(deps))
	return cmd
}

func newProfileShowCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored profile as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := deps.Sessions.Snapshot()
			if st.User == nil {
				return ErrNotSignedIn
			}
			profile, err := deps.Customers.GetProfile(commandContext(cmd), st.Token, st.User.UserID)
			if err != nil {
				return err
			}
			return writeJSON(cmd, profile)
		},
	}
}

func newProfileUpdateCommand(deps Deps) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace the profile with the contents of a JSON file",
		Long: `Replace the profile with the contents of a JSON file.

Examples:
  mentorctl profile show > profile.json
  mentorctl profile update --file profile.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := deps.Sessions.Snapshot()
			if st.User == nil {
				return ErrNotSignedIn
			}

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read profile: %w", err)
			}
			var profile domain.Profile
			if err := json.Unmarshal(raw, &profile); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			saved, err := deps.Customers.UpdateProfile(commandContext(cmd), st.Token, st.User.UserID, profile)
			if err != nil {
				return err
			}
			return writeJSON(cmd, saved)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the profile JSON (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
