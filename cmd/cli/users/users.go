package users

import (
	"fmt"
	"net/url"

	"github.com/crucial707/hci-account/cmd/cli/apiclient"
	"github.com/crucial707/hci-account/cmd/cli/output"
	"github.com/spf13/cobra"
)

type profile struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	ProfilePhotoURL string `json:"profilePhotoUrl,omitempty"`
}

// InitUsers registers the profile and photo commands on the root command.
func InitUsers(rootCmd *cobra.Command) {
	photoCmd := &cobra.Command{
		Use:   "photo",
		Short: "Manage profile photos",
	}
	photoCmd.AddCommand(uploadPhotoCmd())

	rootCmd.AddCommand(profileCmd(), photoCmd)
}

// ==========================
// Profile
// ==========================
func profileCmd() *cobra.Command {
	var email string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show a user's public profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}

			var p profile
			if err := apiclient.New().GetJSON("/user/profile", url.Values{"email": {email}}, &p); err != nil {
				return fmt.Errorf("get profile: %w", err)
			}

			if asJSON {
				return output.RenderJSON(cmd.OutOrStdout(), p)
			}
			photo := p.ProfilePhotoURL
			if photo == "" {
				photo = "-"
			}
			output.RenderTable(cmd.OutOrStdout(),
				[]string{"ID", "Name", "Email", "Photo"},
				[][]interface{}{{p.ID, p.Name, p.Email, photo}},
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON instead of a table")
	return cmd
}

// ==========================
// Upload Photo
// ==========================
func uploadPhotoCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a profile photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}

			var out struct {
				PhotoURL string `json:"photoUrl"`
			}
			err := apiclient.New().PostFile("/user/profile-photo", "profilePhoto", args[0],
				map[string]string{"email": email}, &out)
			if err != nil {
				return fmt.Errorf("upload photo: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Photo uploaded: %s\n", out.PhotoURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	return cmd
}
