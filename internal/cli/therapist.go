package cli

import (
	"github.com/spf13/cobra"

	"github.com/joyverse/joyverse-backend/internal/api/response"
)

func newTherapistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "therapist",
		Short: "Therapist approval commands (admin)",
	}

	cmd.AddCommand(newTherapistListCmd())
	cmd.AddCommand(newTherapistApproveCmd())

	return cmd
}

func newTherapistListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List therapists",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/therapists"
			if status != "" {
				path += "?status=" + pathEscape(status)
			}

			var result response.UserList
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by approval status: pending, approved")

	return cmd
}

func newTherapistApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <username>",
		Short: "Approve a therapist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.User
			if err := client.Post(cmd.Context(), "/therapists/"+pathEscape(args[0])+"/approve", nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
