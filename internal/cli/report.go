package cli

import (
	"github.com/spf13/cobra"

	"github.com/joyverse/joyverse-backend/internal/api/response"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <user>",
		Short: "Show a child's emotion and performance report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Report
			if err := client.Get(cmd.Context(), "/users/"+pathEscape(args[0])+"/report", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
