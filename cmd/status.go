package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/smartcharge/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Refresh once and print the charge state as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(_ context.Context, svc *app.Service) error {
			v, err := svc.System.Status()
			if err != nil {
				return err
			}
			return printJSON(cmd, v)
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
