package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/smartcharge/app"
	"github.com/kilianp07/smartcharge/pkg/export"
)

var (
	dispatchFormat    string
	dispatchCompleted bool
)

var dispatchesCmd = &cobra.Command{
	Use:   "dispatches",
	Short: "Refresh once and print the planned dispatches",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(_ context.Context, svc *app.Service) error {
			snap, err := svc.System.Snapshot()
			if err != nil {
				return err
			}
			records := snap.PlannedDispatches
			if dispatchCompleted {
				records = snap.CompletedDispatches
			}
			return export.Write(cmd.OutOrStdout(), dispatchFormat, records)
		})
	},
}

func init() {
	dispatchesCmd.Flags().StringVarP(&dispatchFormat, "format", "f", "json", "output format: json or csv")
	dispatchesCmd.Flags().BoolVar(&dispatchCompleted, "completed", false, "print completed dispatches instead")
	rootCmd.AddCommand(dispatchesCmd)
}
