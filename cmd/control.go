package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/smartcharge/app"
	"github.com/kilianp07/smartcharge/core/gateway"
)

var boostCmd = &cobra.Command{
	Use:   "boost",
	Short: "Start or cancel a boost charge",
}

var smartCmd = &cobra.Command{
	Use:   "smart",
	Short: "Suspend or resume smart charging",
}

var (
	prefsSoC     int
	prefsReadyBy string
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Set the target state of charge and ready-by time",
	Long: "Without flags the accepted values are listed. With a single flag the " +
		"other value is taken from the current preferences.",
	RunE: runPrefs,
}

var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove the persisted state of the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			if err := svc.Forget(ctx); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "persisted state removed")
			return err
		})
	},
}

// mutation builds a subcommand calling op on the system and printing the
// refreshed status.
func mutation(use, short string, op func(ctx context.Context, svc *app.Service) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *app.Service) error {
				if err := op(ctx, svc); err != nil {
					return err
				}
				v, err := svc.System.Status()
				if err != nil {
					return err
				}
				return printJSON(cmd, v)
			})
		},
	}
}

func init() {
	boostCmd.AddCommand(
		mutation("start", "Trigger a boost charge", func(ctx context.Context, svc *app.Service) error {
			return svc.System.StartBoostCharge(ctx)
		}),
		mutation("cancel", "Cancel the running boost charge", func(ctx context.Context, svc *app.Service) error {
			return svc.System.CancelBoostCharge(ctx)
		}),
	)
	smartCmd.AddCommand(
		mutation("suspend", "Suspend smart charging", func(ctx context.Context, svc *app.Service) error {
			return svc.System.SuspendSmartCharging(ctx)
		}),
		mutation("resume", "Resume smart charging", func(ctx context.Context, svc *app.Service) error {
			return svc.System.ResumeSmartCharging(ctx)
		}),
	)
	prefsCmd.Flags().IntVar(&prefsSoC, "soc", 0, "target state of charge in percent")
	prefsCmd.Flags().StringVar(&prefsReadyBy, "ready-by", "", "ready-by time HH:MM")
	rootCmd.AddCommand(boostCmd, smartCmd, prefsCmd, forgetCmd)
}

func runPrefs(cmd *cobra.Command, args []string) error {
	socSet := cmd.Flags().Changed("soc")
	readySet := cmd.Flags().Changed("ready-by")
	if !socSet && !readySet {
		return printJSON(cmd, map[string]any{
			"soc":      gateway.SoCOptions(),
			"ready_by": gateway.ReadyByOptions(),
		})
	}
	return withService(cmd, func(ctx context.Context, svc *app.Service) error {
		var err error
		switch {
		case socSet && readySet:
			err = svc.System.SetChargePreferences(ctx, prefsReadyBy, prefsSoC)
		case socSet:
			err = svc.System.SetTargetSoC(ctx, prefsSoC)
		default:
			err = svc.System.SetTargetTime(ctx, prefsReadyBy)
		}
		if err != nil {
			return err
		}
		v, err := svc.System.Status()
		if err != nil {
			return err
		}
		return printJSON(cmd, v)
	})
}
