package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/smartcharge/infra/kraken"
	"github.com/kilianp07/smartcharge/infra/logger"
)

var mockCfg kraken.MockConfig

var mockAPICmd = &cobra.Command{
	Use:   "mock-api",
	Short: "Serve a local mock of the provider GraphQL API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		srv := kraken.NewMockServer(mockCfg, nil, logger.New("kraken-mock"))
		return srv.Start(ctx)
	},
}

func init() {
	mockAPICmd.Flags().StringVar(&mockCfg.Address, "addr", ":8085", "listen address")
	mockAPICmd.Flags().StringVar(&mockCfg.APIKey, "api-key", "sk_test_mock", "accepted API key")
	mockAPICmd.Flags().StringVar(&mockCfg.AccountID, "account", "A-00000000", "account number served")
	rootCmd.AddCommand(mockAPICmd)
}
