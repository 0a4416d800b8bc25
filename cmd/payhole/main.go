package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/payhole/payments/internal/interfaces/cli/server"
	"github.com/payhole/payments/internal/interfaces/cli/unlocks"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "payhole",
		Short:        "Payhole - on-chain payment verification and unlock credentials",
		Long:         `Payhole verifies USDC payments on Solana, issues time-limited unlock credentials and keeps a ledger of unlocked wallets.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a config file (defaults to ./configs/config.yaml when present)")

	rootCmd.AddCommand(
		server.NewCommand(),
		unlocks.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
