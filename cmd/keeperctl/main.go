package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"keeper.dev/keeper/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "keeperctl",
		Short: "keeperctl - admin tool for the Keeper engine",
		Long: `keeperctl manages plans and invite tokens, mints admin API tokens and
runs the periodic sweeps on demand, against the store configured for the server.`,
		SilenceUsage: true,
	}
	cli.BindGlobalFlags(rootCmd)

	rootCmd.AddCommand(cli.AdminTokenCmd())
	rootCmd.AddCommand(cli.PlanCmd())
	rootCmd.AddCommand(cli.InviteCmd())
	rootCmd.AddCommand(cli.SweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
