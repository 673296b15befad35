package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "journal",
	Short: "Trading journal client",
	Long: `Journal records trade outcomes against a running account balance,
gated behind a pre-trade checklist, and reports performance statistics.

Trades and settings live on a remote document store server and are mirrored
locally through realtime subscriptions.

Subcommands:
  serve     - Run the desk HTTP API with a live summary feed
  submit    - Record a trade after passing the checklist
  trades    - List or delete recorded trades
  settings  - Show or change the account settings
  stats     - Print the performance summary

Examples:
  journal serve
  journal submit --pnl 150 --direction BUY --check 1,2,3,4,5,6
  journal trades list
  journal settings set-capital 25000`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Commands run with a context cancelled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
}
