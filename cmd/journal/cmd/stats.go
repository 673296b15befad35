package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simaogato/tradejournal-backend/internal/usecase/dashboard"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the performance summary",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()

	dashboardService := dashboard.NewDashboardService(s.trades, s.settings)
	defer dashboardService.Close()

	summary := dashboardService.Summary()
	if err := writeSummary(cmd.OutOrStdout(), summary.Stats, summary.StartingCapital.StringFixed(2)); err != nil {
		return err
	}
	if len(summary.Recent) == 0 {
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), "Recent trades")
	return writeTrades(cmd.OutOrStdout(), summary.Recent)
}
