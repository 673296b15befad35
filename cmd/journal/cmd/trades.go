package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List or delete recorded trades",
}

var tradesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades, newest first",
	Args:  cobra.NoArgs,
	RunE:  runTradesList,
}

var tradesRemoveCmd = &cobra.Command{
	Use:   "rm <trade-id>",
	Short: "Delete a recorded trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradesRemove,
}

var tradesLimit int

func init() {
	rootCmd.AddCommand(tradesCmd)
	tradesCmd.AddCommand(tradesListCmd)
	tradesCmd.AddCommand(tradesRemoveCmd)

	tradesListCmd.Flags().IntVarP(&tradesLimit, "limit", "n", 0, "show at most n trades (0 for all)")
}

func runTradesList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()

	records := s.trades.Records()
	if tradesLimit > 0 && len(records) > tradesLimit {
		records = records[:tradesLimit]
	}
	return writeTrades(cmd.OutOrStdout(), records)
}

func runTradesRemove(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.trades.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("remove trade: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted trade %s\n", args[0])
	return nil
}
