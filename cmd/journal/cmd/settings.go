package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the account settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCapitalCmd = &cobra.Command{
	Use:   "set-capital <amount>",
	Short: "Set the starting capital",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsSetCapital,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsSetCapitalCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "User:             %s\n", s.userID)
	fmt.Fprintf(cmd.OutOrStdout(), "Starting capital: %s\n", s.settings.Current().StartingCapital.StringFixed(2))
	return nil
}

func runSettingsSetCapital(cmd *cobra.Command, args []string) error {
	capital, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("amount %q is not a number: %w", args[0], err)
	}
	if capital.IsNegative() {
		return fmt.Errorf("amount must not be negative")
	}

	s, err := openSession(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()

	write, err := s.settings.Update(cmd.Context(), capital)
	if err != nil {
		return err
	}
	if err := write.Wait(cmd.Context()); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Starting capital set to %s\n", capital.StringFixed(2))
	return nil
}
