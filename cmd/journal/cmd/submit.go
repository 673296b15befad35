package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/usecase/checklist"
	"github.com/simaogato/tradejournal-backend/internal/usecase/desk"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Record a trade after passing the checklist",
	Long: `Record a trade outcome. Every checklist item must be confirmed with
--check (or --all-checked) before the trade is accepted.

Example:
  journal submit --pnl -42.50 --direction SELL --emotions "chased the move" \
    --screenshot chart.png --check 1,2,3,4,5,6`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

var (
	submitPnL        string
	submitDirection  string
	submitEmotions   string
	submitScreenshot string
	submitChecks     []int
	submitAllChecked bool
)

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVar(&submitPnL, "pnl", "", "realized profit or loss (required)")
	submitCmd.Flags().StringVar(&submitDirection, "direction", string(domain.DirectionBuy), "BUY or SELL")
	submitCmd.Flags().StringVar(&submitEmotions, "emotions", "", "free-text note on your state of mind")
	submitCmd.Flags().StringVar(&submitScreenshot, "screenshot", "", "path to a chart image (at most 800000 bytes)")
	submitCmd.Flags().IntSliceVar(&submitChecks, "check", nil, "checklist item ids you confirm")
	submitCmd.Flags().BoolVar(&submitAllChecked, "all-checked", false, "confirm every checklist item")
	submitCmd.MarkFlagRequired("pnl")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()

	gate, err := checklist.NewGate(s.items)
	if err != nil {
		return err
	}
	deskService := desk.NewService(s.trades, gate)

	if err := fillDraft(deskService, s.items); err != nil {
		return err
	}

	if !deskService.CanSubmit() {
		state := deskService.State()
		return fmt.Errorf("checklist incomplete: %d of %d items confirmed", state.Score, len(state.Items))
	}

	if err := deskService.Submit(cmd.Context()); err != nil {
		return fmt.Errorf("submit trade: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Trade recorded")
	return nil
}

func fillDraft(deskService *desk.Service, items []domain.ChecklistItem) error {
	if err := deskService.SetPnL(submitPnL); err != nil {
		return err
	}

	direction, err := domain.ParseDirection(submitDirection)
	if err != nil {
		return err
	}
	if err := deskService.SetDirection(direction); err != nil {
		return err
	}

	if err := deskService.SetEmotions(submitEmotions); err != nil {
		return err
	}

	if submitScreenshot != "" {
		raw, err := os.ReadFile(submitScreenshot)
		if err != nil {
			return fmt.Errorf("read screenshot: %w", err)
		}
		if err := deskService.AttachScreenshot(raw); err != nil {
			return err
		}
	}

	checks := submitChecks
	if submitAllChecked {
		checks = nil
		for _, item := range items {
			checks = append(checks, item.ID)
		}
	}
	confirmed := make(map[int]bool, len(checks))
	for _, id := range checks {
		if confirmed[id] {
			continue
		}
		confirmed[id] = true
		if _, err := deskService.Toggle(id); err != nil {
			return err
		}
	}
	return nil
}
