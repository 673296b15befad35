package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/usecase/stats"
)

func writeTrades(w io.Writer, records []domain.TradeRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tDIR\tPNL\tSCORE\tSYNC\tEMOTIONS")
	for _, rec := range records {
		id := rec.ID
		if id == "" {
			id = rec.LocalKey
		}
		created := "-"
		if rec.CreatedAt != nil {
			created = rec.CreatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			id, created, rec.Direction, rec.PnL.StringFixed(2), rec.ChecklistScore, rec.Sync, rec.Emotions)
	}
	return tw.Flush()
}

func writeSummary(w io.Writer, s stats.Summary, capital string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := []struct {
		label string
		value string
	}{
		{"Starting capital", capital},
		{"Balance", s.Balance.StringFixed(2)},
		{"Net profit", s.NetProfit.StringFixed(2)},
		{"Return %", s.ReturnPct.StringFixed(2)},
		{"Trades", fmt.Sprintf("%d (%d wins, %d losses)", s.TotalTrades, s.Wins, s.Losses)},
		{"Win rate %", s.WinRate.StringFixed(2)},
		{"Profit factor", s.ProfitFactor.String()},
		{"Gross profit", s.GrossProfit.StringFixed(2)},
		{"Gross loss", s.GrossLoss.StringFixed(2)},
		{"Average win", s.AverageWin.StringFixed(2)},
		{"Average loss", s.AverageLoss.StringFixed(2)},
		{"Largest win", s.LargestWin.StringFixed(2)},
		{"Largest loss", s.LargestLoss.StringFixed(2)},
		{"Max drawdown %", s.MaxDrawdownPct.StringFixed(2)},
		{"Avg checklist score", s.AverageChecklistScore.StringFixed(2)},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row.label, row.value)
	}
	if s.LastTrade != nil {
		fmt.Fprintf(tw, "Last trade\t%s %s\n", s.LastTrade.Direction, s.LastTrade.PnL.StringFixed(2))
	}
	return tw.Flush()
}
