package httpapi

import (
	"time"

	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/usecase/dashboard"
	"github.com/simaogato/tradejournal-backend/internal/usecase/desk"
	"github.com/simaogato/tradejournal-backend/internal/usecase/stats"
)

// TradeView is the JSON form of a trade record
type TradeView struct {
	ID             string     `json:"id,omitempty"`
	LocalKey       string     `json:"local_key,omitempty"`
	PnL            string     `json:"pnl"`
	Direction      string     `json:"direction"`
	Emotions       string     `json:"emotions"`
	Screenshot     string     `json:"screenshot,omitempty"`
	ChecklistScore int        `json:"checklist_score"`
	CreatedAt      *time.Time `json:"created_at"`
	Sync           string     `json:"sync"`
}

// StatsView is the JSON form of a stats summary; amounts have two decimals
type StatsView struct {
	TotalTrades           int        `json:"total_trades"`
	Wins                  int        `json:"wins"`
	Losses                int        `json:"losses"`
	WinRate               string     `json:"win_rate"`
	GrossProfit           string     `json:"gross_profit"`
	GrossLoss             string     `json:"gross_loss"`
	ProfitFactor          string     `json:"profit_factor"`
	NetProfit             string     `json:"net_profit"`
	Balance               string     `json:"balance"`
	AverageWin            string     `json:"average_win"`
	AverageLoss           string     `json:"average_loss"`
	LargestWin            string     `json:"largest_win"`
	LargestLoss           string     `json:"largest_loss"`
	ReturnPct             string     `json:"return_pct"`
	MaxDrawdownPct        string     `json:"max_drawdown_pct"`
	AverageChecklistScore string     `json:"average_checklist_score"`
	LastTrade             *TradeView `json:"last_trade"`
}

// SummaryView is the JSON form of the dashboard summary
type SummaryView struct {
	StartingCapital string      `json:"starting_capital"`
	Stats           StatsView   `json:"stats"`
	Recent          []TradeView `json:"recent"`
}

// ChecklistItemView is the JSON form of a checklist item
type ChecklistItemView struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Status   bool   `json:"status"`
}

// DeskView is the JSON form of the desk
type DeskView struct {
	PnL        string              `json:"pnl"`
	Direction  string              `json:"direction"`
	Emotions   string              `json:"emotions"`
	Screenshot string              `json:"screenshot,omitempty"`
	Checklist  []ChecklistItemView `json:"checklist"`
	Score      int                 `json:"score"`
	CanSubmit  bool                `json:"can_submit"`
	Submitting bool                `json:"submitting"`
}

// SettingsView is the JSON form of the account settings
type SettingsView struct {
	StartingCapital string `json:"starting_capital"`
}

func tradeView(t domain.TradeRecord) TradeView {
	return TradeView{
		ID:             t.ID,
		LocalKey:       t.LocalKey,
		PnL:            t.PnL.StringFixed(2),
		Direction:      string(t.Direction),
		Emotions:       t.Emotions,
		Screenshot:     t.Screenshot,
		ChecklistScore: t.ChecklistScore,
		CreatedAt:      t.CreatedAt,
		Sync:           string(t.Sync),
	}
}

func tradeViews(records []domain.TradeRecord) []TradeView {
	out := make([]TradeView, 0, len(records))
	for _, r := range records {
		out = append(out, tradeView(r))
	}
	return out
}

func statsView(s stats.Summary) StatsView {
	v := StatsView{
		TotalTrades:           s.TotalTrades,
		Wins:                  s.Wins,
		Losses:                s.Losses,
		WinRate:               s.WinRate.StringFixed(2),
		GrossProfit:           s.GrossProfit.StringFixed(2),
		GrossLoss:             s.GrossLoss.StringFixed(2),
		ProfitFactor:          s.ProfitFactor.String(),
		NetProfit:             s.NetProfit.StringFixed(2),
		Balance:               s.Balance.StringFixed(2),
		AverageWin:            s.AverageWin.StringFixed(2),
		AverageLoss:           s.AverageLoss.StringFixed(2),
		LargestWin:            s.LargestWin.StringFixed(2),
		LargestLoss:           s.LargestLoss.StringFixed(2),
		ReturnPct:             s.ReturnPct.StringFixed(2),
		MaxDrawdownPct:        s.MaxDrawdownPct.StringFixed(2),
		AverageChecklistScore: s.AverageChecklistScore.StringFixed(2),
	}
	if s.LastTrade != nil {
		last := tradeView(*s.LastTrade)
		v.LastTrade = &last
	}
	return v
}

func summaryView(s dashboard.Summary) SummaryView {
	return SummaryView{
		StartingCapital: s.StartingCapital.StringFixed(2),
		Stats:           statsView(s.Stats),
		Recent:          tradeViews(s.Recent),
	}
}

func checklistViews(items []domain.ChecklistItem) []ChecklistItemView {
	out := make([]ChecklistItemView, 0, len(items))
	for _, item := range items {
		out = append(out, ChecklistItemView{
			ID:       item.ID,
			Text:     item.Text,
			Category: string(item.Category),
			Status:   item.Status,
		})
	}
	return out
}

func deskView(s desk.State) DeskView {
	v := DeskView{
		PnL:        s.Draft.PnL,
		Direction:  string(s.Draft.Direction),
		Emotions:   s.Draft.Emotions,
		Checklist:  checklistViews(s.Items),
		Score:      s.Score,
		CanSubmit:  s.CanSubmit,
		Submitting: s.Submitting,
	}
	if s.Draft.Screenshot != nil {
		v.Screenshot = s.Draft.Screenshot.DataURL()
	}
	return v
}

func settingsView(s domain.AccountSettings) SettingsView {
	return SettingsView{StartingCapital: s.StartingCapital.StringFixed(2)}
}
