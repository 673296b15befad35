package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/simaogato/tradejournal-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// ProfitFactor is grossProfit / grossLoss.
// Infinite is set when there are profits but no losses; Value is then zero.
type ProfitFactor struct {
	Value    decimal.Decimal
	Infinite bool
}

// String renders the factor with two decimals, or "inf"
func (p ProfitFactor) String() string {
	if p.Infinite {
		return "inf"
	}
	return p.Value.StringFixed(2)
}

// Summary is the performance summary of a trade set
type Summary struct {
	TotalTrades  int
	Wins         int
	Losses       int
	WinRate      decimal.Decimal
	GrossProfit  decimal.Decimal
	GrossLoss    decimal.Decimal
	ProfitFactor ProfitFactor
	NetProfit    decimal.Decimal
	Balance      decimal.Decimal
	LastTrade    *domain.TradeRecord

	AverageWin            decimal.Decimal
	AverageLoss           decimal.Decimal
	LargestWin            decimal.Decimal
	LargestLoss           decimal.Decimal
	ReturnPct             decimal.Decimal
	MaxDrawdownPct        decimal.Decimal
	AverageChecklistScore decimal.Decimal
}

// Compute derives the summary of trades against startingCapital.
// Logic:
//   - wins are pnl > 0, losses pnl < 0; zero pnl counts toward neither
//   - every ratio is 0 when its denominator is 0
//   - grossLoss and averageLoss/largestLoss are reported as positive amounts
//   - lastTrade is the most recent createdAt; records without one are the
//     most recent of all, and ties go to the earliest position in trades
//
// Compute has no side effects and does not retain trades.
func Compute(trades []domain.TradeRecord, startingCapital decimal.Decimal) Summary {
	s := Summary{
		TotalTrades: len(trades),
		GrossProfit: decimal.Zero,
		GrossLoss:   decimal.Zero,
		NetProfit:   decimal.Zero,
		LargestWin:  decimal.Zero,
		LargestLoss: decimal.Zero,
	}

	scoreSum := 0
	for _, t := range trades {
		s.NetProfit = s.NetProfit.Add(t.PnL)
		scoreSum += t.ChecklistScore

		switch t.PnL.Sign() {
		case 1:
			s.Wins++
			s.GrossProfit = s.GrossProfit.Add(t.PnL)
			if t.PnL.GreaterThan(s.LargestWin) {
				s.LargestWin = t.PnL
			}
		case -1:
			s.Losses++
			loss := t.PnL.Abs()
			s.GrossLoss = s.GrossLoss.Add(loss)
			if loss.GreaterThan(s.LargestLoss) {
				s.LargestLoss = loss
			}
		}
	}

	s.Balance = startingCapital.Add(s.NetProfit)
	s.WinRate = percent(decimal.NewFromInt(int64(s.Wins)), decimal.NewFromInt(int64(s.TotalTrades)))
	s.ProfitFactor = profitFactor(s.GrossProfit, s.GrossLoss)
	s.AverageWin = ratio(s.GrossProfit, decimal.NewFromInt(int64(s.Wins)))
	s.AverageLoss = ratio(s.GrossLoss, decimal.NewFromInt(int64(s.Losses)))
	s.AverageChecklistScore = ratio(decimal.NewFromInt(int64(scoreSum)), decimal.NewFromInt(int64(s.TotalTrades)))
	s.ReturnPct = decimal.Zero
	if startingCapital.IsPositive() {
		s.ReturnPct = percent(s.NetProfit, startingCapital)
	}
	s.MaxDrawdownPct = maxDrawdownPct(trades, startingCapital)
	s.LastTrade = lastTrade(trades)

	return s
}

func profitFactor(grossProfit, grossLoss decimal.Decimal) ProfitFactor {
	if grossLoss.IsPositive() {
		return ProfitFactor{Value: grossProfit.Div(grossLoss)}
	}
	if grossProfit.IsPositive() {
		return ProfitFactor{Value: decimal.Zero, Infinite: true}
	}
	return ProfitFactor{Value: decimal.Zero}
}

func ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}

func percent(num, den decimal.Decimal) decimal.Decimal {
	return ratio(num.Mul(hundred), den)
}

// after reports whether a is more recent than b; nil is the most recent
func after(a, b *domain.TradeRecord) bool {
	switch {
	case a.CreatedAt == nil:
		return b.CreatedAt != nil
	case b.CreatedAt == nil:
		return false
	default:
		return a.CreatedAt.After(*b.CreatedAt)
	}
}

func lastTrade(trades []domain.TradeRecord) *domain.TradeRecord {
	if len(trades) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(trades); i++ {
		if after(&trades[i], &trades[best]) {
			best = i
		}
	}
	last := trades[best]
	return &last
}

// maxDrawdownPct walks the equity curve oldest first and returns the largest
// drop from a running peak, as a percentage of that peak.
func maxDrawdownPct(trades []domain.TradeRecord, startingCapital decimal.Decimal) decimal.Decimal {
	// Views are newest first; reversing keeps pending records in submit order.
	chrono := make([]domain.TradeRecord, len(trades))
	for i, t := range trades {
		chrono[len(trades)-1-i] = t
	}
	sort.SliceStable(chrono, func(i, j int) bool {
		return after(&chrono[j], &chrono[i])
	})

	peak := startingCapital
	equity := startingCapital
	worst := decimal.Zero
	for _, t := range chrono {
		equity = equity.Add(t.PnL)
		if equity.GreaterThan(peak) {
			peak = equity
			continue
		}
		if !peak.IsPositive() {
			continue
		}
		dd := percent(peak.Sub(equity), peak)
		if dd.GreaterThan(worst) {
			worst = dd
		}
	}
	return worst
}
