package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/tradejournal-backend/internal/domain"
)

var base = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func trade(id string, pnl float64, minute int) domain.TradeRecord {
	at := base.Add(time.Duration(minute) * time.Minute)
	return domain.TradeRecord{
		ID:        id,
		PnL:       decimal.NewFromFloat(pnl),
		Direction: domain.DirectionBuy,
		CreatedAt: &at,
		Sync:      domain.SyncConfirmed,
	}
}

func pending(key string, pnl float64) domain.TradeRecord {
	return domain.TradeRecord{
		LocalKey:  key,
		PnL:       decimal.NewFromFloat(pnl),
		Direction: domain.DirectionSell,
		Sync:      domain.SyncPending,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute_WinAndLossScenario(t *testing.T) {
	trades := []domain.TradeRecord{trade("a", 150, 1), trade("b", -50, 0)}

	s := Compute(trades, decimal.NewFromInt(50000))

	assert.Equal(t, 2, s.TotalTrades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.True(t, s.NetProfit.Equal(dec("100")), "net profit %s", s.NetProfit)
	assert.True(t, s.WinRate.Equal(dec("50")), "win rate %s", s.WinRate)
	assert.True(t, s.Balance.Equal(dec("50100")), "balance %s", s.Balance)
	assert.False(t, s.ProfitFactor.Infinite)
	assert.True(t, s.ProfitFactor.Value.Equal(dec("3")), "profit factor %s", s.ProfitFactor.Value)
	assert.Equal(t, "3.00", s.ProfitFactor.String())
	assert.True(t, s.GrossProfit.Equal(dec("150")))
	assert.True(t, s.GrossLoss.Equal(dec("50")))
}

func TestCompute_OnlyLosses(t *testing.T) {
	trades := []domain.TradeRecord{trade("a", -50, 1), trade("b", -30, 0)}

	s := Compute(trades, decimal.NewFromInt(50000))

	assert.True(t, s.GrossProfit.IsZero())
	assert.True(t, s.GrossLoss.Equal(dec("80")))
	assert.False(t, s.ProfitFactor.Infinite)
	assert.True(t, s.ProfitFactor.Value.IsZero())
	assert.True(t, s.WinRate.IsZero())
	assert.True(t, s.Balance.Equal(dec("49920")))
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil, decimal.NewFromInt(50000))

	assert.Equal(t, 0, s.TotalTrades)
	assert.True(t, s.WinRate.IsZero())
	assert.False(t, s.ProfitFactor.Infinite)
	assert.True(t, s.ProfitFactor.Value.IsZero())
	assert.True(t, s.Balance.Equal(dec("50000")))
	assert.True(t, s.AverageWin.IsZero())
	assert.True(t, s.AverageChecklistScore.IsZero())
	assert.True(t, s.MaxDrawdownPct.IsZero())
	assert.Nil(t, s.LastTrade)
}

func TestCompute_ProfitFactorInfinite(t *testing.T) {
	tests := []struct {
		name     string
		pnls     []float64
		infinite bool
	}{
		{name: "Only Wins", pnls: []float64{10, 20}, infinite: true},
		{name: "Wins And Breakeven", pnls: []float64{10, 0}, infinite: true},
		{name: "Only Breakeven", pnls: []float64{0, 0}, infinite: false},
		{name: "Wins And Losses", pnls: []float64{10, -5}, infinite: false},
		{name: "Only Losses", pnls: []float64{-10}, infinite: false},
		{name: "No Trades", pnls: nil, infinite: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trades []domain.TradeRecord
			for i, p := range tt.pnls {
				trades = append(trades, trade(string(rune('a'+i)), p, i))
			}

			s := Compute(trades, decimal.NewFromInt(1000))

			expected := s.GrossLoss.IsZero() && s.GrossProfit.IsPositive()
			assert.Equal(t, expected, s.ProfitFactor.Infinite)
			assert.Equal(t, tt.infinite, s.ProfitFactor.Infinite)
			if s.ProfitFactor.Infinite {
				assert.Equal(t, "inf", s.ProfitFactor.String())
			}
		})
	}
}

func TestCompute_Invariants(t *testing.T) {
	sets := [][]float64{
		{1},
		{-1},
		{0},
		{0, 0, 5},
		{12.5, -3.25, 0, 7, -7},
		{100, 200, 300, -1000},
	}
	capitals := []int64{0, 1000, 50000}

	for _, pnls := range sets {
		for _, c := range capitals {
			var trades []domain.TradeRecord
			for i, p := range pnls {
				trades = append(trades, trade(string(rune('a'+i)), p, i))
			}
			capital := decimal.NewFromInt(c)

			s := Compute(trades, capital)

			assert.True(t, s.WinRate.GreaterThanOrEqual(decimal.Zero) && s.WinRate.LessThanOrEqual(hundred), "win rate %s", s.WinRate)
			assert.LessOrEqual(t, s.Wins+s.Losses, s.TotalTrades)
			assert.True(t, s.Balance.Equal(capital.Add(s.NetProfit)))
			assert.True(t, s.NetProfit.Equal(s.GrossProfit.Sub(s.GrossLoss)))
		}
	}
}

func TestCompute_BreakevenCountsTowardNeither(t *testing.T) {
	trades := []domain.TradeRecord{trade("a", 0, 0), trade("b", 20, 1), trade("c", 0, 2)}

	s := Compute(trades, decimal.NewFromInt(1000))

	assert.Equal(t, 3, s.TotalTrades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 0, s.Losses)
	assert.True(t, s.WinRate.Round(2).Equal(dec("33.33")), "win rate %s", s.WinRate)
}

func TestCompute_Averages(t *testing.T) {
	trades := []domain.TradeRecord{
		trade("a", 100, 0),
		trade("b", 300, 1),
		trade("c", -40, 2),
		trade("d", -80, 3),
	}
	trades[0].ChecklistScore = 6
	trades[1].ChecklistScore = 4
	trades[2].ChecklistScore = 5
	trades[3].ChecklistScore = 5

	s := Compute(trades, decimal.NewFromInt(10000))

	assert.True(t, s.AverageWin.Equal(dec("200")))
	assert.True(t, s.AverageLoss.Equal(dec("60")))
	assert.True(t, s.LargestWin.Equal(dec("300")))
	assert.True(t, s.LargestLoss.Equal(dec("80")))
	assert.True(t, s.AverageChecklistScore.Equal(dec("5")))
	assert.True(t, s.ReturnPct.Equal(dec("2.8")), "return %s", s.ReturnPct)
}

func TestCompute_ReturnWithoutCapital(t *testing.T) {
	s := Compute([]domain.TradeRecord{trade("a", 10, 0)}, decimal.Zero)
	assert.True(t, s.ReturnPct.IsZero())
}

func TestCompute_MaxDrawdown(t *testing.T) {
	// newest first, as the store delivers them
	trades := []domain.TradeRecord{
		trade("c", 50, 2),
		trade("b", -220, 1),
		trade("a", 100, 0),
	}

	s := Compute(trades, decimal.NewFromInt(1000))

	assert.True(t, s.MaxDrawdownPct.Equal(dec("20")), "drawdown %s", s.MaxDrawdownPct)
}

func TestCompute_LastTrade(t *testing.T) {
	t.Run("Most Recent Timestamp", func(t *testing.T) {
		trades := []domain.TradeRecord{trade("old", 1, 0), trade("new", 2, 5), trade("mid", 3, 2)}

		s := Compute(trades, decimal.Zero)

		require.NotNil(t, s.LastTrade)
		assert.Equal(t, "new", s.LastTrade.ID)
	})

	t.Run("Tie Goes To First Position", func(t *testing.T) {
		trades := []domain.TradeRecord{trade("first", 1, 3), trade("second", 2, 3)}

		s := Compute(trades, decimal.Zero)

		require.NotNil(t, s.LastTrade)
		assert.Equal(t, "first", s.LastTrade.ID)
	})

	t.Run("Pending Is Most Recent", func(t *testing.T) {
		trades := []domain.TradeRecord{trade("confirmed", 1, 9), pending("local", 2)}

		s := Compute(trades, decimal.Zero)

		require.NotNil(t, s.LastTrade)
		assert.Equal(t, "local", s.LastTrade.LocalKey)
	})

	t.Run("Returns A Copy", func(t *testing.T) {
		trades := []domain.TradeRecord{trade("a", 1, 0)}

		s := Compute(trades, decimal.Zero)
		s.LastTrade.Emotions = "changed"

		assert.Empty(t, trades[0].Emotions)
	})
}
