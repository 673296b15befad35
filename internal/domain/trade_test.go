package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pnl(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestTradeDraft_Validate(t *testing.T) {
	tests := []struct {
		name    string
		draft   TradeDraft
		wantErr error
		errMsg  string
	}{
		{
			name:  "Complete draft should pass",
			draft: TradeDraft{PnL: pnl(150), Direction: DirectionBuy, ChecklistScore: 6},
		},
		{
			name:  "Zero pnl is a valid explicit value",
			draft: TradeDraft{PnL: pnl(0), Direction: DirectionSell},
		},
		{
			name:    "Missing pnl should fail",
			draft:   TradeDraft{Direction: DirectionBuy},
			wantErr: ErrInvalidTrade,
			errMsg:  "pnl is required",
		},
		{
			name:    "Unknown direction should fail",
			draft:   TradeDraft{PnL: pnl(10), Direction: "LONG"},
			wantErr: ErrInvalidTrade,
			errMsg:  "direction must be BUY or SELL",
		},
		{
			name:    "Score above checklist size should fail",
			draft:   TradeDraft{PnL: pnl(10), Direction: DirectionBuy, ChecklistScore: 7},
			wantErr: ErrInvalidTrade,
			errMsg:  "outside 0..6",
		},
		{
			name: "Oversized screenshot should fail",
			draft: TradeDraft{
				PnL:        pnl(10),
				Direction:  DirectionBuy,
				Screenshot: &Screenshot{MIMEType: "image/png", Data: make([]byte, MaxScreenshotBytes+1)},
			},
			wantErr: ErrPayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate(6)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestTradeDraft_RecordIsOptimistic(t *testing.T) {
	draft := TradeDraft{PnL: pnl(-50), Direction: DirectionSell, Emotions: "Anxious", ChecklistScore: 4}

	rec := draft.Record("local-1")

	assert.Empty(t, rec.ID)
	assert.Nil(t, rec.CreatedAt)
	assert.False(t, rec.Confirmed())
	assert.Equal(t, "local-1", rec.LocalKey)
	assert.Equal(t, SyncPending, rec.Sync)
	assert.True(t, decimal.NewFromInt(-50).Equal(rec.PnL))
}

func TestTradeDraft_FieldsUseServerTimestamp(t *testing.T) {
	draft := TradeDraft{PnL: pnl(150), Direction: DirectionBuy, Emotions: "Confident", ChecklistScore: 6}

	fields := draft.Fields()

	assert.Equal(t, 150.0, fields["pnl"])
	assert.Equal(t, "BUY", fields["direction"])
	assert.Equal(t, "Confident", fields["emotions"])
	assert.Nil(t, fields["screenshot"])
	assert.Equal(t, int64(6), fields["checklistScore"])
	assert.Equal(t, ServerTimestamp, fields["createdAt"])
}

func TestTradeFromDocument(t *testing.T) {
	created := time.Date(2024, 1, 22, 9, 30, 0, 0, time.UTC)

	rec, err := TradeFromDocument(Document{
		ID:   "abc",
		Path: "users/u1/trades/abc",
		Fields: Fields{
			"pnl":            150.0,
			"direction":      "BUY",
			"emotions":       "Confident",
			"screenshot":     nil,
			"checklistScore": 5.0,
			"createdAt":      created,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "abc", rec.ID)
	assert.True(t, rec.Confirmed())
	assert.Equal(t, SyncConfirmed, rec.Sync)
	assert.True(t, decimal.NewFromInt(150).Equal(rec.PnL))
	assert.Equal(t, DirectionBuy, rec.Direction)
	assert.Equal(t, 5, rec.ChecklistScore)
	assert.Empty(t, rec.Screenshot)
	require.NotNil(t, rec.CreatedAt)
	assert.True(t, created.Equal(*rec.CreatedAt))
}

func TestTradeFromDocument_MissingPnL(t *testing.T) {
	_, err := TradeFromDocument(Document{ID: "abc", Fields: Fields{"direction": "BUY"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pnl missing")
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("SELL")
	assert.NoError(t, err)
	assert.Equal(t, DirectionSell, d)

	_, err = ParseDirection("sell")
	assert.ErrorIs(t, err, ErrInvalidTrade)
}
