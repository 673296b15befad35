package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction represents the side of a trade
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Valid reports whether d is BUY or SELL
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// ParseDirection parses "BUY" or "SELL"
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: direction must be BUY or SELL, got %q", ErrInvalidTrade, s)
	}
	return d, nil
}

// SyncState tells whether a locally visible record is backed by the remote store
type SyncState string

const (
	SyncConfirmed SyncState = "CONFIRMED"
	SyncPending   SyncState = "PENDING"
	SyncFailed    SyncState = "FAILED"
)

// TradeRecord is one recorded trade outcome.
// ID and CreatedAt are empty while the record is an optimistic local insert;
// LocalKey identifies such a record until the subscription supersedes it.
type TradeRecord struct {
	ID             string
	LocalKey       string
	PnL            decimal.Decimal
	Direction      Direction
	Emotions       string
	Screenshot     string // data URL, empty when absent
	ChecklistScore int
	CreatedAt      *time.Time
	Sync           SyncState
}

// Confirmed reports whether the record has a remote identity
func (t TradeRecord) Confirmed() bool {
	return t.ID != ""
}

// TradeDraft is the input for a new trade.
// PnL is required; there is no implicit zero.
type TradeDraft struct {
	PnL            *decimal.Decimal
	Direction      Direction
	Emotions       string
	Screenshot     *Screenshot
	ChecklistScore int
}

// Validate ensures the draft can become a trade record.
// maxScore is the size of the checklist the score was taken from.
func (d *TradeDraft) Validate(maxScore int) error {
	if d.PnL == nil {
		return fmt.Errorf("%w: pnl is required", ErrInvalidTrade)
	}
	if !d.Direction.Valid() {
		return fmt.Errorf("%w: direction must be BUY or SELL", ErrInvalidTrade)
	}
	if d.ChecklistScore < 0 || d.ChecklistScore > maxScore {
		return fmt.Errorf("%w: checklist score %d outside 0..%d", ErrInvalidTrade, d.ChecklistScore, maxScore)
	}
	if d.Screenshot != nil && len(d.Screenshot.Data) > MaxScreenshotBytes {
		return fmt.Errorf("%w: screenshot is %d bytes", ErrPayloadTooLarge, len(d.Screenshot.Data))
	}
	return nil
}

// Record builds the optimistic local record for the draft
func (d *TradeDraft) Record(localKey string) TradeRecord {
	rec := TradeRecord{
		LocalKey:       localKey,
		PnL:            *d.PnL,
		Direction:      d.Direction,
		Emotions:       d.Emotions,
		ChecklistScore: d.ChecklistScore,
		Sync:           SyncPending,
	}
	if d.Screenshot != nil {
		rec.Screenshot = d.Screenshot.DataURL()
	}
	return rec
}

// Fields returns the remote document for the draft.
// createdAt is left to the server clock.
func (d *TradeDraft) Fields() Fields {
	var screenshot any
	if d.Screenshot != nil {
		screenshot = d.Screenshot.DataURL()
	}
	return Fields{
		"pnl":            d.PnL.InexactFloat64(),
		"direction":      string(d.Direction),
		"emotions":       d.Emotions,
		"screenshot":     screenshot,
		"checklistScore": int64(d.ChecklistScore),
		"createdAt":      ServerTimestamp,
	}
}

// TradeFromDocument decodes a remote trade document
func TradeFromDocument(doc Document) (TradeRecord, error) {
	if doc.ID == "" {
		return TradeRecord{}, errors.New("trade document has no id")
	}

	pnl, ok := asFloat(doc.Fields["pnl"])
	if !ok {
		return TradeRecord{}, fmt.Errorf("trade %s: pnl missing or not a number", doc.ID)
	}

	rec := TradeRecord{
		ID:   doc.ID,
		PnL:  decimal.NewFromFloat(pnl),
		Sync: SyncConfirmed,
	}

	if s, ok := doc.Fields["direction"].(string); ok {
		rec.Direction = Direction(s)
	}
	if s, ok := doc.Fields["emotions"].(string); ok {
		rec.Emotions = s
	}
	if s, ok := doc.Fields["screenshot"].(string); ok {
		rec.Screenshot = s
	}
	if n, ok := asFloat(doc.Fields["checklistScore"]); ok {
		rec.ChecklistScore = int(n)
	}
	if t, ok := doc.Fields["createdAt"].(time.Time); ok {
		rec.CreatedAt = &t
	}

	return rec, nil
}
