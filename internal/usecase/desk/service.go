package desk

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/logger"
	"github.com/simaogato/tradejournal-backend/internal/usecase/checklist"
)

// TradeSubmitter is the part of the trade store the desk writes through
type TradeSubmitter interface {
	Submit(ctx context.Context, draft domain.TradeDraft) (*domain.PendingWrite, error)
}

// Draft is the current content of the trade form
type Draft struct {
	PnL        string
	Direction  domain.Direction
	Emotions   string
	Screenshot *domain.Screenshot
}

// State is a consistent copy of the desk
type State struct {
	Draft      Draft
	Items      []domain.ChecklistItem
	Score      int
	CanSubmit  bool
	Submitting bool
}

// Service holds the trade form and the checklist gate in front of it.
// After a successful submission both are reset together; after a failed
// one neither is. Both are frozen while a submission is in flight.
type Service struct {
	trades TradeSubmitter
	gate   *checklist.Gate

	mu         sync.Mutex
	draft      Draft
	submitting bool
}

// NewService creates a desk with an empty draft
func NewService(trades TradeSubmitter, gate *checklist.Gate) *Service {
	return &Service{
		trades: trades,
		gate:   gate,
		draft:  emptyDraft(),
	}
}

func emptyDraft() Draft {
	return Draft{Direction: domain.DirectionBuy}
}

// State returns the draft and checklist as one copy
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Draft:      s.draft,
		Items:      s.gate.Items(),
		Score:      s.gate.Score(),
		CanSubmit:  !s.submitting && s.gate.CanSubmit(s.draft.PnL),
		Submitting: s.submitting,
	}
}

// SetPnL sets the pnl input. Blank input clears it; anything else must be a number.
func (s *Service) SetPnL(input string) error {
	input = strings.TrimSpace(input)
	if input != "" {
		if _, err := decimal.NewFromString(input); err != nil {
			return fmt.Errorf("%w: pnl %q is not a number", domain.ErrInvalidTrade, input)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.draft.PnL = input
	return nil
}

// SetDirection sets the side of the trade
func (s *Service) SetDirection(d domain.Direction) error {
	if !d.Valid() {
		return fmt.Errorf("%w: direction must be BUY or SELL", domain.ErrInvalidTrade)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.draft.Direction = d
	return nil
}

// SetEmotions sets the free-text note
func (s *Service) SetEmotions(note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.draft.Emotions = note
	return nil
}

// AttachScreenshot replaces the draft's screenshot. Rejected input leaves
// the draft as it was.
func (s *Service) AttachScreenshot(raw []byte) error {
	shot, err := domain.NewScreenshot(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.draft.Screenshot = shot
	return nil
}

// ClearScreenshot removes the draft's screenshot
func (s *Service) ClearScreenshot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.draft.Screenshot = nil
	return nil
}

// Toggle flips one checklist item
func (s *Service) Toggle(id int) (domain.ChecklistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return domain.ChecklistItem{}, err
	}
	return s.gate.Toggle(id)
}

// CanSubmit reports whether Submit would be accepted
func (s *Service) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.submitting && s.gate.CanSubmit(s.draft.PnL)
}

// Submit sends the draft to the trade store and waits for the remote create.
// Logic:
//  1. Reject when the checklist is incomplete, the pnl is blank or a
//     submission is already in flight
//  2. Hand the draft to the store; the trade is visible locally from here
//  3. On success reset the checklist and the draft together
//  4. On failure keep both so the user can try again
//
// If ctx ends first Submit returns ctx's error; the write goes on and the
// reset still happens if it succeeds.
func (s *Service) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return fmt.Errorf("%w: a submission is already in flight", domain.ErrInvalidOperation)
	}
	if !s.gate.CanSubmit(s.draft.PnL) {
		s.mu.Unlock()
		return fmt.Errorf("%w: checklist incomplete or pnl missing", domain.ErrInvalidOperation)
	}
	draft, err := s.tradeDraftLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.submitting = true
	s.mu.Unlock()

	write, err := s.trades.Submit(ctx, draft)
	if err != nil {
		s.finish(err)
		return err
	}

	select {
	case <-write.Done():
		s.finish(write.Err())
		return write.Err()
	case <-ctx.Done():
		go func() {
			<-write.Done()
			s.finish(write.Err())
		}()
		return ctx.Err()
	}
}

func (s *Service) editableLocked() error {
	if s.submitting {
		return fmt.Errorf("%w: the draft is being submitted", domain.ErrInvalidOperation)
	}
	return nil
}

func (s *Service) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submitting = false
	if err != nil {
		logger.Error("Trade submission failed, keeping draft: %v", err)
		return
	}
	s.gate.Reset()
	s.draft = emptyDraft()
}

func (s *Service) tradeDraftLocked() (domain.TradeDraft, error) {
	pnl, err := decimal.NewFromString(s.draft.PnL)
	if err != nil {
		return domain.TradeDraft{}, fmt.Errorf("%w: pnl %q is not a number", domain.ErrInvalidTrade, s.draft.PnL)
	}
	return domain.TradeDraft{
		PnL:            &pnl,
		Direction:      s.draft.Direction,
		Emotions:       s.draft.Emotions,
		Screenshot:     s.draft.Screenshot,
		ChecklistScore: s.gate.Score(),
	}, nil
}
