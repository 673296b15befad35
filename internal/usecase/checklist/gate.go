package checklist

import (
	"fmt"
	"strings"
	"sync"

	"github.com/simaogato/tradejournal-backend/internal/domain"
)

// Gate is the pre-trade checklist. Items start unchecked and only change
// through Toggle; Reset puts every item back to unchecked.
type Gate struct {
	mu    sync.Mutex
	items []domain.ChecklistItem
	index map[int]int
}

// NewGate creates a gate over a copy of items, all unchecked
func NewGate(items []domain.ChecklistItem) (*Gate, error) {
	if err := domain.ValidateChecklist(items); err != nil {
		return nil, err
	}

	g := &Gate{
		items: make([]domain.ChecklistItem, len(items)),
		index: make(map[int]int, len(items)),
	}
	copy(g.items, items)
	for i := range g.items {
		g.items[i].Status = false
		g.index[g.items[i].ID] = i
	}
	return g, nil
}

// Toggle flips the status of the item with the given id
func (g *Gate) Toggle(id int) (domain.ChecklistItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i, ok := g.index[id]
	if !ok {
		return domain.ChecklistItem{}, fmt.Errorf("%w: checklist item %d does not exist", domain.ErrInvalidOperation, id)
	}
	g.items[i].Status = !g.items[i].Status
	return g.items[i], nil
}

// Items returns the checklist in its configured order
func (g *Gate) Items() []domain.ChecklistItem {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.ChecklistItem, len(g.items))
	copy(out, g.items)
	return out
}

// Size is the number of items, the maximum score
func (g *Gate) Size() int {
	return len(g.items)
}

// Score counts the checked items
func (g *Gate) Score() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scoreLocked()
}

// Complete reports whether every item is checked
func (g *Gate) Complete() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scoreLocked() == len(g.items)
}

// CanSubmit reports whether a trade may be submitted: every item checked
// and a non-blank pnl input
func (g *Gate) CanSubmit(pnlInput string) bool {
	return g.Complete() && strings.TrimSpace(pnlInput) != ""
}

// Reset unchecks every item
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.items {
		g.items[i].Status = false
	}
}

func (g *Gate) scoreLocked() int {
	score := 0
	for _, item := range g.items {
		if item.Status {
			score++
		}
	}
	return score
}
