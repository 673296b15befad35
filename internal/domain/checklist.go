package domain

import (
	"errors"
	"fmt"
)

// Category groups checklist items
type Category string

const (
	CategoryContext Category = "CONTEXT"
	CategorySignal  Category = "SIGNAL"
	CategoryRisk    Category = "RISK"
)

// ChecklistItem is one pre-trade check.
// Status only changes through the gate's Toggle.
type ChecklistItem struct {
	ID       int
	Text     string
	Category Category
	Status   bool
}

// DefaultChecklist returns the compiled-in checklist, all unchecked
func DefaultChecklist() []ChecklistItem {
	return []ChecklistItem{
		{ID: 1, Text: "Higher timeframe trend identified", Category: CategoryContext},
		{ID: 2, Text: "No high-impact news in the next 30 minutes", Category: CategoryContext},
		{ID: 3, Text: "Price at a marked key level", Category: CategorySignal},
		{ID: 4, Text: "Entry trigger confirmed on close", Category: CategorySignal},
		{ID: 5, Text: "Stop loss defined before entry", Category: CategoryRisk},
		{ID: 6, Text: "Risk within the daily loss limit", Category: CategoryRisk},
	}
}

// ValidateChecklist ensures a checklist definition is usable
func ValidateChecklist(items []ChecklistItem) error {
	if len(items) == 0 {
		return errors.New("checklist must have at least one item")
	}

	seen := make(map[int]bool, len(items))
	for _, item := range items {
		if seen[item.ID] {
			return fmt.Errorf("checklist item id %d is duplicated", item.ID)
		}
		seen[item.ID] = true

		if item.Text == "" {
			return fmt.Errorf("checklist item %d has no text", item.ID)
		}

		switch item.Category {
		case CategoryContext, CategorySignal, CategoryRisk:
		default:
			return fmt.Errorf("checklist item %d: category must be CONTEXT, SIGNAL or RISK", item.ID)
		}
	}

	return nil
}
