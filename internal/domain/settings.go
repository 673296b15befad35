package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultStartingCapital is used until the user sets their own
const DefaultStartingCapital = 50000

// AccountSettings holds the per-user account configuration
type AccountSettings struct {
	StartingCapital decimal.Decimal
}

// DefaultAccountSettings returns settings with the given starting capital
func DefaultAccountSettings(capital decimal.Decimal) AccountSettings {
	return AccountSettings{StartingCapital: capital}
}

// Fields returns the merge payload for the settings document
func (s AccountSettings) Fields() Fields {
	return Fields{
		"startingCapital": s.StartingCapital.InexactFloat64(),
	}
}

// SettingsFromDocument decodes the settings document, keeping fallback
// values for fields the document does not carry.
func SettingsFromDocument(doc Document, fallback AccountSettings) (AccountSettings, error) {
	out := fallback
	raw, present := doc.Fields["startingCapital"]
	if !present {
		return out, nil
	}
	capital, ok := asFloat(raw)
	if !ok {
		return fallback, fmt.Errorf("settings %s: startingCapital is not a number", doc.Path)
	}
	out.StartingCapital = decimal.NewFromFloat(capital)
	return out, nil
}
