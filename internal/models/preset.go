package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MealPreset is a saved dish with its macros
type MealPreset struct {
	ID      string          `json:"id"`
	Dish    string          `json:"dish"`
	Carbs   decimal.Decimal `json:"carbs"`
	Fat     decimal.Decimal `json:"fat"`
	Protein decimal.Decimal `json:"protein"`
}

// IsEmpty returns true if the preset has no name or no macros
func (p *MealPreset) IsEmpty() bool {
	if strings.TrimSpace(p.Dish) == "" {
		return true
	}
	return p.Carbs.IsZero() && p.Fat.IsZero() && p.Protein.IsZero()
}
