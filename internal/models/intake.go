// Package models contains data structures used throughout the application
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source describes where an intake record came from
type Source string

// Known record sources
const (
	SourceManual    Source = "manual"
	SourceSynthetic Source = "synthetic"
)

// IntakeRecord is one carbohydrate event on the timeline, entered directly or
// derived from fat and protein.
type IntakeRecord struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Grams        decimal.Decimal `json:"grams"`
	Source       Source          `json:"source"`
	IsEquivalent bool            `json:"isEquivalent"`
	GroupID      *string         `json:"groupId,omitempty"`
}

// NewCarbRecord creates a direct carbohydrate entry
func NewCarbRecord(at time.Time, grams decimal.Decimal) IntakeRecord {
	return IntakeRecord{
		ID:        uuid.NewString(),
		Timestamp: at,
		Grams:     grams,
		Source:    SourceManual,
	}
}

// NewEquivalentRecord creates one synthetic carb equivalent belonging to groupID
func NewEquivalentRecord(at time.Time, grams decimal.Decimal, groupID string) IntakeRecord {
	group := groupID
	return IntakeRecord{
		ID:           uuid.NewString(),
		Timestamp:    at,
		Grams:        grams,
		Source:       SourceSynthetic,
		IsEquivalent: true,
		GroupID:      &group,
	}
}

// Group returns the group id or an empty string for direct entries
func (r *IntakeRecord) Group() string {
	if r.GroupID == nil {
		return ""
	}
	return *r.GroupID
}

// TotalGrams sums the grams of all records
func TotalGrams(records []IntakeRecord) decimal.Decimal {
	total := decimal.Zero
	for i := range records {
		total = total.Add(records[i].Grams)
	}
	return total
}

// ConfirmationRequest asks the user to confirm a bolus for freshly stored carbs
type ConfirmationRequest struct {
	Carbs       decimal.Decimal `json:"carbs"`
	Equivalents []IntakeRecord  `json:"equivalents"`
	EnteredAt   time.Time       `json:"enteredAt"`
}

// EquivalentGrams returns the scheduled equivalent total
func (c *ConfirmationRequest) EquivalentGrams() decimal.Decimal {
	return TotalGrams(c.Equivalents)
}
