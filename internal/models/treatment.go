// Package models contains data structures used throughout the application
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EnteredBy is the enteredBy value used for uploaded treatments
const EnteredBy = "nightscout-fpu"

// Treatment represents a treatment entry in Nightscout
type Treatment struct {
	ID         string  `json:"_id,omitempty"`
	Identifier string  `json:"identifier,omitempty"`
	EventType  string  `json:"eventType"`
	CreatedAt  string  `json:"created_at"`
	Carbs      float64 `json:"carbs"`
	Protein    float64 `json:"protein,omitempty"`
	Fat        float64 `json:"fat,omitempty"`
	EnteredBy  string  `json:"enteredBy"`
	Notes      string  `json:"notes,omitempty"`

	// Carb equivalents
	IsFPU bool   `json:"isFPU"`
	FPUID string `json:"fpuID,omitempty"`
}

// Time returns the time of the treatment
func (t *Treatment) Time() time.Time {
	parsed, err := time.Parse(time.RFC3339, t.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// HasCarbs returns true if this treatment includes carbohydrates
func (t *Treatment) HasCarbs() bool {
	return t.Carbs > 0
}

// TreatmentFromRecord maps an intake record onto a Nightscout carb correction
func TreatmentFromRecord(r IntakeRecord) Treatment {
	return Treatment{
		Identifier: r.ID,
		EventType:  TreatmentEventTypes.CarbCorrection,
		CreatedAt:  r.Timestamp.UTC().Format(time.RFC3339),
		Carbs:      r.Grams.InexactFloat64(),
		EnteredBy:  EnteredBy,
		IsFPU:      r.IsEquivalent,
		FPUID:      r.Group(),
	}
}

// Record converts a Nightscout treatment back into an intake record
func (t *Treatment) Record() IntakeRecord {
	id := t.Identifier
	if id == "" {
		id = t.ID
	}

	r := IntakeRecord{
		ID:           id,
		Timestamp:    t.Time(),
		Grams:        decimal.NewFromFloat(t.Carbs),
		Source:       SourceManual,
		IsEquivalent: t.IsFPU,
	}
	if t.IsFPU {
		r.Source = SourceSynthetic
		group := t.FPUID
		r.GroupID = &group
	}
	return r
}

// TreatmentEventTypes contains the Nightscout event types used here
var TreatmentEventTypes = struct {
	CarbCorrection string
	MealBolus      string
	Note           string
}{
	CarbCorrection: "Carb Correction",
	MealBolus:      "Meal Bolus",
	Note:           "Note",
}
