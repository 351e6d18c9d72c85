// Package fpu converts fat and protein into scheduled carbohydrate equivalents.
//
// One fat-protein unit (FPU) is 100 kcal coming from fat and protein. Each FPU counts
// as 10 g of carbohydrate, scaled by a personal adjustment factor, and is spread over
// an absorption duration that grows with the load.
package fpu

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrDegenerateEquivalentSize is returned when the per-event size rounds to zero
	ErrDegenerateEquivalentSize = errors.New("equivalent size rounds to zero, no schedulable unit")
	// ErrInvalidInterval is returned for intervals outside 1..60 minutes
	ErrInvalidInterval = errors.New("interval must be between 1 and 60 minutes")
)

var (
	kcalPerGramProtein = decimal.NewFromInt(4)
	kcalPerGramFat     = decimal.NewFromInt(9)
	kcalPerUnit        = decimal.NewFromInt(100)
	carbsPerUnit       = decimal.NewFromInt(10)

	tierThree = decimal.NewFromInt(3)
	tierFour  = decimal.NewFromInt(4)
	tierSix   = decimal.NewFromInt(6)
)

// sizePrecision is the number of decimal places of one equivalent
const sizePrecision = 1

// Energy is the caloric load of a meal's fat and protein
type Energy struct {
	Kilocalories    decimal.Decimal `json:"kilocalories"`
	Units           decimal.Decimal `json:"fpu"`
	EquivalentGrams decimal.Decimal `json:"equivalentGrams"`
}

// Convert turns fat and protein grams into FPUs and carbohydrate-equivalent grams
func Convert(fat, protein, adjustment decimal.Decimal) Energy {
	kcal := protein.Mul(kcalPerGramProtein).Add(fat.Mul(kcalPerGramFat))
	units := kcal.Div(kcalPerUnit)

	return Energy{
		Kilocalories:    kcal,
		Units:           units,
		EquivalentGrams: units.Mul(carbsPerUnit).Mul(adjustment),
	}
}

// SelectDuration maps FPUs to an absorption duration in hours.
// Tiers are [0,3) 3h, [3,4) 4h, [4,6) 6h and maxHours from 6 FPU on.
func SelectDuration(units decimal.Decimal, maxHours int) int {
	switch {
	case units.LessThan(tierThree):
		return 3
	case units.LessThan(tierFour):
		return 4
	case units.LessThan(tierSix):
		return 6
	default:
		return maxHours
	}
}

// SizeEquivalent returns the grams of one equivalent for the given duration and
// interval, rounded to one decimal half away from zero.
//
// The per-hour amount is divided by the whole number of intervals per hour, so an
// interval that does not divide 60 is scaled by 60/interval rounded down.
func SizeEquivalent(grams decimal.Decimal, hours, intervalMinutes int) (decimal.Decimal, error) {
	if intervalMinutes < 1 || intervalMinutes > 60 {
		return decimal.Zero, ErrInvalidInterval
	}
	if hours < 1 {
		return decimal.Zero, ErrDegenerateEquivalentSize
	}

	perHour := grams.Div(decimal.NewFromInt(int64(hours)))
	perInterval := perHour.Div(decimal.NewFromInt(int64(60 / intervalMinutes)))

	size := perInterval.Round(sizePrecision)
	if !size.IsPositive() {
		return decimal.Zero, ErrDegenerateEquivalentSize
	}
	return size, nil
}
