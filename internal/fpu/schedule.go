package fpu

import (
	"time"

	"github.com/google/uuid"
	"github.com/mrcode/nightscout-fpu/internal/models"
	"github.com/shopspring/decimal"
)

// ScheduleInput describes one run of equal equivalents
type ScheduleInput struct {
	TotalGrams      decimal.Decimal
	EquivalentSize  decimal.Decimal
	IntervalMinutes int
	DelayMinutes    int
	Start           time.Time
	GroupID         string
}

// Count returns how many whole equivalents fit into the total
func (in ScheduleInput) Count() int64 {
	if !in.EquivalentSize.IsPositive() || !in.TotalGrams.IsPositive() {
		return 0
	}
	q, _ := in.TotalGrams.QuoRem(in.EquivalentSize, 0)
	return q.IntPart()
}

// BuildSchedule lays out floor(total/size) equivalents. The delay applies once
// before the first event, later events follow every interval.
func BuildSchedule(in ScheduleInput) []models.IntakeRecord {
	count := in.Count()
	if count == 0 {
		return nil
	}

	first := in.Start.Add(time.Duration(in.DelayMinutes) * time.Minute)
	step := time.Duration(in.IntervalMinutes) * time.Minute

	records := make([]models.IntakeRecord, 0, count)
	for i := int64(0); i < count; i++ {
		at := first.Add(time.Duration(i) * step)
		records = append(records, models.NewEquivalentRecord(at, in.EquivalentSize, in.GroupID))
	}
	return records
}

// Plan is the full conversion result for one meal
type Plan struct {
	Energy          Energy                `json:"energy"`
	DurationHours   int                   `json:"durationHours"`
	EquivalentSize  decimal.Decimal       `json:"equivalentSize"`
	GroupID         string                `json:"groupId"`
	Records         []models.IntakeRecord `json:"records"`
	ScheduledGrams  decimal.Decimal       `json:"scheduledGrams"`
	DroppedGrams    decimal.Decimal       `json:"droppedGrams"`
	IntervalMinutes int                   `json:"intervalMinutes"`
}

// Empty returns true if nothing was scheduled
func (p *Plan) Empty() bool {
	return len(p.Records) == 0
}

// NewPlan runs the conversion pipeline for fat and protein starting at start.
// Every call gets its own group id.
func NewPlan(fat, protein decimal.Decimal, cfg models.FPUConfig, start time.Time) (*Plan, error) {
	energy := Convert(fat, protein, cfg.AdjustmentFactor)
	hours := SelectDuration(energy.Units, cfg.MaxDurationHours)

	size, err := SizeEquivalent(energy.EquivalentGrams, hours, cfg.IntervalMinutes)
	if err != nil {
		return nil, err
	}

	groupID := uuid.NewString()
	records := BuildSchedule(ScheduleInput{
		TotalGrams:      energy.EquivalentGrams,
		EquivalentSize:  size,
		IntervalMinutes: cfg.IntervalMinutes,
		DelayMinutes:    cfg.DelayMinutes,
		Start:           start,
		GroupID:         groupID,
	})

	scheduled := models.TotalGrams(records)
	return &Plan{
		Energy:          energy,
		DurationHours:   hours,
		EquivalentSize:  size,
		GroupID:         groupID,
		Records:         records,
		ScheduledGrams:  scheduled,
		DroppedGrams:    energy.EquivalentGrams.Sub(scheduled),
		IntervalMinutes: cfg.IntervalMinutes,
	}, nil
}
