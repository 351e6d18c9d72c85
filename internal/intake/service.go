// Package intake records meals: real carbs go in directly, fat and protein are
// converted into a schedule of carb equivalents, and the dosing engine is told.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrcode/nightscout-fpu/internal/fpu"
	"github.com/mrcode/nightscout-fpu/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeQuantity is returned when a macro is below zero
	ErrNegativeQuantity = errors.New("quantities must not be negative")
	// ErrStorageFailure wraps errors from the storage port
	ErrStorageFailure = errors.New("storage failure")
	// ErrDosingTriggerFailure wraps errors from the dosing port
	ErrDosingTriggerFailure = errors.New("dosing trigger failure")
)

// Outcome tells the caller what happened after an intake call
type Outcome int

// Possible outcomes
const (
	NothingToRecord Outcome = iota
	AutoDosed
	AwaitingConfirmation
)

func (o Outcome) String() string {
	switch o {
	case NothingToRecord:
		return "nothing_to_record"
	case AutoDosed:
		return "auto_dosed"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Request is one meal entry
type Request struct {
	Carbs   decimal.Decimal `json:"carbs"`
	Fat     decimal.Decimal `json:"fat"`
	Protein decimal.Decimal `json:"protein"`
	At      time.Time       `json:"time"`
}

// RequestFromPreset builds a request from a saved dish
func RequestFromPreset(p models.MealPreset, at time.Time) Request {
	return Request{Carbs: p.Carbs, Fat: p.Fat, Protein: p.Protein, At: at}
}

// IsEmpty returns true if no macro is set
func (r *Request) IsEmpty() bool {
	return r.Carbs.IsZero() && r.Fat.IsZero() && r.Protein.IsZero()
}

func (r *Request) validate() error {
	if r.Carbs.IsNegative() || r.Fat.IsNegative() || r.Protein.IsNegative() {
		return ErrNegativeQuantity
	}
	return nil
}

// Result is what an intake call stored and dispatched
type Result struct {
	Outcome Outcome              `json:"outcome"`
	Carbs   *models.IntakeRecord `json:"carbs,omitempty"`
	Plan    *fpu.Plan            `json:"plan,omitempty"`
}

// Equivalents returns the scheduled carb equivalents, if any
func (r *Result) Equivalents() []models.IntakeRecord {
	if r.Plan == nil {
		return nil
	}
	return r.Plan.Records
}

// Service is the entry point for recording a meal.
// Calls are not synchronized; callers add one intake at a time.
type Service struct {
	config  ConfigurationPort
	storage StoragePort
	dosing  DosingPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new intake service
func NewService(config ConfigurationPort, storage StoragePort, dosing DosingPort) *Service {
	return &Service{
		config:  config,
		storage: storage,
		dosing:  dosing,
		logger:  slog.Default(),
		now:     time.Now,
	}
}

// WithLogger sets the logger
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// Preview plans the equivalents for fat and protein without storing anything
func (s *Service) Preview(fat, protein decimal.Decimal, at time.Time) (*fpu.Plan, error) {
	if fat.IsNegative() || protein.IsNegative() {
		return nil, ErrNegativeQuantity
	}
	if at.IsZero() {
		at = s.now()
	}
	return fpu.NewPlan(fat, protein, s.config.FPU(), at)
}

// Add records a meal and dispatches exactly one dosing action.
// An all-zero request is a no-op that touches neither storage nor dosing.
func (s *Service) Add(ctx context.Context, req Request) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, err
	}
	if req.IsEmpty() {
		s.logger.Debug("nothing to record")
		return Result{Outcome: NothingToRecord}, nil
	}

	at := req.At
	if at.IsZero() {
		at = s.now()
	}
	cfg := s.config.FPU()

	var result Result

	// Plan before writing so a degenerate schedule leaves storage untouched
	if cfg.UseEquivalentConversion && (req.Fat.IsPositive() || req.Protein.IsPositive()) {
		plan, err := fpu.NewPlan(req.Fat, req.Protein, cfg, at)
		if err != nil {
			return Result{}, fmt.Errorf("converting fat and protein: %w", err)
		}
		result.Plan = plan
	}

	if result.Plan != nil && !result.Plan.Empty() {
		if err := s.storage.AppendBatch(ctx, result.Plan.Records); err != nil {
			return Result{}, fmt.Errorf("%w: storing equivalents: %w", ErrStorageFailure, err)
		}
		s.logger.Info("stored carb equivalents",
			"group", result.Plan.GroupID,
			"count", len(result.Plan.Records),
			"size", result.Plan.EquivalentSize.String(),
			"dropped", result.Plan.DroppedGrams.String())
	}

	if req.Carbs.IsPositive() {
		record := models.NewCarbRecord(at, req.Carbs)
		if err := s.storage.AppendBatch(ctx, []models.IntakeRecord{record}); err != nil {
			return result, fmt.Errorf("%w: storing carbs: %w", ErrStorageFailure, err)
		}
		result.Carbs = &record
		s.logger.Info("stored carbs", "id", record.ID, "grams", record.Grams.String())
	}

	if cfg.SkipConfirmation {
		if err := s.dosing.RecalculateSynchronously(ctx); err != nil {
			return result, fmt.Errorf("%w: %w", ErrDosingTriggerFailure, err)
		}
		result.Outcome = AutoDosed
		return result, nil
	}

	s.dosing.RequestConfirmation(ctx, models.ConfirmationRequest{
		Carbs:       req.Carbs,
		Equivalents: result.Equivalents(),
		EnteredAt:   at,
	})
	result.Outcome = AwaitingConfirmation
	return result, nil
}
