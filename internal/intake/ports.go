package intake

//go:generate mockgen -destination mock_intake_test.go -package intake_test github.com/mrcode/nightscout-fpu/internal/intake ConfigurationPort,StoragePort,DosingPort

import (
	"context"

	"github.com/mrcode/nightscout-fpu/internal/models"
)

// ConfigurationPort supplies the conversion parameters for one call
type ConfigurationPort interface {
	FPU() models.FPUConfig
}

// StoragePort appends records. A batch is stored completely or not at all.
type StoragePort interface {
	AppendBatch(ctx context.Context, records []models.IntakeRecord) error
}

// DosingPort reaches the external dosing engine
type DosingPort interface {
	// RecalculateSynchronously runs the dosing engine and waits for it
	RecalculateSynchronously(ctx context.Context) error
	// RequestConfirmation asks the user to confirm a bolus later
	RequestConfirmation(ctx context.Context, req models.ConfirmationRequest)
}
