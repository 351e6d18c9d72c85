// Package app wires settings, storage, dosing and the intake service together
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/mrcode/nightscout-fpu/internal/dosing"
	"github.com/mrcode/nightscout-fpu/internal/fpu"
	"github.com/mrcode/nightscout-fpu/internal/intake"
	"github.com/mrcode/nightscout-fpu/internal/models"
	"github.com/mrcode/nightscout-fpu/internal/nightscout"
	"github.com/mrcode/nightscout-fpu/internal/notifications"
	"github.com/mrcode/nightscout-fpu/internal/storage"
	"github.com/shopspring/decimal"
)

// ErrNoNightscout is returned for Nightscout operations without a configured site
var ErrNoNightscout = errors.New("nightscout is not configured")

// App holds the running components
type App struct {
	settings      *models.Settings
	db            *storage.SQLiteStore
	records       storage.RecordStore
	client        *nightscout.Client
	notifyManager *notifications.Manager
	dispatcher    *dosing.Dispatcher
	intake        *intake.Service
	logger        *slog.Logger

	// Serializes AddIntake; the intake service itself does no locking
	mu sync.Mutex
}

// DefaultDatabasePath returns the database location in the user data dir,
// creating the directory if needed
func DefaultDatabasePath() (string, error) {
	path, err := xdg.DataFile("nightscout-fpu/fpu.db")
	if err != nil {
		return "", fmt.Errorf("locating data dir: %w", err)
	}
	return path, nil
}

// New builds the application from settings. The SQLite database is always
// opened since it holds the meal presets.
func New(settings *models.Settings, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	cfg := settings.Clone()

	dbPath := cfg.DatabasePath
	if dbPath == "" {
		var err error
		if dbPath, err = DefaultDatabasePath(); err != nil {
			return nil, err
		}
	}

	db, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		settings:      settings,
		db:            db,
		records:       db,
		notifyManager: notifications.NewManager(settings).WithLogger(logger),
		logger:        logger,
	}

	if cfg.IsConfigured() {
		a.client = nightscout.NewClientFromSettings(cfg)
	}
	if cfg.Backend == models.BackendNightscout {
		a.records = a.client
	}

	var engine dosing.Engine = dosing.LogEngine{Logger: logger}
	if cfg.LoopCommand != "" {
		engine = dosing.NewCommandEngine(cfg.LoopCommand,
			time.Duration(cfg.DosingTimeout)*time.Second).WithLogger(logger)
	}
	a.dispatcher = dosing.NewDispatcher(engine, a.notifyManager).WithLogger(logger)
	a.intake = intake.NewService(settings, a.records, a.dispatcher).WithLogger(logger)

	logger.Debug("app ready", "backend", cfg.Backend, "database", dbPath,
		"loopCommand", cfg.LoopCommand != "")
	return a, nil
}

// Settings returns a copy of the current settings
func (a *App) Settings() *models.Settings {
	return a.settings.Clone()
}

// AddIntake records a meal, one call at a time
func (a *App) AddIntake(ctx context.Context, req intake.Request) (intake.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.intake.Add(ctx, req)
}

// AddPreset records a saved dish at the given time
func (a *App) AddPreset(ctx context.Context, presetID string, at time.Time) (intake.Result, error) {
	preset, err := a.db.Preset(ctx, presetID)
	if err != nil {
		return intake.Result{}, err
	}
	return a.AddIntake(ctx, intake.RequestFromPreset(*preset, at))
}

// Preview plans carb equivalents without storing them
func (a *App) Preview(fat, protein decimal.Decimal, at time.Time) (*fpu.Plan, error) {
	return a.intake.Preview(fat, protein, at)
}

// Records returns the records of the last hours, oldest first
func (a *App) Records(ctx context.Context, hours int) ([]models.IntakeRecord, error) {
	if hours <= 0 {
		hours = 24
	}
	from := time.Now().Add(-time.Duration(hours) * time.Hour)
	return a.records.List(ctx, from, time.Time{})
}

// DeleteGroup removes all equivalents of one conversion
func (a *App) DeleteGroup(ctx context.Context, groupID string) (int, error) {
	n, err := a.records.DeleteGroup(ctx, groupID)
	if err != nil {
		return n, err
	}
	a.logger.Info("deleted equivalent group", "group", groupID, "records", n)
	return n, nil
}

// Presets returns the saved dishes
func (a *App) Presets(ctx context.Context) ([]models.MealPreset, error) {
	return a.db.Presets(ctx)
}

// SavePreset stores a dish, assigning an id if it has none
func (a *App) SavePreset(ctx context.Context, p *models.MealPreset) error {
	if p.IsEmpty() {
		return errors.New("preset needs a dish name and at least one macro")
	}
	return a.db.SavePreset(ctx, p)
}

// DeletePreset removes a saved dish
func (a *App) DeletePreset(ctx context.Context, id string) error {
	return a.db.DeletePreset(ctx, id)
}

// PendingConfirmations returns bolus confirmations the user has not acted on
func (a *App) PendingConfirmations() []models.ConfirmationRequest {
	return a.notifyManager.Pending()
}

// ClearConfirmations drops all pending confirmations
func (a *App) ClearConfirmations() int {
	return a.notifyManager.ClearPending()
}

// TestConnection checks the Nightscout site
func (a *App) TestConnection(ctx context.Context) error {
	if a.client == nil {
		return ErrNoNightscout
	}
	return a.client.TestConnection(ctx)
}

// Shutdown stops running recalculations and closes the database
func (a *App) Shutdown(ctx context.Context) error {
	err := a.dispatcher.Shutdown(ctx)
	return errors.Join(err, a.db.Close())
}
