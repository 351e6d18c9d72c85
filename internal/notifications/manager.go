// Package notifications handles bolus confirmation notifications
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/mrcode/nightscout-fpu/internal/chart"
	"github.com/mrcode/nightscout-fpu/internal/models"
)

const appName = "Nightscout FPU"

// Manager turns confirmation requests into desktop notifications and keeps
// them pending until the user acts on them.
type Manager struct {
	settings *models.Settings
	pending  []models.ConfirmationRequest
	lastIcon string
	notify   func(title, message, icon string) error
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewManager creates a new notification manager
func NewManager(settings *models.Settings) *Manager {
	return &Manager{
		settings: settings,
		notify: func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		},
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used for notification failures
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	m.logger = logger
	return m
}

// UpdateSettings updates the settings reference
func (m *Manager) UpdateSettings(settings *models.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
}

// Confirm records the request as pending and shows a notification for it.
// Notification failures are logged; the request stays pending either way.
func (m *Manager) Confirm(_ context.Context, req models.ConfirmationRequest) {
	m.mu.Lock()
	m.pending = append(m.pending, req)
	enabled := m.settings == nil || m.settings.EnableNotifications
	m.mu.Unlock()

	if !enabled {
		return
	}

	title, message := formatConfirmation(req)

	icon := ""
	if records := confirmationRecords(req); len(records) > 1 {
		opts := chart.DefaultOptions()
		opts.Title = message
		path, err := chart.WriteTempPNG(records, opts)
		if err != nil {
			m.logger.Warn("rendering schedule chart", "error", err)
		} else {
			icon = path
			m.replaceIcon(path)
		}
	}

	if err := m.notify(title, message, icon); err != nil {
		m.logger.Warn("sending confirmation notification", "error", err)
	}
}

// replaceIcon removes the chart of the previous notification. The current one
// must outlive Notify since the daemon reads it asynchronously.
func (m *Manager) replaceIcon(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastIcon != "" {
		_ = os.Remove(m.lastIcon)
	}
	m.lastIcon = path
}

// Pending returns the confirmation requests that have not been cleared
func (m *Manager) Pending() []models.ConfirmationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ConfirmationRequest, len(m.pending))
	copy(out, m.pending)
	return out
}

// ClearPending drops all pending confirmation requests and returns how many there were
func (m *Manager) ClearPending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.pending)
	m.pending = nil
	return n
}

// SendTestNotification sends a test notification
func (m *Manager) SendTestNotification() error {
	return m.notify(appName, "Test notification - confirmations are working!", "")
}

// formatConfirmation creates the notification title and message
func formatConfirmation(req models.ConfirmationRequest) (string, string) {
	title := "🍽️ Confirm bolus"

	equivalents := req.EquivalentGrams()
	var message string
	switch {
	case len(req.Equivalents) == 0:
		message = fmt.Sprintf("%s g carbs", req.Carbs.StringFixed(1))
	case req.Carbs.IsZero():
		message = fmt.Sprintf("%s g carb equivalents in %d events",
			equivalents.StringFixed(1), len(req.Equivalents))
	default:
		message = fmt.Sprintf("%s g carbs + %s g carb equivalents in %d events",
			req.Carbs.StringFixed(1), equivalents.StringFixed(1), len(req.Equivalents))
	}

	return title, message
}

func confirmationRecords(req models.ConfirmationRequest) []models.IntakeRecord {
	records := make([]models.IntakeRecord, 0, len(req.Equivalents)+1)
	if req.Carbs.IsPositive() {
		records = append(records, models.NewCarbRecord(req.EnteredAt, req.Carbs))
	}
	return append(records, req.Equivalents...)
}
