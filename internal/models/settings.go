// Package models contains data structures used throughout the application
package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
)

// Storage backends
const (
	BackendSQLite     = "sqlite"
	BackendNightscout = "nightscout"
)

// FPUConfig is the snapshot of conversion parameters read for one intake call
type FPUConfig struct {
	IntervalMinutes         int             `json:"intervalMinutes"`
	MaxDurationHours        int             `json:"maxDurationHours"`
	AdjustmentFactor        decimal.Decimal `json:"adjustmentFactor"`
	DelayMinutes            int             `json:"delayMinutes"`
	SkipConfirmation        bool            `json:"skipConfirmation"`
	UseEquivalentConversion bool            `json:"useEquivalentConversion"`
}

// Settings contains all application settings
type Settings struct {
	mu sync.RWMutex `json:"-"`

	// Connection settings
	NightscoutURL string `json:"nightscoutUrl"`
	APISecret     string `json:"apiSecret"` // Plain API secret (will be hashed)
	APIToken      string `json:"apiToken"`  // Token-based auth
	UseToken      bool   `json:"useToken"`  // Use token instead of secret

	// Storage
	Backend      string `json:"backend"` // "sqlite" or "nightscout"
	DatabasePath string `json:"databasePath"`

	// Fat/protein conversion
	UseFPUConversion           bool            `json:"useFPUConversion"`
	MinuteInterval             int             `json:"minuteInterval"` // Minutes between equivalents (1-60)
	TimeCap                    int             `json:"timeCap"`        // Max duration in hours
	IndividualAdjustmentFactor decimal.Decimal `json:"individualAdjustmentFactor"`
	Delay                      int             `json:"delay"` // Minutes before the first equivalent

	// Dosing
	SkipBolusScreenAfterCarbs bool   `json:"skipBolusScreenAfterCarbs"`
	LoopCommand               string `json:"loopCommand"`   // Empty = log only
	DosingTimeout             int    `json:"dosingTimeout"` // Seconds
	EnableNotifications       bool   `json:"enableNotifications"`

	// HTTP API
	ListenAddr string `json:"listenAddr"`
}

// DefaultSettings returns settings with default values
func DefaultSettings() *Settings {
	return &Settings{
		Backend: BackendSQLite,

		UseFPUConversion:           false,
		MinuteInterval:             30,
		TimeCap:                    8,
		IndividualAdjustmentFactor: decimal.RequireFromString("0.5"),
		Delay:                      60,

		SkipBolusScreenAfterCarbs: false,
		DosingTimeout:             60,
		EnableNotifications:       true,

		ListenAddr: "127.0.0.1:8765",
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	appDir := filepath.Join(configDir, "nightscout-fpu")
	if err := os.MkdirAll(appDir, 0750); err != nil {
		return "", err
	}

	return appDir, nil
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

// Load loads settings from the default location
func (s *Settings) Load() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return s.LoadFrom(path)
}

// LoadFrom loads settings from path, keeping defaults if the file does not exist
func (s *Settings) LoadFrom(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path) //nolint:gosec // Config path is controlled by the app, not user input
	if err != nil {
		if os.IsNotExist(err) {
			s.copySettingsFields(DefaultSettings())
			return nil
		}
		return err
	}

	return json.Unmarshal(data, s)
}

// Save saves settings to the default location
func (s *Settings) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return s.SaveTo(path)
}

// SaveTo saves settings to path
func (s *Settings) SaveTo(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overrides connection and storage settings from the environment
func (s *Settings) ApplyEnv() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := os.LookupEnv("NIGHTSCOUT_URL"); ok {
		s.NightscoutURL = v
	}
	if v, ok := os.LookupEnv("NIGHTSCOUT_API_SECRET"); ok {
		s.APISecret = v
	}
	if v, ok := os.LookupEnv("NIGHTSCOUT_API_TOKEN"); ok {
		s.APIToken = v
		s.UseToken = v != ""
	}
	if v, ok := os.LookupEnv("FPU_DB_PATH"); ok {
		s.DatabasePath = v
	}
	if v, ok := os.LookupEnv("FPU_BACKEND"); ok {
		s.Backend = v
	}
	if v, ok := os.LookupEnv("FPU_SKIP_CONFIRMATION"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.SkipBolusScreenAfterCarbs = b
		}
	}
}

// Clone creates a copy of the settings
func (s *Settings) Clone() *Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &Settings{}
	clone.copySettingsFields(s)
	return clone
}

// Update updates settings from another Settings object
func (s *Settings) Update(other *Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	s.copySettingsFields(other)
}

// copySettingsFields copies all fields from other to s, excluding the mutex
// The caller must hold the necessary locks on s and other (if other is shared)
func (s *Settings) copySettingsFields(other *Settings) {
	s.NightscoutURL = other.NightscoutURL
	s.APISecret = other.APISecret
	s.APIToken = other.APIToken
	s.UseToken = other.UseToken
	s.Backend = other.Backend
	s.DatabasePath = other.DatabasePath
	s.UseFPUConversion = other.UseFPUConversion
	s.MinuteInterval = other.MinuteInterval
	s.TimeCap = other.TimeCap
	s.IndividualAdjustmentFactor = other.IndividualAdjustmentFactor
	s.Delay = other.Delay
	s.SkipBolusScreenAfterCarbs = other.SkipBolusScreenAfterCarbs
	s.LoopCommand = other.LoopCommand
	s.DosingTimeout = other.DosingTimeout
	s.EnableNotifications = other.EnableNotifications
	s.ListenAddr = other.ListenAddr
}

// IsConfigured returns true if a Nightscout site is set
func (s *Settings) IsConfigured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.NightscoutURL != ""
}

// FPU returns the conversion parameters for one intake call
func (s *Settings) FPU() FPUConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return FPUConfig{
		IntervalMinutes:         s.MinuteInterval,
		MaxDurationHours:        s.TimeCap,
		AdjustmentFactor:        s.IndividualAdjustmentFactor,
		DelayMinutes:            s.Delay,
		SkipConfirmation:        s.SkipBolusScreenAfterCarbs,
		UseEquivalentConversion: s.UseFPUConversion,
	}
}

// Validate checks that all values are in range
func (s *Settings) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.MinuteInterval < 1 || s.MinuteInterval > 60:
		return fmt.Errorf("minuteInterval must be between 1 and 60, got %d", s.MinuteInterval)
	case s.TimeCap < 1:
		return fmt.Errorf("timeCap must be at least 1 hour, got %d", s.TimeCap)
	case !s.IndividualAdjustmentFactor.IsPositive():
		return fmt.Errorf("individualAdjustmentFactor must be positive, got %s", s.IndividualAdjustmentFactor)
	case s.Delay < 0:
		return fmt.Errorf("delay must not be negative, got %d", s.Delay)
	case s.DosingTimeout < 1:
		return fmt.Errorf("dosingTimeout must be at least 1 second, got %d", s.DosingTimeout)
	}

	switch s.Backend {
	case BackendSQLite:
	case BackendNightscout:
		if s.NightscoutURL == "" {
			return fmt.Errorf("backend %q needs nightscoutUrl", s.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	return nil
}
