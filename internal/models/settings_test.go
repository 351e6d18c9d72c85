package models

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	if settings.MinuteInterval != 30 {
		t.Errorf("Default interval = %d, want 30", settings.MinuteInterval)
	}
	if settings.TimeCap != 8 {
		t.Errorf("Default time cap = %d, want 8", settings.TimeCap)
	}
	if !settings.IndividualAdjustmentFactor.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("Default adjustment = %s, want 0.5", settings.IndividualAdjustmentFactor)
	}
	if settings.Delay != 60 {
		t.Errorf("Default delay = %d, want 60", settings.Delay)
	}
	if settings.UseFPUConversion {
		t.Error("Conversion should be off by default")
	}
	if settings.Backend != BackendSQLite {
		t.Errorf("Default backend = %s, want %s", settings.Backend, BackendSQLite)
	}
	assert.NoError(t, settings.Validate())
}

func TestSettings_FPU(t *testing.T) {
	settings := DefaultSettings()
	settings.UseFPUConversion = true
	settings.SkipBolusScreenAfterCarbs = true
	settings.MinuteInterval = 5

	cfg := settings.FPU()

	assert.Equal(t, 5, cfg.IntervalMinutes)
	assert.Equal(t, 8, cfg.MaxDurationHours)
	assert.Equal(t, 60, cfg.DelayMinutes)
	assert.True(t, cfg.SkipConfirmation)
	assert.True(t, cfg.UseEquivalentConversion)
	assert.True(t, cfg.AdjustmentFactor.Equal(decimal.RequireFromString("0.5")))
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr bool
	}{
		{"Defaults", func(_ *Settings) {}, false},
		{"Interval zero", func(s *Settings) { s.MinuteInterval = 0 }, true},
		{"Interval above an hour", func(s *Settings) { s.MinuteInterval = 90 }, true},
		{"Interval not dividing 60", func(s *Settings) { s.MinuteInterval = 7 }, false},
		{"Time cap zero", func(s *Settings) { s.TimeCap = 0 }, true},
		{"Adjustment zero", func(s *Settings) { s.IndividualAdjustmentFactor = decimal.Zero }, true},
		{"Negative delay", func(s *Settings) { s.Delay = -1 }, true},
		{"Unknown backend", func(s *Settings) { s.Backend = "mongo" }, true},
		{"Nightscout without URL", func(s *Settings) { s.Backend = BackendNightscout }, true},
		{"Nightscout with URL", func(s *Settings) {
			s.Backend = BackendNightscout
			s.NightscoutURL = "https://ns.example.com"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultSettings()
			tt.mutate(settings)
			err := settings.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettings_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	original := DefaultSettings()
	original.UseFPUConversion = true
	original.IndividualAdjustmentFactor = decimal.RequireFromString("1.2")
	original.MinuteInterval = 15
	require.NoError(t, original.SaveTo(path))

	loaded := DefaultSettings()
	require.NoError(t, loaded.LoadFrom(path))

	assert.True(t, loaded.UseFPUConversion)
	assert.Equal(t, 15, loaded.MinuteInterval)
	assert.True(t, loaded.IndividualAdjustmentFactor.Equal(decimal.RequireFromString("1.2")))
}

func TestSettings_LoadMissingFileKeepsDefaults(t *testing.T) {
	settings := &Settings{}
	require.NoError(t, settings.LoadFrom(filepath.Join(t.TempDir(), "missing.json")))

	assert.Equal(t, 30, settings.MinuteInterval)
	assert.Equal(t, BackendSQLite, settings.Backend)
}

func TestSettings_ApplyEnv(t *testing.T) {
	t.Setenv("NIGHTSCOUT_URL", "https://env.example.com")
	t.Setenv("NIGHTSCOUT_API_TOKEN", "tok")
	t.Setenv("FPU_SKIP_CONFIRMATION", "true")

	settings := DefaultSettings()
	settings.ApplyEnv()

	assert.Equal(t, "https://env.example.com", settings.NightscoutURL)
	assert.Equal(t, "tok", settings.APIToken)
	assert.True(t, settings.UseToken)
	assert.True(t, settings.SkipBolusScreenAfterCarbs)
}

func TestSettings_Clone(t *testing.T) {
	original := DefaultSettings()
	original.NightscoutURL = "https://test.example.com"

	clone := original.Clone()

	if clone.NightscoutURL != original.NightscoutURL {
		t.Error("Clone did not copy NightscoutURL")
	}

	clone.NightscoutURL = "https://modified.example.com"
	if original.NightscoutURL == clone.NightscoutURL {
		t.Error("Modifying clone affected original")
	}
}

func TestSettings_IsConfigured(t *testing.T) {
	settings := DefaultSettings()

	if settings.IsConfigured() {
		t.Error("Empty settings should not be configured")
	}

	settings.NightscoutURL = "https://test.example.com"
	if !settings.IsConfigured() {
		t.Error("Settings with URL should be configured")
	}
}
