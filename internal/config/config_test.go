package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	viper.Reset()
	m, err := NewManager()
	require.NoError(t, err)
	return m
}

func TestDefaultsLoad(t *testing.T) {
	m := newManager(t)
	cfg := m.GetConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "sqlite", cfg.Review.Backend)

	a := cfg.Abstraction
	assert.Equal(t, 30, a.ProgressionGapDays)
	assert.Equal(t, 14, a.EscalationGapDays)
	assert.Equal(t, 60, a.RadiationCourseGapDays)
	assert.Equal(t, 7, a.CycleWindowDays)
	assert.Equal(t, 60, a.LineChangeWindowDays)
	assert.Equal(t, 90, a.HighConfidenceScore)
	assert.Equal(t, 70, a.MediumConfidenceScore)
	assert.Equal(t, 50, a.LowConfidenceScore)
}

func TestDefaultsValidate(t *testing.T) {
	m := newManager(t)
	assert.NoError(t, m.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Manager)
	}{
		{"bad port", func(m *Manager) { m.config.Server.Port = -1 }},
		{"bad log level", func(m *Manager) { m.config.Logging.Level = "verbose" }},
		{"inverted cut-offs", func(m *Manager) { m.config.Abstraction.HighConfidenceScore = 10 }},
		{"zero gap", func(m *Manager) { m.config.Abstraction.ProgressionGapDays = 0 }},
		{"bad review backend", func(m *Manager) { m.config.Review.Backend = "dynamodb" }},
		{"enabled db without host", func(m *Manager) {
			m.config.Database.Enabled = true
			m.config.Database.Host = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(t)
			tt.mutate(m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestEnvironmentOverride(t *testing.T) {
	viper.Reset()
	t.Setenv("THERAPY_ABS_SERVER_PORT", "9090")
	t.Setenv("THERAPY_ABS_ABSTRACTION_CYCLE_WINDOW_DAYS", "10")

	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, 9090, m.GetConfig().Server.Port)
	assert.Equal(t, 10, m.GetConfig().Abstraction.CycleWindowDays)
}
