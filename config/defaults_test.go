package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEmpty(t, cfg.LLM.BaseURL)
	assert.NotEqual(t, DiscussionConfig{}.MaxRounds, cfg.Discussion.MaxRounds)
	assert.NotEmpty(t, cfg.Personas)
	assert.NotEmpty(t, cfg.Store.Type)
	assert.NotEmpty(t, cfg.Export.Formats)
	assert.NotEmpty(t, cfg.Log.Level)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
}

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9091, cfg.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Greater(t, cfg.WriteTimeout, cfg.ReadTimeout, "streams outlive requests")
	assert.Empty(t, cfg.APIKeys)
	assert.Equal(t, 20, cfg.MaxRoundsLimit)
}

func TestDefaultDiscussionConfig(t *testing.T) {
	cfg := DefaultDiscussionConfig()
	assert.Equal(t, 3, cfg.MaxRounds)
	assert.Equal(t, 0.7, cfg.ConsensusThreshold)
	assert.True(t, cfg.SmartTermination)
	assert.Equal(t, 1, cfg.MinResponsesPerPersona)
	assert.NoError(t, cfg.Orchestrator().Validate())
}

func TestDefaultPersonas(t *testing.T) {
	ps := DefaultPersonas()
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
		assert.NotEmpty(t, p.Instructions)
		assert.NotEmpty(t, p.Color)
		assert.NoError(t, p.Persona().Validate())
	}
	assert.Equal(t, []string{"Doctrinal", "Analytical", "Strategic", "Creative", "Skeptic"}, ids)
}

func TestDefaultLLMConfig(t *testing.T) {
	cfg := DefaultLLMConfig()
	assert.Equal(t, "http://localhost:1234", cfg.BaseURL)
	assert.Equal(t, "chat", cfg.DialogueMode)
	assert.True(t, cfg.SystemRole)
	assert.True(t, cfg.Cleanup)
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "submind", cfg.ServiceName)
}
