package convopilot

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/convopilot/backend"
	"github.com/hupe1980/convopilot/config"
	"github.com/hupe1980/convopilot/tool"
)

func TestNew_RoundTrip(t *testing.T) {
	mock := backend.NewMock()
	mock.SetFallback("Hello there!")

	pilot := New(mock)
	got := pilot.HandleRequest(context.Background(), "Hi", "session-1")
	assert.Equal(t, "Hello there!", got)
}

func TestNewBackend_BuildsConfiguredProvider(t *testing.T) {
	be, err := NewBackend(config.BackendConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &backend.Mock{}, be)

	_, err = NewBackend(config.BackendConfig{Provider: "openai", Model: "gpt-4o", Temperature: 0.2, MaxTokens: 256})
	require.NoError(t, err)

	_, err = NewBackend(config.BackendConfig{Provider: "gemini"})
	assert.ErrorContains(t, err, `unknown backend provider "gemini"`)
}

func TestNewFromConfig_WiresToolsAndMemory(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())

	pilot, err := NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)

	mock, ok := pilot.Backend().(*backend.Mock)
	require.True(t, ok, "default provider is the mock backend")
	mock.SetFallback("The answer is [[calculator(operation=add, a=2, b=3)]].")
	require.NoError(t, pilot.Tools().Register(tool.NewCalculator()))

	got := pilot.HandleRequest(context.Background(), "What is 2 plus 3?", "session-1")
	assert.Equal(t, `The answer is {"result":5}.`, got)

	// The interaction is stored under the session, so a follow-up sees history.
	bundle, err := pilot.Memory().GetContext("session-1", "again")
	require.NoError(t, err)
	assert.Len(t, bundle.History, 1)
}

func TestNewFromConfig_TelemetryEnabledRecordsRequests(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Telemetry.Enabled = true

	pilot, err := NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, pilot.Metrics())

	pilot.HandleRequest(context.Background(), "Hi", "session-1")
	assert.Equal(t, 1.0, testutil.ToFloat64(pilot.Metrics().RequestsTotal.WithLabelValues("ok")))
}

func TestNewFromConfig_TelemetryDisabledByDefault(t *testing.T) {
	pilot, err := NewFromConfig(context.Background(), config.DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, pilot.Metrics())
}
