package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("PACKML_OTEL_ENABLED", "")
	t.Setenv("PACKML_OTEL_SERVICE_NAME", "")
	t.Setenv("PACKML_OTEL_ENDPOINT", "")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, defaultServiceName, cfg.ServiceName)
	assert.Equal(t, defaultServiceVersion, cfg.ServiceVersion)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Empty(t, cfg.Endpoint)
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("PACKML_OTEL_ENABLED", "true")
	t.Setenv("PACKML_OTEL_SERVICE_NAME", "filler-controller")
	t.Setenv("PACKML_OTEL_ENDPOINT", "http://collector:4318")
	t.Setenv("PACKML_OTEL_TIMEOUT", "10s")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "filler-controller", cfg.ServiceName)
	assert.Equal(t, "http://collector:4318", cfg.Endpoint)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestLoadConfigFromEnvRejectsBadBool(t *testing.T) {
	t.Setenv("PACKML_OTEL_ENABLED", "maybe")

	_, err := LoadConfigFromEnv()
	require.Error(t, err)
}

func TestInitializeDisabled(t *testing.T) {
	require.NoError(t, Initialize(context.Background(), &Config{Enabled: false}))
	require.NoError(t, Shutdown(context.Background()))
}

func TestInitializeWithoutEndpoint(t *testing.T) {
	require.NoError(t, Initialize(context.Background(), &Config{Enabled: true}))
	require.NoError(t, Shutdown(context.Background()))
}
