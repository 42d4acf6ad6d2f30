package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid(), "noop spans carry no context")
}

func TestWithDefaults(t *testing.T) {
	t.Setenv("VERSION", "")
	t.Setenv("ENVIRONMENT", "staging")

	cfg := withDefaults(Config{})
	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 30*time.Second, cfg.ExportInterval)

	custom := withDefaults(Config{
		Endpoint:       "otel:4317",
		ServiceName:    "importer",
		ServiceVersion: "1.2.0",
		Environment:    "production",
		ExportInterval: time.Second,
	})
	assert.Equal(t, "otel:4317", custom.Endpoint)
	assert.Equal(t, "importer", custom.ServiceName)
	assert.Equal(t, "1.2.0", custom.ServiceVersion)
	assert.Equal(t, "production", custom.Environment)
	assert.Equal(t, time.Second, custom.ExportInterval)
}
