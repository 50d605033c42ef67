package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_Disabled(t *testing.T) {
	before := otel.GetTracerProvider()

	tel, err := Setup(context.Background(), Config{})
	require.NoError(t, err)

	assert.False(t, tel.Enabled())
	assert.Same(t, before, otel.GetTracerProvider())
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetup_OTLP(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	tel, err := Setup(context.Background(), Config{
		Endpoint:    "http://127.0.0.1:4318",
		ServiceName: "menucrawl-test",
		Version:     "dev",
	})
	require.NoError(t, err)
	require.True(t, tel.Enabled())
	assert.Same(t, tel.TracerProvider, otel.GetTracerProvider())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, tel.Shutdown(ctx), "no spans were recorded, nothing to export")
}
