package telemetry

import (
	"context"
	"testing"

	"rag-chat/internal/config"

	"github.com/stretchr/testify/require"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), &config.TelemetryConfig{ServiceName: "rag-chat"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown(context.Background())
}

func TestInitTracerWithEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), &config.TelemetryConfig{
		ServiceName:  "rag-chat",
		OTLPEndpoint: "localhost:4317",
		SampleRatio:  1,
	})
	require.NoError(t, err)
	shutdown(context.Background())
}
