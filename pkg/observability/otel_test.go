package observability

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestInitOTel_Disabled(t *testing.T) {
	logger, hook := test.NewNullLogger()

	providers, err := InitOTel(context.Background(), OTelConfig{Enabled: false}, logger)
	require.NoError(t, err)
	assert.Nil(t, providers)
	assert.Equal(t, "OpenTelemetry is disabled", hook.LastEntry().Message)
}

func TestShutdownOTel_Nil(t *testing.T) {
	logger, _ := test.NewNullLogger()
	assert.NoError(t, ShutdownOTel(context.Background(), nil, logger))
}

func TestShutdownOTel_TracerOnly(t *testing.T) {
	logger, hook := test.NewNullLogger()
	providers := &OTelProviders{TracerProvider: sdktrace.NewTracerProvider()}

	require.NoError(t, ShutdownOTel(context.Background(), providers, logger))
	assert.Equal(t, "OpenTelemetry shutdown complete", hook.LastEntry().Message)
}

func TestWithTraceContext(t *testing.T) {
	logger, _ := test.NewNullLogger()
	entry := logrus.NewEntry(logger)

	assert.Same(t, entry, WithTraceContext(context.Background(), entry))

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	withTrace := WithTraceContext(ctx, entry)
	spanCtx := trace.SpanContextFromContext(ctx)
	assert.Equal(t, spanCtx.TraceID().String(), withTrace.Data["trace_id"])
	assert.Equal(t, spanCtx.SpanID().String(), withTrace.Data["span_id"])
}
