package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/n8dizzle/Christmas-automations/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func resetGlobals(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
}

func TestSetup_NoneInstallsPropagator(t *testing.T) {
	resetGlobals(t)

	shutdown, err := Setup(context.Background(), config.TraceConfig{Exporter: "none"}, nil)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestSetup_StdoutExportsSpans(t *testing.T) {
	resetGlobals(t)
	var buf bytes.Buffer

	shutdown, err := Setup(context.Background(), config.TraceConfig{
		Exporter:    "stdout",
		ServiceName: "warrantyd-test",
		SampleRatio: 1,
	}, &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "lookup.Dispatch")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "lookup.Dispatch")
	assert.Contains(t, buf.String(), "warrantyd-test")
}

func TestSetup_UnknownExporter(t *testing.T) {
	resetGlobals(t)

	_, err := Setup(context.Background(), config.TraceConfig{Exporter: "zipkin"}, nil)
	assert.ErrorContains(t, err, `unknown exporter "zipkin"`)
}
