package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/proscan/pkg/observability"
)

func TestAttributeFilter(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()

	var logs bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&logs, nil))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter), logger)),
	)

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	_, span := tp.Tracer("test").Start(context.Background(), observability.SpanFrame)
	span.SetAttributes(
		attribute.Int64("frame.sequence", 7),
		attribute.String("detection.symbology", "QR"),
		attribute.String("detection.payload", "SERIAL-0001"),
		attribute.String("user.email", "op@example.com"),
		attribute.String("camera.model", "x"),
		attribute.Bool("error", true),
	)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	attrs := make(map[string]attribute.Value, len(spans[0].Attributes))
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value
	}

	assert.ElementsMatch(t, []string{"frame.sequence", "detection.symbology", "detection.payload_len", "error"},
		slices.Collect(maps.Keys(attrs)))
	assert.Equal(t, int64(len("SERIAL-0001")), attrs["detection.payload_len"].AsInt64())
	assert.NotContains(t, logs.String(), "SERIAL-0001")
	assert.Contains(t, logs.String(), "user.email")
	assert.Contains(t, logs.String(), "camera.model")
}
