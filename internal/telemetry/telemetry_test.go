package telemetry

import (
	"context"
	"testing"

	"github.com/guillermoBallester/loaneda/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var _ port.Instrumentation = (*Instruments)(nil)

func TestNoopTracer(t *testing.T) {
	tracer := NoopTracer()
	assert.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "test")
	assert.NotNil(t, span)
	span.End()
}

func TestNoopInstruments(t *testing.T) {
	inst := NoopInstruments()
	assert.NotNil(t, inst)
	assert.NotNil(t, inst.StageDuration)
	assert.NotNil(t, inst.RowsRemoved)
	assert.NotNil(t, inst.ColumnsDropped)
	assert.NotNil(t, inst.SoftFailures)

	// Should not panic.
	ctx := context.Background()
	inst.RecordStageDuration(ctx, "skew", 12.5)
	inst.AddRowsRemoved(ctx, "outliers", 3)
}

func TestProvider_Shutdown_Nil(t *testing.T) {
	var p *Provider
	err := p.Shutdown(context.Background())
	assert.NoError(t, err)
}

func TestProvider_Tracer_Nil(t *testing.T) {
	var p *Provider
	assert.NotNil(t, p.Tracer())
}

func TestInit_UnsupportedExporter(t *testing.T) {
	_, err := Init(context.Background(), Options{ServiceName: "loaneda", Version: "test", Exporter: "zipkin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter")
}

func TestInit_Stdout(t *testing.T) {
	p, err := Init(context.Background(), Options{ServiceName: "loaneda", Version: "test", Exporter: ExporterStdout})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "pipeline.stage")
	span.End()
	NewInstruments().AddRowsRemoved(context.Background(), "outliers", 1)

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSpanRecording(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	tracer := tp.Tracer("test")

	ctx := context.Background()
	_, span := tracer.Start(ctx, "pipeline.stage")
	span.SetAttributes(attribute.String("pipeline.stage", "impute"))
	span.End()

	require.NoError(t, tp.ForceFlush(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.stage", spans[0].Name)
}

func TestInstruments_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	inst := newInstrumentsFromMeter(mp.Meter(meterName))

	ctx := context.Background()
	inst.RecordStageDuration(ctx, "outliers", 20)
	inst.AddRowsRemoved(ctx, "outliers", 7)
	inst.AddRowsRemoved(ctx, "outliers", 0)
	inst.AddColumnsDropped(ctx, "correlation", 2)
	inst.AddSoftFailures(ctx, "skew", 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := make(map[string]metricdata.Metrics)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}
	assert.Contains(t, byName, "loaneda.stage.duration")
	assert.NotContains(t, byName, "loaneda.soft_failures", "zero additions are not recorded")

	rows, ok := byName["loaneda.rows.removed"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, rows.DataPoints, 1)
	assert.Equal(t, int64(7), rows.DataPoints[0].Value)
	stage, ok := rows.DataPoints[0].Attributes.Value("pipeline.stage")
	require.True(t, ok)
	assert.Equal(t, "outliers", stage.AsString())

	cols, ok := byName["loaneda.columns.dropped"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, cols.DataPoints, 1)
	assert.Equal(t, int64(2), cols.DataPoints[0].Value)
}
