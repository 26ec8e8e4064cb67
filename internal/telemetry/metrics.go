package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/loaneda"

// Instruments holds pre-created OTel metric instruments. Every measurement
// carries a pipeline.stage attribute.
type Instruments struct {
	StageDuration  metric.Float64Histogram
	RowsRemoved    metric.Int64Counter
	ColumnsDropped metric.Int64Counter
	SoftFailures   metric.Int64Counter
}

// NewInstruments creates metric instruments from the global MeterProvider.
// Returns nil-safe instruments: if creation fails, noop instruments are used.
func NewInstruments() *Instruments {
	meter := otel.Meter(meterName)
	return newInstrumentsFromMeter(meter)
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	meter := noop.NewMeterProvider().Meter(meterName)
	return newInstrumentsFromMeter(meter)
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	stageDuration, _ := meter.Float64Histogram("loaneda.stage.duration",
		metric.WithDescription("Pipeline stage duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	rowsRemoved, _ := meter.Int64Counter("loaneda.rows.removed",
		metric.WithDescription("Rows filtered out by a stage"),
	)
	columnsDropped, _ := meter.Int64Counter("loaneda.columns.dropped",
		metric.WithDescription("Columns removed by a stage"),
	)
	softFailures, _ := meter.Int64Counter("loaneda.soft_failures",
		metric.WithDescription("Columns a stage skipped instead of failing"),
	)

	return &Instruments{
		StageDuration:  stageDuration,
		RowsRemoved:    rowsRemoved,
		ColumnsDropped: columnsDropped,
		SoftFailures:   softFailures,
	}
}

func stageAttr(stage string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("pipeline.stage", stage))
}

func (i *Instruments) RecordStageDuration(ctx context.Context, stage string, ms float64) {
	i.StageDuration.Record(ctx, ms, stageAttr(stage))
}

func (i *Instruments) AddRowsRemoved(ctx context.Context, stage string, n int) {
	if n > 0 {
		i.RowsRemoved.Add(ctx, int64(n), stageAttr(stage))
	}
}

func (i *Instruments) AddColumnsDropped(ctx context.Context, stage string, n int) {
	if n > 0 {
		i.ColumnsDropped.Add(ctx, int64(n), stageAttr(stage))
	}
}

func (i *Instruments) AddSoftFailures(ctx context.Context, stage string, n int) {
	if n > 0 {
		i.SoftFailures.Add(ctx, int64(n), stageAttr(stage))
	}
}
