package port

import "context"

// Instrumentation records pipeline metrics per stage.
type Instrumentation interface {
	RecordStageDuration(ctx context.Context, stage string, ms float64)
	AddRowsRemoved(ctx context.Context, stage string, n int)
	AddColumnsDropped(ctx context.Context, stage string, n int)
	AddSoftFailures(ctx context.Context, stage string, n int)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) RecordStageDuration(context.Context, string, float64) {}
func (NoopInstrumentation) AddRowsRemoved(context.Context, string, int)          {}
func (NoopInstrumentation) AddColumnsDropped(context.Context, string, int)       {}
func (NoopInstrumentation) AddSoftFailures(context.Context, string, int)         {}
