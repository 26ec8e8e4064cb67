package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/guillermoBallester/loaneda/internal/core/port"
	"github.com/guillermoBallester/loaneda/internal/plan"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Checkpoint file names inside the checkpoint directory.
const (
	TransformedCheckpoint = "loan_payments_transformed.csv"
	CleanedCheckpoint     = "loan_payments_cleaned.csv"
)

const previewRows = 5

type stageFunc func(*domain.Table) (*domain.Table, domain.StageReport, error)

// Pipeline drives a table from extraction through cleaning to metrics. Every
// stage is traced, timed, audited and logged.
type Pipeline struct {
	plan     *plan.Plan
	loader   port.SourceLoader
	store    port.CheckpointStore
	renderer port.Renderer
	reports  port.ReportWriter
	auditor  port.StageAuditor
	logger   *slog.Logger
	tracer   trace.Tracer
	inst     port.Instrumentation
	runID    string
}

func NewPipeline(p *plan.Plan, loader port.SourceLoader, store port.CheckpointStore, renderer port.Renderer, reports port.ReportWriter, auditor port.StageAuditor, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *Pipeline {
	if p == nil {
		p = plan.Default()
	}
	if renderer == nil {
		renderer = port.NoopRenderer{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	if auditor == nil {
		auditor = port.NoopAuditor{}
	}
	runID := uuid.NewString()
	return &Pipeline{
		plan:     p,
		loader:   loader,
		store:    store,
		renderer: renderer,
		reports:  reports,
		auditor:  auditor,
		logger:   logger.With(slog.String("run_id", runID)),
		tracer:   tracer,
		inst:     inst,
		runID:    runID,
	}
}

// RunID identifies this pipeline run in logs and audit entries.
func (p *Pipeline) RunID() string {
	return p.runID
}

// RunOptions locates the inputs and outputs of a full run.
type RunOptions struct {
	Relation      string
	CheckpointDir string
	ReportFile    string
}

// Run executes every step: extract, normalize, checkpoint, clean,
// checkpoint, metrics, report. Metrics are computed on the repaired table,
// before skew transforms rescale and correlation pruning removes the
// monetary columns they read.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) error {
	t, normalized, err := p.Extract(ctx, opts.Relation, opts.CheckpointDir)
	if err != nil {
		return err
	}

	quality := p.Profile(ctx, t)

	repaired, stages, err := p.Repair(ctx, t)
	if err != nil {
		return err
	}
	cleaned, refined, err := p.Refine(ctx, repaired)
	if err != nil {
		return err
	}
	stages = append(stages, refined...)
	if err := p.SaveCheckpoint(ctx, cleaned, filepath.Join(opts.CheckpointDir, CleanedCheckpoint)); err != nil {
		return err
	}

	metrics, err := p.Metrics(ctx, repaired)
	if err != nil {
		return err
	}

	return p.WriteReport(ctx, opts.ReportFile, port.Report{
		Quality: quality,
		Stages:  append([]domain.StageReport{normalized}, stages...),
		Metrics: &metrics,
	})
}

// Extract loads relation from the source, normalizes it, writes the
// pre-cleaning checkpoint and returns the table as re-read from that file.
func (p *Pipeline) Extract(ctx context.Context, relation, checkpointDir string) (*domain.Table, domain.StageReport, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.extract",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.collection.name", relation),
		),
	)
	defer span.End()

	start := time.Now()
	raw, err := p.loader.Extract(ctx, relation)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.StageReport{}, fmt.Errorf("extracting %s: %w", relation, err)
	}
	span.SetAttributes(attribute.Int("db.response.rows", raw.Rows()))
	p.logger.InfoContext(ctx, "relation extracted",
		slog.String("relation", relation),
		slog.Int("rows", raw.Rows()),
		slog.Int("columns", raw.Width()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	p.logTypes(ctx, "initial", raw)

	normalized, report, err := p.runStage(ctx, "normalize", raw, func(t *domain.Table) (*domain.Table, domain.StageReport, error) {
		return Normalize(t, p.plan.Normalize)
	})
	if err != nil {
		return nil, report, err
	}
	p.logTypes(ctx, "normalized", normalized)

	path := filepath.Join(checkpointDir, TransformedCheckpoint)
	if err := p.SaveCheckpoint(ctx, normalized, path); err != nil {
		return nil, report, err
	}
	reloaded, err := p.Load(ctx, path)
	if err != nil {
		return nil, report, err
	}
	p.logger.InfoContext(ctx, "checkpoint preview", slog.Any("rows", reloaded.Head(previewRows)))
	return reloaded, report, nil
}

// Load reads a checkpoint and marks the configured categorical columns that
// survived in it, since types are re-inferred from text on reload.
func (p *Pipeline) Load(ctx context.Context, path string) (*domain.Table, error) {
	t, err := p.store.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	var present []string
	for _, name := range p.plan.Normalize.Categorical {
		if t.Has(name) {
			present = append(present, name)
		}
	}
	t, _, err = ToCategorical(t, present)
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "checkpoint loaded",
		slog.String("path", path),
		slog.Int("rows", t.Rows()),
		slog.Int("columns", t.Width()),
	)
	return t, nil
}

// SaveCheckpoint writes t to path.
func (p *Pipeline) SaveCheckpoint(ctx context.Context, t *domain.Table, path string) error {
	if err := p.store.Save(t, path); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	p.logger.InfoContext(ctx, "checkpoint saved", slog.String("path", path), slog.Int("rows", t.Rows()))
	return nil
}

// Profile logs and returns the quality report of t.
func (p *Pipeline) Profile(ctx context.Context, t *domain.Table) port.QualityReport {
	_, span := p.tracer.Start(ctx, "pipeline.profile")
	defer span.End()

	q := Profile(t)
	for _, s := range q.Stats {
		attrs := []any{slog.String("column", s.Name), slog.Float64("mean", s.Mean), slog.Float64("median", s.Median)}
		if s.Mode != nil {
			attrs = append(attrs, slog.Float64("mode", *s.Mode))
		}
		p.logger.DebugContext(ctx, "column statistics", attrs...)
	}
	for _, d := range q.Distinct {
		p.logger.DebugContext(ctx, "distinct labels",
			slog.String("column", d.Name),
			slog.Int("count", len(d.Labels)),
			slog.String("cardinality", string(d.Cardinality)),
		)
	}
	p.logNulls(ctx, q.Nulls)
	p.logger.InfoContext(ctx, "table profiled", slog.Int("rows", q.Rows), slog.Int("columns", len(q.Types)))
	return q
}

// Clean runs every cleaning stage in order.
func (p *Pipeline) Clean(ctx context.Context, t *domain.Table) (*domain.Table, []domain.StageReport, error) {
	repaired, reports, err := p.Repair(ctx, t)
	if err != nil {
		return nil, reports, err
	}
	cleaned, refined, err := p.Refine(ctx, repaired)
	return cleaned, append(reports, refined...), err
}

// Repair drops mostly-null columns and imputes the remaining nulls.
func (p *Pipeline) Repair(ctx context.Context, t *domain.Table) (*domain.Table, []domain.StageReport, error) {
	c := p.plan.Cleaning
	s := &stages{p: p, t: t}

	p.render(ctx, "nulls_before", func() error { return p.renderer.NullPercentages("nulls_before", CountNulls(s.t)) })
	if err := s.run(ctx, "drop_null_columns", func(t *domain.Table) (*domain.Table, domain.StageReport, error) {
		return DropNullColumns(t, c.NullThreshold)
	}); err != nil {
		return nil, s.reports, err
	}
	if err := s.run(ctx, "impute", ImputeMissing); err != nil {
		return nil, s.reports, err
	}
	p.render(ctx, "nulls_after", func() error { return p.renderer.NullPercentages("nulls_after", CountNulls(s.t)) })
	p.logNulls(ctx, CountNulls(s.t))

	return s.t, s.reports, nil
}

// Refine reduces skew, filters outliers and prunes correlated columns,
// charting the table before and after each stage.
func (p *Pipeline) Refine(ctx context.Context, t *domain.Table) (*domain.Table, []domain.StageReport, error) {
	c := p.plan.Cleaning
	s := &stages{p: p, t: t}

	p.renderColumns(ctx, s.t, "dist_before_", p.renderer.Distribution)
	for _, sc := range IdentifySkewedColumns(s.t, c.SkewThreshold) {
		p.logger.InfoContext(ctx, "skewed column", slog.String("column", sc.Name), slog.Float64("skewness", sc.Skewness))
	}
	if err := s.run(ctx, "skew", func(t *domain.Table) (*domain.Table, domain.StageReport, error) {
		return TransformSkewedColumns(t, c.SkewThreshold)
	}); err != nil {
		return nil, s.reports, err
	}
	p.renderColumns(ctx, s.t, "dist_after_", p.renderer.Distribution)

	p.renderColumns(ctx, s.t, "box_before_", p.renderer.BoxPlot)
	if err := s.run(ctx, "outliers", func(t *domain.Table) (*domain.Table, domain.StageReport, error) {
		return RemoveOutliersAll(t, c.OutlierColumns)
	}); err != nil {
		return nil, s.reports, err
	}
	p.renderColumns(ctx, s.t, "box_after_", p.renderer.BoxPlot)
	p.renderColumns(ctx, s.t, "scatter_", p.renderer.Scatter)

	p.render(ctx, "correlation_before", func() error {
		return p.renderer.CorrelationMatrix("correlation_before", CorrelationMatrix(s.t))
	})
	if err := s.run(ctx, "correlation", func(t *domain.Table) (*domain.Table, domain.StageReport, error) {
		return RemoveHighlyCorrelatedColumns(t, c.CorrelationThreshold)
	}); err != nil {
		return nil, s.reports, err
	}
	p.render(ctx, "correlation_after", func() error {
		return p.renderer.CorrelationMatrix("correlation_after", CorrelationMatrix(s.t))
	})

	return s.t, s.reports, nil
}

// stages threads a table through consecutive runStage calls.
type stages struct {
	p       *Pipeline
	t       *domain.Table
	reports []domain.StageReport
}

func (s *stages) run(ctx context.Context, name string, fn stageFunc) error {
	out, r, err := s.p.runStage(ctx, name, s.t, fn)
	s.reports = append(s.reports, r)
	if err != nil {
		return err
	}
	s.t = out
	if s.p.logger.Enabled(ctx, slog.LevelDebug) {
		s.p.Profile(ctx, s.t)
	}
	return nil
}

// Metrics computes the business metrics of a cleaned table and charts them.
func (p *Pipeline) Metrics(ctx context.Context, t *domain.Table) (port.MetricsReport, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.metrics")
	defer span.End()

	m, err := ComputeMetrics(t, p.plan.Metrics)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return m, fmt.Errorf("computing metrics: %w", err)
	}

	if m.Recovery.Available {
		p.logger.InfoContext(ctx, "loan recovery",
			slog.Int("loans", m.Recovery.Loans),
			slog.Float64("current_pct", m.Recovery.Current.Total),
			slog.Float64("current_investor_pct", m.Recovery.Current.Investor),
			slog.Float64("projected_pct", m.Recovery.Projected.Total),
			slog.Float64("projected_investor_pct", m.Recovery.Projected.Investor),
			slog.Int("projection_months", m.Recovery.ProjectionMonths),
		)
		p.render(ctx, "recovery", func() error { return p.renderer.Recovery("recovery", m.Recovery) })
	} else {
		p.logger.WarnContext(ctx, "no loan passes the funded amount filter, recovery unavailable")
	}
	p.logger.InfoContext(ctx, "charged off loans",
		slog.Int("count", m.ChargedOff.Count),
		slog.Float64("pct", m.ChargedOff.Percentage),
		slog.String("total_paid", m.ChargedOff.TotalPaid.StringFixed(2)),
		slog.String("projected_loss", m.ChargedOff.ProjectedLoss.StringFixed(2)),
	)
	p.logger.InfoContext(ctx, "at risk loans",
		slog.Int("count", m.AtRisk.Count),
		slog.Float64("pct", m.AtRisk.Percentage),
		slog.String("loss_if_charged_off", m.AtRisk.LossIfChargedOff.StringFixed(2)),
		slog.String("loss_if_full_term", m.AtRisk.LossIfFullTerm.StringFixed(2)),
	)
	for _, s := range m.Segments {
		p.render(ctx, "segment_"+s.Column, func() error { return p.renderer.Segments("segment_"+s.Column, s) })
	}
	return m, nil
}

// WriteReport persists the run report. An empty path or a nil writer skips it.
func (p *Pipeline) WriteReport(ctx context.Context, path string, r port.Report) error {
	if path == "" || p.reports == nil {
		return nil
	}
	if err := p.reports.Write(path, r); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	p.logger.InfoContext(ctx, "report written", slog.String("path", path))
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, name string, t *domain.Table, fn stageFunc) (*domain.Table, domain.StageReport, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.stage",
		trace.WithAttributes(
			attribute.String("pipeline.stage", name),
			attribute.Int("pipeline.rows_in", t.Rows()),
			attribute.Int("pipeline.columns_in", t.Width()),
		),
	)
	defer span.End()

	start := time.Now()
	out, report, err := fn(t)
	durationMS := time.Since(start).Milliseconds()
	report.Stage = name

	p.inst.RecordStageDuration(ctx, name, float64(durationMS))
	p.auditor.Record(ctx, port.AuditEntry{
		RunID:      p.runID,
		Report:     report,
		DurationMS: durationMS,
		Err:        err,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.ErrorContext(ctx, "stage failed", slog.String("stage", name), slog.String("error", err.Error()))
		return nil, report, fmt.Errorf("%s: %w", name, err)
	}

	p.inst.AddRowsRemoved(ctx, name, report.RowsRemoved())
	p.inst.AddColumnsDropped(ctx, name, len(report.Dropped))
	p.inst.AddSoftFailures(ctx, name, report.SkippedCount())
	span.SetAttributes(
		attribute.Int("pipeline.rows_out", out.Rows()),
		attribute.Int("pipeline.columns_out", out.Width()),
		attribute.Int("pipeline.skipped", report.SkippedCount()),
	)

	for _, res := range report.Results {
		if res.Status == domain.StatusSkipped {
			p.logger.WarnContext(ctx, "column skipped",
				slog.String("stage", name),
				slog.String("column", res.Column),
				slog.String("reason", res.Reason),
			)
			continue
		}
		p.logger.InfoContext(ctx, "column transformed",
			slog.String("stage", name),
			slog.String("column", res.Column),
			slog.String("method", res.Method),
			slog.Int("affected", res.Affected),
		)
	}
	if len(report.Dropped) > 0 {
		p.logger.InfoContext(ctx, "columns dropped", slog.String("stage", name), slog.Any("columns", report.Dropped))
	}
	p.logger.InfoContext(ctx, "stage complete",
		slog.String("stage", name),
		slog.Int("rows_before", report.RowsBefore),
		slog.Int("rows_after", report.RowsAfter),
		slog.Int64("duration_ms", durationMS),
	)
	return out, report, nil
}

// render logs chart failures; charts never stop the pipeline.
func (p *Pipeline) render(ctx context.Context, chart string, fn func() error) {
	if err := fn(); err != nil {
		p.logger.WarnContext(ctx, "chart not rendered", slog.String("chart", chart), slog.String("error", err.Error()))
	}
}

func (p *Pipeline) renderColumns(ctx context.Context, t *domain.Table, prefix string, fn func(string, *domain.Column) error) {
	for _, c := range t.NumericColumns() {
		p.render(ctx, prefix+c.Name, func() error { return fn(prefix+c.Name, c) })
	}
}

func (p *Pipeline) logTypes(ctx context.Context, phase string, t *domain.Table) {
	for _, ti := range DescribeTypes(t) {
		p.logger.DebugContext(ctx, "column type", slog.String("phase", phase), slog.String("column", ti.Name), slog.String("type", string(ti.Type)))
	}
}

func (p *Pipeline) logNulls(ctx context.Context, nulls []port.NullCount) {
	for _, n := range nulls {
		if n.Count == 0 {
			continue
		}
		p.logger.InfoContext(ctx, "null values",
			slog.String("column", n.Name),
			slog.Int("count", n.Count),
			slog.Float64("pct", n.Percentage),
		)
	}
}
