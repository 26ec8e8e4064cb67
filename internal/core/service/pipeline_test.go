package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/guillermoBallester/loaneda/internal/core/port"
	"github.com/guillermoBallester/loaneda/internal/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// --- fakes ---

type fakeLoader struct {
	table    *domain.Table
	err      error
	relation string
}

func (f *fakeLoader) Extract(_ context.Context, relation string) (*domain.Table, error) {
	f.relation = relation
	if f.err != nil {
		return nil, f.err
	}
	return f.table.Clone(), nil
}

// memoryStore mimics a text checkpoint: categorical columns come back as text.
type memoryStore struct {
	files map[string]*domain.Table
}

func newMemoryStore() *memoryStore {
	return &memoryStore{files: make(map[string]*domain.Table)}
}

func (m *memoryStore) Save(t *domain.Table, path string) error {
	m.files[path] = t.Clone()
	return nil
}

func (m *memoryStore) Load(path string) (*domain.Table, error) {
	t, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, domain.ErrNotFound)
	}
	out := t.Clone()
	for _, c := range out.Columns() {
		if c.Type == domain.TypeCategorical {
			c.Type = domain.TypeText
			if err := out.Replace(c); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

type recordingRenderer struct {
	port.NoopRenderer
	charts []string
}

func (r *recordingRenderer) NullPercentages(name string, _ []port.NullCount) error {
	r.charts = append(r.charts, name)
	return nil
}

func (r *recordingRenderer) Distribution(name string, _ *domain.Column) error {
	r.charts = append(r.charts, name)
	return errors.New("disk full")
}

func (r *recordingRenderer) CorrelationMatrix(name string, _ port.CorrelationMatrix) error {
	r.charts = append(r.charts, name)
	return nil
}

func (r *recordingRenderer) Recovery(name string, _ port.RecoveryReport) error {
	r.charts = append(r.charts, name)
	return nil
}

func (r *recordingRenderer) Segments(name string, _ port.SegmentBreakdown) error {
	r.charts = append(r.charts, name)
	return nil
}

type recordingAuditor struct {
	entries []port.AuditEntry
}

func (a *recordingAuditor) Record(_ context.Context, e port.AuditEntry) {
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) Close() error { return nil }

type recordingWriter struct {
	path   string
	report port.Report
}

func (w *recordingWriter) Write(path string, r port.Report) error {
	w.path = path
	w.report = r
	return nil
}

type countingInstrumentation struct {
	port.NoopInstrumentation
	dropped int
	removed int
}

func (c *countingInstrumentation) AddColumnsDropped(_ context.Context, _ string, n int) {
	c.dropped += n
}

func (c *countingInstrumentation) AddRowsRemoved(_ context.Context, _ string, n int) {
	c.removed += n
}

// --- fixtures ---

func rawLoans(t *testing.T) *domain.Table {
	return mustTable(t,
		domain.NewNumericColumn("id", []float64{1, 2, 3, 4, 5, 6, 7, 8}, nil),
		domain.NewTextColumn("term", []string{"36 months", "60 months", "36 months", "36 months", "60 months", "36 months", "", "36 months"},
			nullsAt(8, 6)),
		domain.NewTextColumn("issue_date", []string{"Jan-2021", "Feb-2021", "Mar-2020", "bad", "Jan-2019", "Dec-2020", "Jul-2021", "Aug-2021"}, nil),
		domain.NewTextColumn("grade", []string{"A", "B", "C", "B", "A", "C", "B", "A"}, nil),
		domain.NewTextColumn("loan_status", []string{"Charged Off", "Fully Paid", "Current", "Late (16-30 days)", "Fully Paid", "Charged Off", "Current", "In Grace Period"}, nil),
		domain.NewNumericColumn("funded_amount", []float64{1000, 2000, 1500, 1200, 800, 2500, 3000, 1800}, nil),
		domain.NewNumericColumn("funded_amount_inv", []float64{1000, 1950, 1500, 1200, 800, 2500, 2975, 1800}, nil),
		domain.NewNumericColumn("total_payment", []float64{300, 2100, 900, 400, 820, 700, 1500, 600}, nil),
		domain.NewNumericColumn("instalment", []float64{30, 45, 45, 36, 18, 75, 65, 54}, nil),
		domain.NewNumericColumn("mostly_null", make([]float64, 8), nullsAt(8, 0, 1, 2, 3, 4, 5)),
	)
}

func testPlan() *plan.Plan {
	p := plan.Default()
	p.Normalize = plan.NormalizeSpec{
		MixedToInt:  []string{"term"},
		Dates:       []plan.DateSpec{{Column: "issue_date", Layout: plan.DefaultDateLayout}},
		Categorical: []string{"grade", "loan_status"},
	}
	p.Metrics.Segments = []plan.SegmentSpec{{Column: "grade", Order: plan.OrderByLabel}}
	return p
}

// --- tests ---

func TestPipeline_Run(t *testing.T) {
	loader := &fakeLoader{table: rawLoans(t)}
	store := newMemoryStore()
	renderer := &recordingRenderer{}
	auditor := &recordingAuditor{}
	writer := &recordingWriter{}
	inst := &countingInstrumentation{}

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	p := NewPipeline(testPlan(), loader, store, renderer, writer, auditor, testLogger(), tp.Tracer("test"), inst)
	dir := t.TempDir()
	err := p.Run(context.Background(), RunOptions{
		Relation:      "loan_payments",
		CheckpointDir: dir,
		ReportFile:    filepath.Join(dir, "report.xlsx"),
	})
	require.NoError(t, err)
	assert.Equal(t, "loan_payments", loader.relation)

	// Checkpoints.
	require.Contains(t, store.files, filepath.Join(dir, TransformedCheckpoint))
	require.Contains(t, store.files, filepath.Join(dir, CleanedCheckpoint))
	cleaned := store.files[filepath.Join(dir, CleanedCheckpoint)]
	assert.False(t, cleaned.Has("mostly_null"))
	for _, nc := range CountNulls(cleaned) {
		assert.Zero(t, nc.Count, nc.Name)
	}

	// Stage reports and audit trail.
	var stages []string
	for _, r := range writer.report.Stages {
		stages = append(stages, r.Stage)
	}
	assert.Equal(t, []string{"normalize", "drop_null_columns", "impute", "skew", "outliers", "correlation"}, stages)
	require.Len(t, auditor.entries, 6)
	for _, e := range auditor.entries {
		assert.Equal(t, p.RunID(), e.RunID)
		assert.NoError(t, e.Err)
	}
	assert.GreaterOrEqual(t, inst.dropped, 1)

	// Metrics read the repaired table, which keeps every loan.
	require.NotNil(t, writer.report.Metrics)
	assert.Equal(t, 2, writer.report.Metrics.ChargedOff.Count)
	assert.Equal(t, 2, writer.report.Metrics.AtRisk.Count)
	assert.True(t, writer.report.Metrics.Recovery.Available)
	assert.Equal(t, filepath.Join(dir, "report.xlsx"), writer.path)
	assert.Equal(t, 8, writer.report.Quality.Rows)

	// Charts are best effort: failing distribution charts do not stop the run.
	assert.Contains(t, renderer.charts, "nulls_before")
	assert.Contains(t, renderer.charts, "dist_before_funded_amount")
	assert.Contains(t, renderer.charts, "correlation_after")
	assert.Contains(t, renderer.charts, "recovery")
	assert.Contains(t, renderer.charts, "segment_grade")

	stageSpans := 0
	for _, s := range exporter.GetSpans() {
		if s.Name == "pipeline.stage" {
			stageSpans++
		}
	}
	assert.Equal(t, 6, stageSpans)
}

func TestPipeline_CleanProfilesEachStageAtDebug(t *testing.T) {
	normalized, _, err := Normalize(rawLoans(t), testPlan().Normalize)
	require.NoError(t, err)

	tests := []struct {
		name  string
		level slog.Level
		want  int
	}{
		{"debug", slog.LevelDebug, 5},
		{"info", slog.LevelInfo, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: tt.level}))
			p := NewPipeline(testPlan(), nil, nil, nil, nil, nil, logger, nil, nil)

			_, reports, err := p.Clean(context.Background(), normalized)
			require.NoError(t, err)
			require.Len(t, reports, 5)
			assert.Equal(t, tt.want, bytes.Count(buf.Bytes(), []byte(`"msg":"table profiled"`)))
		})
	}
}

func TestPipeline_ExtractReappliesCategories(t *testing.T) {
	store := newMemoryStore()
	p := NewPipeline(testPlan(), &fakeLoader{table: rawLoans(t)}, store, nil, nil, &recordingAuditor{}, testLogger(), nil, nil)

	tbl, report, err := p.Extract(context.Background(), "loan_payments", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "normalize", report.Stage)

	assert.Equal(t, domain.TypeCategorical, mustColumn(t, tbl, "grade").Type)
	assert.Equal(t, domain.TypeNumeric, mustColumn(t, tbl, "term").Type)
	issue := mustColumn(t, tbl, "issue_date")
	assert.True(t, issue.IsNull(3))
}

func TestPipeline_ExtractFailure(t *testing.T) {
	auditor := &recordingAuditor{}
	loader := &fakeLoader{err: errors.New("connection refused")}
	p := NewPipeline(testPlan(), loader, newMemoryStore(), nil, nil, auditor, testLogger(), nil, nil)

	err := p.Run(context.Background(), RunOptions{Relation: "loan_payments", CheckpointDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, auditor.entries)
}

func TestPipeline_StageErrorIsAudited(t *testing.T) {
	pl := testPlan()
	pl.Normalize.Categorical = append(pl.Normalize.Categorical, "no_such_column")
	auditor := &recordingAuditor{}
	p := NewPipeline(pl, &fakeLoader{table: rawLoans(t)}, newMemoryStore(), nil, nil, auditor, testLogger(), nil, nil)

	_, _, err := p.Extract(context.Background(), "loan_payments", t.TempDir())
	require.ErrorIs(t, err, domain.ErrColumnNotFound)
	require.Len(t, auditor.entries, 1)
	assert.ErrorIs(t, auditor.entries[0].Err, domain.ErrColumnNotFound)
	assert.Equal(t, "normalize", auditor.entries[0].Report.Stage)
}

func TestPipeline_LoadMissingCheckpoint(t *testing.T) {
	p := NewPipeline(testPlan(), nil, newMemoryStore(), nil, nil, &recordingAuditor{}, testLogger(), nil, nil)
	_, err := p.Load(context.Background(), "nowhere.csv")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPipeline_WriteReportSkippedWithoutPath(t *testing.T) {
	writer := &recordingWriter{}
	p := NewPipeline(testPlan(), nil, nil, nil, writer, &recordingAuditor{}, testLogger(), nil, nil)
	require.NoError(t, p.WriteReport(context.Background(), "", port.Report{}))
	assert.Empty(t, writer.path)
}
