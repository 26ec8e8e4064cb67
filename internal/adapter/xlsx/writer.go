package xlsx

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/guillermoBallester/loaneda/internal/core/port"
	"github.com/xuri/excelize/v2"
)

const (
	sheetQuality  = "Quality"
	sheetStages   = "Stages"
	sheetMetrics  = "Metrics"
	sheetSegments = "Segments"
)

// Writer renders a run report as an Excel workbook.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Write replaces any workbook at path.
func (w *Writer) Write(path string, r port.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetQuality); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	s := &sheetWriter{f: f, header: bold}
	s.quality(r.Quality)
	s.stages(r)
	if r.Metrics != nil {
		s.metrics(*r.Metrics)
		s.segments(r.Metrics.Segments)
	}
	if s.err != nil {
		return s.err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (s *sheetWriter) sheet(name string) {
	if s.err != nil || name == sheetQuality {
		return
	}
	if _, err := s.f.NewSheet(name); err != nil {
		s.err = fmt.Errorf("creating sheet %s: %w", name, err)
	}
}

func (s *sheetWriter) row(sheet string, n int, values ...any) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		s.err = err
		return
	}
	if err := s.f.SetSheetRow(sheet, cell, &values); err != nil {
		s.err = fmt.Errorf("writing %s row %d: %w", sheet, n, err)
	}
}

func (s *sheetWriter) headerRow(sheet string, values ...any) {
	s.row(sheet, 1, values...)
	if s.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(values), 1)
	if err != nil {
		s.err = err
		return
	}
	if err := s.f.SetCellStyle(sheet, "A1", last, s.header); err != nil {
		s.err = fmt.Errorf("styling %s header: %w", sheet, err)
	}
}

func (s *sheetWriter) quality(q port.QualityReport) {
	s.headerRow(sheetQuality, "column", "type", "nulls", "null_pct", "zero_pct", "mean", "median", "mode", "distinct", "cardinality")

	stats := make(map[string]port.ColumnStats, len(q.Stats))
	for _, st := range q.Stats {
		stats[st.Name] = st
	}
	zeros := make(map[string]float64, len(q.Zeros))
	for _, z := range q.Zeros {
		zeros[z.Name] = z.Percentage
	}
	distinct := make(map[string]port.DistinctLabels, len(q.Distinct))
	for _, d := range q.Distinct {
		distinct[d.Name] = d
	}

	for i, ti := range q.Types {
		values := []any{ti.Name, string(ti.Type), nil, nil, nil, nil, nil, nil, nil, nil}
		if i < len(q.Nulls) && q.Nulls[i].Name == ti.Name {
			values[2] = q.Nulls[i].Count
			values[3] = q.Nulls[i].Percentage
		}
		if z, ok := zeros[ti.Name]; ok {
			values[4] = z
		}
		if st, ok := stats[ti.Name]; ok {
			values[5] = st.Mean
			values[6] = st.Median
			if st.Mode != nil {
				values[7] = *st.Mode
			}
		}
		if d, ok := distinct[ti.Name]; ok {
			values[8] = len(d.Labels)
			values[9] = string(d.Cardinality)
		}
		s.row(sheetQuality, i+2, values...)
	}
}

func (s *sheetWriter) stages(r port.Report) {
	s.sheet(sheetStages)
	s.headerRow(sheetStages, "stage", "rows_before", "rows_after", "column", "status", "method", "reason", "affected")

	n := 2
	for _, st := range r.Stages {
		if len(st.Results) == 0 {
			s.row(sheetStages, n, st.Stage, st.RowsBefore, st.RowsAfter)
			n++
			continue
		}
		for _, res := range st.Results {
			s.row(sheetStages, n, st.Stage, st.RowsBefore, st.RowsAfter, res.Column, string(res.Status), res.Method, res.Reason, res.Affected)
			n++
		}
	}
}

func (s *sheetWriter) metrics(m port.MetricsReport) {
	s.sheet(sheetMetrics)
	s.headerRow(sheetMetrics, "metric", "value")

	rows := [][]any{
		{"recovery_available", m.Recovery.Available},
		{"recovery_loans", m.Recovery.Loans},
		{"recovery_current_pct", m.Recovery.Current.Total},
		{"recovery_current_investor_pct", m.Recovery.Current.Investor},
		{"recovery_projected_pct", m.Recovery.Projected.Total},
		{"recovery_projected_investor_pct", m.Recovery.Projected.Investor},
		{"recovery_projection_months", m.Recovery.ProjectionMonths},
		{"charged_off_count", m.ChargedOff.Count},
		{"charged_off_pct", m.ChargedOff.Percentage},
		{"charged_off_total_paid", m.ChargedOff.TotalPaid.InexactFloat64()},
		{"charged_off_projected_loss", m.ChargedOff.ProjectedLoss.InexactFloat64()},
		{"at_risk_count", m.AtRisk.Count},
		{"at_risk_pct", m.AtRisk.Percentage},
		{"at_risk_total_paid", m.AtRisk.TotalPaid.InexactFloat64()},
		{"at_risk_projected_revenue", m.AtRisk.ProjectedRevenue.InexactFloat64()},
		{"at_risk_loss_if_charged_off", m.AtRisk.LossIfChargedOff.InexactFloat64()},
		{"at_risk_loss_if_full_term", m.AtRisk.LossIfFullTerm.InexactFloat64()},
	}
	for i, r := range rows {
		s.row(sheetMetrics, i+2, r...)
	}
}

func (s *sheetWriter) segments(segs []port.SegmentBreakdown) {
	if len(segs) == 0 {
		return
	}
	s.sheet(sheetSegments)
	s.headerRow(sheetSegments, "column", "label", "charged_off", "at_risk")

	n := 2
	for _, seg := range segs {
		for i, lc := range seg.ChargedOff {
			atRisk := 0
			if i < len(seg.AtRisk) {
				atRisk = seg.AtRisk[i].Count
			}
			s.row(sheetSegments, n, seg.Column, lc.Label, lc.Count, atRisk)
			n++
		}
	}
}
