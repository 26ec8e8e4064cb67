package port

import "github.com/guillermoBallester/loaneda/internal/core/domain"

// Renderer produces diagnostic charts. Nothing it returns feeds back into
// the cleaning stages.
type Renderer interface {
	NullPercentages(name string, nulls []NullCount) error
	Distribution(name string, col *domain.Column) error
	BoxPlot(name string, col *domain.Column) error
	Scatter(name string, col *domain.Column) error
	CorrelationMatrix(name string, m CorrelationMatrix) error
	Recovery(name string, r RecoveryReport) error
	Segments(name string, s SegmentBreakdown) error
}

// NoopRenderer draws nothing.
type NoopRenderer struct{}

func (NoopRenderer) NullPercentages(string, []NullCount) error         { return nil }
func (NoopRenderer) Distribution(string, *domain.Column) error         { return nil }
func (NoopRenderer) BoxPlot(string, *domain.Column) error              { return nil }
func (NoopRenderer) Scatter(string, *domain.Column) error              { return nil }
func (NoopRenderer) CorrelationMatrix(string, CorrelationMatrix) error { return nil }
func (NoopRenderer) Recovery(string, RecoveryReport) error             { return nil }
func (NoopRenderer) Segments(string, SegmentBreakdown) error           { return nil }

// Report is everything written to a workbook at the end of a run.
type Report struct {
	Quality QualityReport
	Stages  []domain.StageReport
	Metrics *MetricsReport
}

// ReportWriter persists a Report.
type ReportWriter interface {
	Write(path string, r Report) error
}
