package domain

// Status is the outcome of a stage for one column.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
)

// ColumnResult records what a stage did to a single column. Skipped results
// carry the reason the column was left unchanged.
type ColumnResult struct {
	Column   string `json:"column"`
	Status   Status `json:"status"`
	Method   string `json:"method,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Affected int    `json:"affected,omitempty"`
}

// Applied builds a successful result.
func Applied(column, method string, affected int) ColumnResult {
	return ColumnResult{Column: column, Status: StatusApplied, Method: method, Affected: affected}
}

// Skipped builds a soft-failure result.
func Skipped(column, reason string) ColumnResult {
	return ColumnResult{Column: column, Status: StatusSkipped, Reason: reason}
}

// StageReport aggregates the per-column results of one pipeline stage.
type StageReport struct {
	Stage      string         `json:"stage"`
	RowsBefore int            `json:"rows_before"`
	RowsAfter  int            `json:"rows_after"`
	Dropped    []string       `json:"dropped,omitempty"`
	Results    []ColumnResult `json:"results,omitempty"`
}

// NewStageReport starts a report for a stage run over t.
func NewStageReport(stage string, t *Table) StageReport {
	return StageReport{Stage: stage, RowsBefore: t.Rows(), RowsAfter: t.Rows()}
}

// Add appends a column result.
func (r *StageReport) Add(res ColumnResult) {
	r.Results = append(r.Results, res)
}

// Merge folds another report's results and drops into r.
func (r *StageReport) Merge(other StageReport) {
	r.Results = append(r.Results, other.Results...)
	r.Dropped = append(r.Dropped, other.Dropped...)
	r.RowsAfter = other.RowsAfter
}

// SkippedCount returns the number of soft failures.
func (r StageReport) SkippedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusSkipped {
			n++
		}
	}
	return n
}

// RowsRemoved returns how many rows the stage filtered out.
func (r StageReport) RowsRemoved() int {
	return r.RowsBefore - r.RowsAfter
}
