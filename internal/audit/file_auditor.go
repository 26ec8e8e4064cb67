package audit

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/guillermoBallester/loaneda/internal/core/port"
)

// fileEntry is the NDJSON-serializable form of an audit record.
type fileEntry struct {
	Timestamp  string                `json:"ts"`
	RunID      string                `json:"run_id"`
	Stage      string                `json:"stage"`
	RowsBefore int                   `json:"rows_before"`
	RowsAfter  int                   `json:"rows_after"`
	Dropped    []string              `json:"dropped,omitempty"`
	Results    []domain.ColumnResult `json:"results,omitempty"`
	Skipped    int                   `json:"skipped"`
	DurationMS int64                 `json:"duration_ms"`
	Error      *string               `json:"error"`
}

// FileAuditor writes audit entries as NDJSON (one JSON object per line) to a file.
type FileAuditor struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileAuditor opens (or creates) the file at path for append-only writing.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileAuditor{
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

func (a *FileAuditor) Record(_ context.Context, entry port.AuditEntry) {
	r := entry.Report
	fe := fileEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RunID:      entry.RunID,
		Stage:      r.Stage,
		RowsBefore: r.RowsBefore,
		RowsAfter:  r.RowsAfter,
		Dropped:    r.Dropped,
		Results:    r.Results,
		Skipped:    r.SkippedCount(),
		DurationMS: entry.DurationMS,
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		fe.Error = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(fe) // best-effort; an audit write never fails a stage
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
