package port

import (
	"context"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
)

// AuditEntry represents one completed pipeline stage.
type AuditEntry struct {
	RunID      string
	Report     domain.StageReport
	DurationMS int64
	Err        error
}

// StageAuditor records stage audit events.
type StageAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, AuditEntry) {}
func (NoopAuditor) Close() error                       { return nil }
