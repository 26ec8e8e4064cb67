package port

import (
	"context"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
)

// SourceLoader extracts a full relation into memory in one shot.
type SourceLoader interface {
	Extract(ctx context.Context, relation string) (*domain.Table, error)
}

// CheckpointStore persists tables as flat files and reads them back with
// freshly inferred column types.
type CheckpointStore interface {
	Save(t *domain.Table, path string) error
	Load(path string) (*domain.Table, error)
}
