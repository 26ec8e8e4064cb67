package domain

import (
	"errors"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrNotAllowed     = errors.New("only plain SELECT queries may be used for extraction")
	ErrMultiStatement = errors.New("multiple statements are not allowed")
	ErrParseFailed    = errors.New("failed to parse SQL")
	ErrNotFound       = errors.New("not found")
)

// ExtractionValidator checks extraction SQL with PostgreSQL's own parser.
// Only a single side-effect-free SELECT is accepted.
type ExtractionValidator struct{}

func NewExtractionValidator() *ExtractionValidator {
	return &ExtractionValidator{}
}

// Validate rejects anything other than one SELECT without INTO or row locks.
func (v *ExtractionValidator) Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ErrEmptyQuery
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	switch len(tree.Stmts) {
	case 0:
		return ErrEmptyQuery
	case 1:
	default:
		return ErrMultiStatement
	}

	stmt := tree.Stmts[0].Stmt
	if stmt == nil {
		return ErrEmptyQuery
	}

	sel, ok := stmt.Node.(*pg_query.Node_SelectStmt)
	if !ok {
		return ErrNotAllowed
	}
	// SELECT ... INTO creates a table; FOR UPDATE takes row locks.
	if sel.SelectStmt.GetIntoClause() != nil || len(sel.SelectStmt.GetLockingClause()) > 0 {
		return ErrNotAllowed
	}
	return nil
}
