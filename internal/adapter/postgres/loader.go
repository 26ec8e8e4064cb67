package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// Loader extracts whole relations. Each call opens its own connection and
// closes it before returning.
type Loader struct {
	databaseURL  string
	validator    *domain.ExtractionValidator
	queryTimeout time.Duration
}

func NewLoader(databaseURL string, queryTimeout time.Duration) *Loader {
	return &Loader{
		databaseURL:  databaseURL,
		validator:    domain.NewExtractionValidator(),
		queryTimeout: queryTimeout,
	}
}

// Extract reads every row of relation in a read-only transaction.
func (l *Loader) Extract(ctx context.Context, relation string) (*domain.Table, error) {
	sql := "SELECT * FROM " + quoteRelation(relation)
	if err := l.validator.Validate(sql); err != nil {
		return nil, fmt.Errorf("validating extraction query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	conn, err := Connect(ctx, l.databaseURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close(context.Background()) }()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL scopes the timeout to this transaction.
	timeoutMS := l.queryTimeout.Milliseconds()
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%d'", timeoutMS)); err != nil {
		return nil, fmt.Errorf("setting statement timeout: %w", err)
	}

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	table, err := rowsToTable(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return table, nil
}
