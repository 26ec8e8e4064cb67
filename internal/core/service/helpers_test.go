package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustTable(t *testing.T, cols ...*domain.Column) *domain.Table {
	t.Helper()
	tbl, err := domain.NewTable(cols...)
	require.NoError(t, err)
	return tbl
}

func mustColumn(t *testing.T, tbl *domain.Table, name string) *domain.Column {
	t.Helper()
	c, err := tbl.Column(name)
	require.NoError(t, err)
	return c
}
