package postgres

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// columnType maps a PostgreSQL type OID to a column type. Anything that is
// neither a number nor a date is read as text.
func columnType(oid uint32) domain.ColumnType {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID,
		pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return domain.TypeNumeric
	case pgtype.DateOID, pgtype.TimestampOID, pgtype.TimestamptzOID:
		return domain.TypeDatetime
	default:
		return domain.TypeText
	}
}

// columnBuilder accumulates one result column.
type columnBuilder struct {
	name    string
	typ     domain.ColumnType
	numbers []float64
	strings []string
	times   []time.Time
	nulls   []bool
}

func (b *columnBuilder) append(v any) error {
	if v == nil {
		b.nulls = append(b.nulls, true)
		switch b.typ {
		case domain.TypeNumeric:
			b.numbers = append(b.numbers, 0)
		case domain.TypeDatetime:
			b.times = append(b.times, time.Time{})
		default:
			b.strings = append(b.strings, "")
		}
		return nil
	}

	switch b.typ {
	case domain.TypeNumeric:
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("column %q: %w", b.name, err)
		}
		b.numbers = append(b.numbers, f)
	case domain.TypeDatetime:
		ts, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("column %q: unexpected %T for a date", b.name, v)
		}
		b.times = append(b.times, ts)
	default:
		b.strings = append(b.strings, toText(v))
	}
	b.nulls = append(b.nulls, false)
	return nil
}

func (b *columnBuilder) column() *domain.Column {
	switch b.typ {
	case domain.TypeNumeric:
		return domain.NewNumericColumn(b.name, orEmpty(b.numbers), orEmpty(b.nulls))
	case domain.TypeDatetime:
		return domain.NewDatetimeColumn(b.name, orEmpty(b.times), orEmpty(b.nulls))
	default:
		return domain.NewTextColumn(b.name, orEmpty(b.strings), orEmpty(b.nulls))
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// rowsToTable reads pgx.Rows into a table with one column per field.
func rowsToTable(rows pgx.Rows) (*domain.Table, error) {
	fields := rows.FieldDescriptions()
	builders := make([]*columnBuilder, len(fields))
	for i, fd := range fields {
		builders[i] = &columnBuilder{name: fd.Name, typ: columnType(fd.DataTypeOID)}
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row values: %w", err)
		}
		for i, v := range vals {
			if err := builders[i].append(v); err != nil {
				return nil, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	cols := make([]*domain.Column, len(builders))
	for i, b := range builders {
		cols[i] = b.column()
	}
	return domain.NewTable(cols...)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case pgtype.Numeric:
		f, err := n.Float64Value()
		if err != nil {
			return 0, fmt.Errorf("converting numeric: %w", err)
		}
		return f.Float64, nil
	default:
		return 0, fmt.Errorf("unexpected %T for a number", v)
	}
}

func toText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case bool:
		return strconv.FormatBool(s)
	case [16]byte:
		return uuid.UUID(s).String()
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}
