package postgres

import (
	"math/big"
	"testing"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnType(t *testing.T) {
	tests := []struct {
		oid  uint32
		want domain.ColumnType
	}{
		{pgtype.Int4OID, domain.TypeNumeric},
		{pgtype.Int8OID, domain.TypeNumeric},
		{pgtype.NumericOID, domain.TypeNumeric},
		{pgtype.Float8OID, domain.TypeNumeric},
		{pgtype.DateOID, domain.TypeDatetime},
		{pgtype.TimestamptzOID, domain.TypeDatetime},
		{pgtype.TextOID, domain.TypeText},
		{pgtype.VarcharOID, domain.TypeText},
		{pgtype.BoolOID, domain.TypeText},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, columnType(tt.oid), "oid %d", tt.oid)
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"int16", int16(7), 7},
		{"int32", int32(-3), -3},
		{"int64", int64(1 << 40), 1 << 40},
		{"float32", float32(0.5), 0.5},
		{"float64", 12.75, 12.75},
		{"numeric", pgtype.Numeric{Int: big.NewInt(123456), Exp: -2, Valid: true}, 1234.56},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toFloat(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := toFloat("12")
	assert.Error(t, err)
}

func TestToText(t *testing.T) {
	assert.Equal(t, "A", toText("A"))
	assert.Equal(t, "raw", toText([]byte("raw")))
	assert.Equal(t, "true", toText(true))
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", toText([16]byte{15: 1}))
	assert.Equal(t, "42", toText(uint8(42)))
}

func TestColumnBuilder(t *testing.T) {
	b := &columnBuilder{name: "loan_amount", typ: domain.TypeNumeric}
	require.NoError(t, b.append(int32(10)))
	require.NoError(t, b.append(nil))
	require.NoError(t, b.append(2.5))
	assert.Error(t, b.append("oops"))

	col := b.column()
	assert.Equal(t, []float64{10, 0, 2.5}, col.Numbers)
	assert.Equal(t, []bool{false, true, false}, col.Nulls)

	empty := (&columnBuilder{name: "grade", typ: domain.TypeText}).column()
	assert.Zero(t, empty.Len())
	assert.NotNil(t, empty.Strings)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"users"`, quoteIdent("users"))
	assert.Equal(t, `"my table"`, quoteIdent("my table"))
	assert.Equal(t, `"test""quote"`, quoteIdent(`test"quote`))
}

func TestQuoteRelation(t *testing.T) {
	assert.Equal(t, `"loan_payments"`, quoteRelation("loan_payments"))
	assert.Equal(t, `"public"."loan_payments"`, quoteRelation("public.loan_payments"))
	assert.Equal(t, `"x; DROP TABLE y"`, quoteRelation("x; DROP TABLE y"))
}
