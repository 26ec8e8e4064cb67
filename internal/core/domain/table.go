package domain

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrLengthMismatch  = errors.New("column length does not match table")
	ErrUnnamedColumn   = errors.New("column has no name")
)

// ColumnType is the semantic type of a column.
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeText        ColumnType = "text"
	TypeCategorical ColumnType = "categorical"
	TypeDatetime    ColumnType = "datetime"
)

// DateLayout is the layout used when a datetime value is rendered as text.
const DateLayout = "2006-01-02"

// Column is a named sequence of values of one semantic type. Only the slice
// matching Type is populated; Nulls marks positions holding no value.
//
// A Column read from a Table is a copy. Changes reach the table through
// Replace.
type Column struct {
	Name    string
	Type    ColumnType
	Numbers []float64
	Strings []string
	Times   []time.Time
	Nulls   []bool
}

// NewNumericColumn builds a numeric column. A nil nulls slice means no nulls.
// Once stored in a Table, NaN and infinite values read back as nulls.
func NewNumericColumn(name string, values []float64, nulls []bool) *Column {
	return &Column{Name: name, Type: TypeNumeric, Numbers: values, Nulls: nullMask(nulls, len(values))}
}

// NewTextColumn builds a text column.
func NewTextColumn(name string, values []string, nulls []bool) *Column {
	return &Column{Name: name, Type: TypeText, Strings: values, Nulls: nullMask(nulls, len(values))}
}

// NewCategoricalColumn builds a categorical column.
func NewCategoricalColumn(name string, values []string, nulls []bool) *Column {
	return &Column{Name: name, Type: TypeCategorical, Strings: values, Nulls: nullMask(nulls, len(values))}
}

// NewDatetimeColumn builds a datetime column.
func NewDatetimeColumn(name string, values []time.Time, nulls []bool) *Column {
	return &Column{Name: name, Type: TypeDatetime, Times: values, Nulls: nullMask(nulls, len(values))}
}

func nullMask(nulls []bool, n int) []bool {
	if nulls == nil {
		return make([]bool, n)
	}
	return nulls
}

// Len returns the number of values (null or not) in the column.
func (c *Column) Len() int {
	return len(c.Nulls)
}

// IsNumeric reports whether statistics apply to the column.
func (c *Column) IsNumeric() bool {
	return c.Type == TypeNumeric
}

// IsNull reports whether row i holds no value.
func (c *Column) IsNull(i int) bool {
	return c.Nulls[i]
}

// NullCount returns the number of null positions.
func (c *Column) NullCount() int {
	n := 0
	for _, null := range c.Nulls {
		if null {
			n++
		}
	}
	return n
}

// ObservedNumbers returns the non-null values of a numeric column.
func (c *Column) ObservedNumbers() []float64 {
	if !c.IsNumeric() {
		return nil
	}
	out := make([]float64, 0, len(c.Numbers))
	for i, v := range c.Numbers {
		if !c.Nulls[i] {
			out = append(out, v)
		}
	}
	return out
}

// Label renders row i as text. Nulls render as the empty string.
func (c *Column) Label(i int) string {
	if c.Nulls[i] {
		return ""
	}
	switch c.Type {
	case TypeNumeric:
		return strconv.FormatFloat(c.Numbers[i], 'f', -1, 64)
	case TypeDatetime:
		return c.Times[i].Format(DateLayout)
	default:
		return c.Strings[i]
	}
}

// Value returns row i as a Go value, nil when null.
func (c *Column) Value(i int) any {
	if c.Nulls[i] {
		return nil
	}
	switch c.Type {
	case TypeNumeric:
		return c.Numbers[i]
	case TypeDatetime:
		return c.Times[i]
	default:
		return c.Strings[i]
	}
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Type: c.Type, Nulls: append([]bool(nil), c.Nulls...)}
	if c.Numbers != nil {
		out.Numbers = append([]float64(nil), c.Numbers...)
	}
	if c.Strings != nil {
		out.Strings = append([]string(nil), c.Strings...)
	}
	if c.Times != nil {
		out.Times = append([]time.Time(nil), c.Times...)
	}
	return out
}

// series converts c to a gota series. Datetimes are held as RFC 3339 text in
// UTC; nulls and non-finite numbers become NA elements.
func (c *Column) series() series.Series {
	var s series.Series
	switch c.Type {
	case TypeNumeric:
		s = series.New(c.Numbers, series.Float, c.Name)
		for i, v := range c.Numbers {
			if c.Nulls[i] || math.IsNaN(v) || math.IsInf(v, 0) {
				s.Elem(i).Set(nil)
			}
		}
	case TypeDatetime:
		text := make([]string, c.Len())
		for i, ts := range c.Times {
			if !c.Nulls[i] {
				text[i] = ts.UTC().Format(time.RFC3339Nano)
			}
		}
		s = series.New(text, series.String, c.Name)
		c.markNulls(s)
	default:
		s = series.New(c.Strings, series.String, c.Name)
		c.markNulls(s)
	}
	return s
}

func (c *Column) markNulls(s series.Series) {
	for i, null := range c.Nulls {
		if null {
			s.Elem(i).Set(nil)
		}
	}
}

// columnFromSeries materialises s as a column of type typ. Null positions
// hold the zero value.
func columnFromSeries(s series.Series, typ ColumnType) *Column {
	nulls := s.IsNaN()
	c := &Column{Name: s.Name, Type: typ, Nulls: nulls}
	switch typ {
	case TypeNumeric:
		c.Numbers = s.Float()
		for i, null := range nulls {
			if null || math.IsNaN(c.Numbers[i]) {
				c.Numbers[i] = 0
				nulls[i] = true
			}
		}
	case TypeDatetime:
		c.Times = make([]time.Time, len(nulls))
		for i, text := range s.Records() {
			if nulls[i] {
				continue
			}
			ts, err := time.Parse(time.RFC3339Nano, text)
			if err != nil {
				nulls[i] = true
				continue
			}
			c.Times[i] = ts
		}
	default:
		c.Strings = s.Records()
		for i, null := range nulls {
			if null {
				c.Strings[i] = ""
			}
		}
	}
	return c
}

// Table is an ordered set of equally long columns held in a gota DataFrame.
// Rows are identified by position only. The frame stores values; types keeps
// the semantic type of each column, which the frame cannot express for
// categories and dates.
type Table struct {
	df    dataframe.DataFrame
	types map[string]ColumnType
}

// NewTable builds a table from columns, rejecting duplicates and ragged lengths.
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{types: make(map[string]ColumnType, len(columns))}
	for _, c := range columns {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// FromDataFrame wraps a frame, typing Int and Float series as numeric and
// everything else as text.
func FromDataFrame(df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("reading data frame: %w", df.Err)
	}
	t := &Table{types: make(map[string]ColumnType, df.Ncol())}
	for _, name := range df.Names() {
		s := df.Col(name)
		typ := TypeText
		switch s.Type() {
		case series.Int, series.Float:
			typ = TypeNumeric
		}
		if err := t.AddColumn(columnFromSeries(s, typ)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddColumn appends a column. The first column fixes the row count.
func (t *Table) AddColumn(c *Column) error {
	if c.Name == "" {
		return ErrUnnamedColumn
	}
	if t.Has(c.Name) {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
	}
	if t.Width() > 0 && c.Len() != t.Rows() {
		return fmt.Errorf("%w: %q has %d values, table has %d rows", ErrLengthMismatch, c.Name, c.Len(), t.Rows())
	}

	var df dataframe.DataFrame
	if t.Width() == 0 {
		df = dataframe.New(c.series())
	} else {
		df = t.df.Mutate(c.series())
	}
	if df.Err != nil {
		return fmt.Errorf("adding column %q: %w", c.Name, df.Err)
	}
	t.df = df
	t.types[c.Name] = c.Type
	return nil
}

// Rows returns the row count.
func (t *Table) Rows() int {
	if t.Width() == 0 {
		return 0
	}
	return t.df.Nrow()
}

// Width returns the column count.
func (t *Table) Width() int {
	return len(t.types)
}

// Columns returns copies of the columns in table order.
func (t *Table) Columns() []*Column {
	names := t.Names()
	out := make([]*Column, len(names))
	for i, name := range names {
		out[i] = columnFromSeries(t.df.Col(name), t.types[name])
	}
	return out
}

// Names returns the column names in table order.
func (t *Table) Names() []string {
	if t.Width() == 0 {
		return nil
	}
	return t.df.Names()
}

// Has reports whether the table holds a column named name.
func (t *Table) Has(name string) bool {
	_, ok := t.types[name]
	return ok
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) (*Column, error) {
	typ, ok := t.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return columnFromSeries(t.df.Col(name), typ), nil
}

// NumericColumns returns copies of the numeric columns in table order.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, name := range t.Names() {
		if t.types[name] == TypeNumeric {
			out = append(out, columnFromSeries(t.df.Col(name), TypeNumeric))
		}
	}
	return out
}

// Replace swaps the column of the same name for c, adopting c's type.
func (t *Table) Replace(c *Column) error {
	if !t.Has(c.Name) {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, c.Name)
	}
	if c.Len() != t.Rows() {
		return fmt.Errorf("%w: %q has %d values, table has %d rows", ErrLengthMismatch, c.Name, c.Len(), t.Rows())
	}
	df := t.df.Mutate(c.series())
	if df.Err != nil {
		return fmt.Errorf("replacing column %q: %w", c.Name, df.Err)
	}
	t.df = df
	t.types[c.Name] = c.Type
	return nil
}

// Drop removes the named columns. Unknown names are an error and leave the
// table untouched.
func (t *Table) Drop(names ...string) error {
	for _, name := range names {
		if !t.Has(name) {
			return fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
	}
	if len(names) == 0 {
		return nil
	}

	remaining := 0
	for _, name := range t.Names() {
		if !slices.Contains(names, name) {
			remaining++
		}
	}
	if remaining == 0 {
		t.df = dataframe.DataFrame{}
		clear(t.types)
		return nil
	}

	df := t.df.Drop(names)
	if df.Err != nil {
		return fmt.Errorf("dropping columns: %w", df.Err)
	}
	t.df = df
	for _, name := range names {
		delete(t.types, name)
	}
	return nil
}

// Filter keeps only the rows where keep[i] is true.
func (t *Table) Filter(keep []bool) error {
	if len(keep) != t.Rows() {
		return fmt.Errorf("%w: filter mask has %d entries, table has %d rows", ErrLengthMismatch, len(keep), t.Rows())
	}
	if t.Width() == 0 {
		return nil
	}

	idx := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return t.truncate()
	}

	df := t.df.Subset(idx)
	if df.Err != nil {
		return fmt.Errorf("filtering rows: %w", df.Err)
	}
	t.df = df
	return nil
}

// truncate removes every row while keeping the columns and their types.
func (t *Table) truncate() error {
	names := t.Names()
	cols := make([]series.Series, len(names))
	for i, name := range names {
		empty := &Column{Name: name, Type: t.types[name]}
		cols[i] = empty.series()
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return fmt.Errorf("filtering rows: %w", df.Err)
	}
	t.df = df
	return nil
}

// Clone returns a deep copy so stages can return a new table without
// touching their input.
func (t *Table) Clone() *Table {
	out := &Table{types: maps.Clone(t.types)}
	if t.Width() > 0 {
		out.df = t.df.Copy()
	}
	return out
}

// Head returns up to n rows as maps keyed by column name.
func (t *Table) Head(n int) []map[string]any {
	n = min(n, t.Rows())
	cols := t.Columns()
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			row[c.Name] = c.Value(i)
		}
		out[i] = row
	}
	return out
}
