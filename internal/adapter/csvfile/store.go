package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/guillermoBallester/loaneda/internal/core/domain"
)

var ErrEmptyFile = errors.New("checkpoint has no header row")

// nullTokens are the field values read back as nulls.
var nullTokens = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None"}

// Store persists tables as comma-separated files with a header row. Nulls
// are written as empty fields and dates as YYYY-MM-DD.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// Save writes t to path, creating parent directories as needed.
func (s *Store) Save(t *domain.Table, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating checkpoint directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating checkpoint file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := write(f, t); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// write renders every column as text so the file carries the checkpoint
// format rather than gota's float formatting: nulls are empty fields and
// dates are YYYY-MM-DD.
func write(w io.Writer, t *domain.Table) error {
	cols := t.Columns()
	if len(cols) == 0 {
		return nil
	}
	text := make([]series.Series, len(cols))
	for j, c := range cols {
		labels := make([]string, c.Len())
		for i := range labels {
			labels[i] = c.Label(i)
		}
		text[j] = series.New(labels, series.String, c.Name)
	}
	return dataframe.New(text...).WriteCSV(w, dataframe.WriteHeader(true))
}

// Load reads path and infers each column's type afresh: numeric when every
// non-null field parses as a number, text otherwise. Infinite numbers read
// back as nulls.
func (s *Store) Load(path string) (*domain.Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("checkpoint %s: %w: %w", path, domain.ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint file: %w", err)
	}
	defer func() { _ = f.Close() }()

	t, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

// read parses a checkpoint. Fields are trimmed before gota infers each
// column's type, and header-only files yield an empty table of text columns.
func read(r io.Reader) (*domain.Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	for _, record := range records {
		for j := range record {
			record[j] = strings.TrimSpace(record[j])
		}
	}

	if len(records) == 1 {
		cols := make([]*domain.Column, len(records[0]))
		for j, name := range records[0] {
			cols[j] = domain.NewTextColumn(name, []string{}, nil)
		}
		return domain.NewTable(cols...)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(nullTokens),
	)
	return domain.FromDataFrame(df)
}
