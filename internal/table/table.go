// Package table holds the in-memory tabular form shared by the cleaners,
// the joiner and the reporter, plus its CSV encoding.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tractmobility-cli/internal/utils"
)

// Table is a header plus string rows. An empty cell is a null value.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New returns an empty table with the given columns.
func New(name string, columns []string) *Table {
	t := &Table{Name: name, Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of a column.
func (t *Table) Index(col string) (int, bool) {
	if t.index == nil {
		t.reindex()
	}
	i, ok := t.index[col]
	return i, ok
}

// Require returns a SchemaDriftError naming every column in cols that is absent.
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := t.Index(c); !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaDriftError{Table: t.Name, Missing: missing}
	}
	return nil
}

// Append adds a row, padding or truncating it to the column count.
func (t *Table) Append(row []string) {
	out := make([]string, len(t.Columns))
	copy(out, row)
	t.Rows = append(t.Rows, out)
}

// Get returns the cell at row i for col, or "" when the column does not exist.
func (t *Table) Get(i int, col string) string {
	j, ok := t.Index(col)
	if !ok || i < 0 || i >= len(t.Rows) {
		return ""
	}
	return t.Rows[i][j]
}

// Column returns a copy of a column's cells.
func (t *Table) Column(col string) ([]string, error) {
	j, ok := t.Index(col)
	if !ok {
		return nil, &SchemaDriftError{Table: t.Name, Missing: []string{col}}
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[j]
	}
	return out, nil
}

// Floats parses a column; valid[i] is false where the cell is null or not numeric.
func (t *Table) Floats(col string) (vals []float64, valid []bool, err error) {
	cells, err := t.Column(col)
	if err != nil {
		return nil, nil, err
	}
	vals = make([]float64, len(cells))
	valid = make([]bool, len(cells))
	for i, c := range cells {
		vals[i], valid[i] = ParseFloat(c)
	}
	return vals, valid, nil
}

// DropColumns removes every column for which drop returns true.
func (t *Table) DropColumns(drop func(name string) bool) {
	keep := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		if !drop(c) {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(t.Columns) {
		return
	}
	cols := make([]string, len(keep))
	for k, i := range keep {
		cols[k] = t.Columns[i]
	}
	for r, row := range t.Rows {
		nr := make([]string, len(keep))
		for k, i := range keep {
			nr[k] = row[i]
		}
		t.Rows[r] = nr
	}
	t.Columns = cols
	t.reindex()
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(row []string) bool) {
	out := t.Rows[:0]
	for _, r := range t.Rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	t.Rows = out
}

// CheckUnique returns a DuplicateKeyError if col holds the same value twice.
func (t *Table) CheckUnique(col string) error {
	j, ok := t.Index(col)
	if !ok {
		return &SchemaDriftError{Table: t.Name, Missing: []string{col}}
	}
	seen := make(map[string]int, len(t.Rows))
	for i, r := range t.Rows {
		if prev, dup := seen[r[j]]; dup {
			return &DuplicateKeyError{Table: t.Name, Column: col, Key: r[j], Rows: [2]int{prev + 1, i + 1}}
		}
		seen[r[j]] = i
	}
	return nil
}

// ReadOptions controls CSV loading.
type ReadOptions struct {
	// SkipRows drops this many leading records before the header.
	SkipRows int
	// Delimiter for CSV. If 0, picked from the file extension.
	Delimiter rune
}

// ReadFile loads a CSV/TSV file. Any failure to produce a header is a FormatError.
func ReadFile(path string, opt ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	defer f.Close()
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path)
	}
	t, err := Read(f, filepath.Base(path), opt)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return nil, err
	}
	return t, nil
}

// Read parses CSV from r.
func Read(r io.Reader, name string, opt ReadOptions) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}
	for i := 0; i < opt.SkipRows; i++ {
		if _, err := cr.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &FormatError{Path: name, Err: errors.New("no header row")}
			}
			return nil, &FormatError{Path: name, Err: fmt.Errorf("skip row %d: %w", i+1, err)}
		}
	}
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &FormatError{Path: name, Err: errors.New("no header row")}
		}
		return nil, &FormatError{Path: name, Err: fmt.Errorf("read header: %w", err)}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}
	t := New(name, cols)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &FormatError{Path: name, Err: fmt.Errorf("read row %d: %w", line, err)}
		}
		t.Append(rec)
	}
	return t, nil
}

// Encode writes the table as comma-separated CSV with a header row.
func (t *Table) Encode(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile encodes the table and atomically replaces path.
func WriteFile(path string, t *Table) error {
	var buf bytes.Buffer
	if err := t.Encode(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", t.Name, err)
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// ParseFloat parses a numeric cell. Blanks, placeholders ("-", "N", "(X)",
// "250,000+") and non-finite values are reported as null.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatFloat renders a value for output; invalid values become an empty cell.
func FormatFloat(v float64, valid bool) string {
	if !valid || math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
