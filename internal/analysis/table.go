package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Options controls how tabular files are loaded.
type Options struct {
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, picked from the file extension.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, auto-detect common separators (',' '.' space)
}

// DefaultOptions returns reasonable defaults for loading a dataset.
func DefaultOptions() Options {
	return Options{MaxRows: 100000}
}

// StorageKind is how a column's cells are stored after loading.
type StorageKind int

const (
	StorageText StorageKind = iota
	StorageNumeric
)

func (k StorageKind) String() string {
	if k == StorageNumeric {
		return "numeric"
	}
	return "text"
}

// Column holds one named column. Num is only meaningful for numeric storage
// and carries NaN for missing cells.
type Column struct {
	Name     string
	Kind     StorageKind
	Integral bool
	Raw      []string
	Num      []float64
}

// IsNumeric reports whether the column is stored as numbers.
func (c *Column) IsNumeric() bool { return c != nil && c.Kind == StorageNumeric }

// Values returns a copy of the numeric values.
func (c *Column) Values() []float64 {
	out := make([]float64, len(c.Num))
	copy(out, c.Num)
	return out
}

// Table is an in-memory dataset with stable row identities.
//
// A Table is not safe for concurrent use. Callers sharing one across
// goroutines must hold a lock for the duration of every call that reads or
// mutates it.
type Table struct {
	Name    string
	cols    []*Column
	byName  map[string]int
	rowIDs  []int
	Skipped int // rows beyond MaxRows
}

// NewTable builds a table from a header and string records. Numeric columns
// are inferred with the given options.
func NewTable(name string, header []string, records [][]string, opt Options) *Table {
	t := &Table{Name: name, byName: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		t.cols = append(t.cols, &Column{Name: h, Raw: make([]string, 0, len(records))})
		if _, dup := t.byName[h]; !dup {
			t.byName[h] = i
		}
	}
	for r, rec := range records {
		for j, c := range t.cols {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			c.Raw = append(c.Raw, v)
		}
		t.rowIDs = append(t.rowIDs, r)
	}
	for _, c := range t.cols {
		inferColumn(c, opt)
	}
	return t
}

func inferColumn(c *Column, opt Options) {
	nums := make([]float64, len(c.Raw))
	seen, missing := 0, 0
	integral := true
	for i, v := range c.Raw {
		if v == "" {
			nums[i] = math.NaN()
			missing++
			continue
		}
		x, ok := parseNumeric(v, opt)
		if !ok {
			c.Kind = StorageText
			c.Num = nil
			return
		}
		if x != math.Trunc(x) {
			integral = false
		}
		nums[i] = x
		seen++
	}
	if seen == 0 {
		c.Kind = StorageText
		return
	}
	c.Kind = StorageNumeric
	c.Num = nums
	c.Integral = integral && missing == 0
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rowIDs) }

// RowIDs returns a copy of the row identities in table order.
func (t *Table) RowIDs() []int {
	out := make([]int, len(t.rowIDs))
	copy(out, t.rowIDs)
	return out
}

// Columns returns the columns in order.
func (t *Table) Columns() []*Column { return t.cols }

// ColumnNames returns all column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// NumericColumns returns the names of numerically stored columns.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, c := range t.cols {
		if c.IsNumeric() {
			out = append(out, c.Name)
		}
	}
	return out
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		i, ok = t.byName[strings.TrimSpace(name)]
	}
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// SetValue overwrites the numeric cell at row position pos.
func (t *Table) SetValue(c *Column, pos int, v float64) {
	c.Num[pos] = v
	c.Raw[pos] = strconv.FormatFloat(v, 'g', -1, 64)
}

// RemoveRows deletes rows by identity. Identities that are not present are
// counted in skipped.
func (t *Table) RemoveRows(ids []int) (removed, skipped int) {
	drop := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	keep := make([]int, 0, len(t.rowIDs))
	for pos, id := range t.rowIDs {
		if _, ok := drop[id]; ok {
			delete(drop, id)
			removed++
			continue
		}
		keep = append(keep, pos)
	}
	skipped = len(drop)
	if removed == 0 {
		return removed, skipped
	}
	ids2 := make([]int, len(keep))
	for i, pos := range keep {
		ids2[i] = t.rowIDs[pos]
	}
	t.rowIDs = ids2
	for _, c := range t.cols {
		raw := make([]string, len(keep))
		for i, pos := range keep {
			raw[i] = c.Raw[pos]
		}
		c.Raw = raw
		if c.Num != nil {
			num := make([]float64, len(keep))
			for i, pos := range keep {
				num[i] = c.Num[pos]
			}
			c.Num = num
		}
	}
	return removed, skipped
}

// Load reads a CSV/TSV or XLSX file into a Table.
func Load(path string, opt Options, sheetName string, sheetIndex int) (*Table, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return LoadXLSX(path, opt, sheetName, sheetIndex)
	}
	return LoadCSV(path, opt)
}

// LoadCSV reads a delimited file into a Table.
func LoadCSV(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(filepath.Base(path), nil, nil, opt), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	var records [][]string
	skipped := 0
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+skipped+1, err)
		}
		if len(records) >= maxRows {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	t := NewTable(filepath.Base(path), header, records, opt)
	t.Skipped = skipped
	return t, nil
}

// WriteCSV serializes the table with its current contents.
func (t *Table) WriteCSV(w io.Writer, delim rune) error {
	cw := csv.NewWriter(w)
	if delim != 0 {
		cw.Comma = delim
	}
	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(t.cols))
	for pos := range t.rowIDs {
		for j, c := range t.cols {
			row[j] = c.Raw[pos]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", pos+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if strings.Contains(raw, "%") {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
