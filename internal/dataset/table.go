package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Column dtypes, named after their pandas equivalents so prompts read naturally.
const (
	DTypeInt    = "int64"
	DTypeFloat  = "float64"
	DTypeBool   = "bool"
	DTypeObject = "object"
)

var missingTokens = map[string]bool{
	"":     true,
	"?":    true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

type Column struct {
	Name   string
	DType  string
	Values []any // nil marks a missing cell
}

func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// Table is an immutable, column-oriented tabular dataset.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV has no header row")
	}

	return New(records[0], records[1:])
}

// New builds a table from a header and raw string rows, inferring a dtype per column.
func New(header []string, rows [][]string) (*Table, error) {
	t := &Table{
		index: make(map[string]int, len(header)),
		rows:  len(rows),
	}

	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		t.index[name] = i

		raw := make([]string, len(rows))
		for r, row := range rows {
			if len(row) != len(header) {
				return nil, fmt.Errorf("row %d has %d fields, want %d", r+1, len(row), len(header))
			}
			raw[r] = strings.TrimSpace(row[i])
		}
		t.columns = append(t.columns, parseColumn(name, raw))
	}

	return t, nil
}

func parseColumn(name string, raw []string) *Column {
	dtype := inferDType(raw)
	values := make([]any, len(raw))
	for i, s := range raw {
		if missingTokens[s] {
			continue
		}
		switch dtype {
		case DTypeInt:
			v, _ := strconv.ParseInt(s, 10, 64)
			values[i] = v
		case DTypeFloat:
			v, _ := strconv.ParseFloat(s, 64)
			values[i] = v
		case DTypeBool:
			v, _ := strconv.ParseBool(s)
			values[i] = v
		default:
			values[i] = s
		}
	}
	return &Column{Name: name, DType: dtype, Values: values}
}

func inferDType(raw []string) string {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, s := range raw {
		if missingTokens[s] {
			continue
		}
		seen = true
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			isFloat = false
		}
		if s != "true" && s != "false" && s != "True" && s != "False" {
			isBool = false
		}
	}

	switch {
	case !seen:
		return DTypeObject
	case isInt:
		// Integer columns with gaps become floats, as they would in pandas.
		for _, s := range raw {
			if missingTokens[s] {
				return DTypeFloat
			}
		}
		return DTypeInt
	case isFloat:
		return DTypeFloat
	case isBool:
		return DTypeBool
	default:
		return DTypeObject
	}
}

func (t *Table) Len() int {
	return t.rows
}

func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Take returns a new table holding the given rows, in order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{
		index: t.index,
		rows:  len(rows),
	}
	for _, c := range t.columns {
		values := make([]any, len(rows))
		for i, r := range rows {
			values[i] = c.Values[r]
		}
		out.columns = append(out.columns, &Column{Name: c.Name, DType: c.DType, Values: values})
	}
	return out
}

// Binding renders the table as plain values for the sandbox: a list of column
// names, a dtype map and one map per row. Missing cells are omitted from rows.
func (t *Table) Binding() map[string]any {
	columns := make([]any, len(t.columns))
	dtypes := make(map[string]any, len(t.columns))
	for i, c := range t.columns {
		columns[i] = c.Name
		dtypes[c.Name] = c.DType
	}

	rows := make([]any, t.rows)
	for r := 0; r < t.rows; r++ {
		row := make(map[string]any, len(t.columns))
		for _, c := range t.columns {
			if v := c.Values[r]; v != nil {
				row[c.Name] = v
			}
		}
		rows[r] = row
	}

	return map[string]any{
		"columns": columns,
		"dtypes":  dtypes,
		"rows":    rows,
		"n":       t.rows,
	}
}
