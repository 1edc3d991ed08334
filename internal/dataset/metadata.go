package dataset

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Metadata struct {
	Columns       []string          `json:"columns"`
	DTypes        map[string]string `json:"dtypes"`
	NumRows       int               `json:"num_rows"`
	MissingCounts map[string]int    `json:"missing_counts"`
}

func (t *Table) Metadata() *Metadata {
	m := &Metadata{
		Columns:       t.Columns(),
		DTypes:        make(map[string]string, len(t.columns)),
		NumRows:       t.rows,
		MissingCounts: make(map[string]int, len(t.columns)),
	}
	for _, c := range t.columns {
		m.DTypes[c.Name] = c.DType
		m.MissingCounts[c.Name] = c.MissingCount()
	}
	return m
}

func (m *Metadata) String() string {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "not available"
	}
	return string(data)
}

// FixedSummary describes the table without any synthesized code: row count,
// then each column's dtype and missing-value count.
func FixedSummary(t *Table) string {
	lines := []string{
		fmt.Sprintf("Rows: %d", t.Len()),
		"Columns:",
	}
	for _, c := range t.columns {
		lines = append(lines, fmt.Sprintf("  %s: %s, missing=%d", c.Name, c.DType, c.MissingCount()))
	}
	return strings.Join(lines, "\n")
}
