// Package table holds uploaded tabular data: a name, an ordered column list
// and string cells. Tables are read-only once constructed.
package table

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Table is an in-memory dataset.
type Table struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`

	index map[string]int
}

// New builds a table, padding or truncating rows to the column count.
// Duplicate column names keep their first occurrence for lookups.
func New(name string, columns []string, rows [][]string) *Table {
	t := &Table{
		Name:    name,
		Columns: slices.Clone(columns),
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		row := make([]string, len(columns))
		copy(row, r)
		t.Rows = append(t.Rows, row)
	}
	t.buildIndex()
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// HasColumn reports whether name is a column of the table.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[name]
	return ok
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Cell returns the value at row i of column name.
func (t *Table) Cell(i int, name string) (string, bool) {
	c, ok := t.index[name]
	if !ok || i < 0 || i >= len(t.Rows) {
		return "", false
	}
	return t.Rows[i][c], true
}

// Float parses the cell at row i of column name as a number.
func (t *Table) Float(i int, name string) (float64, error) {
	s, ok := t.Cell(i, name)
	if !ok {
		return 0, fmt.Errorf("no cell %q at row %d", name, i)
	}
	v, err := ParseNumber(s)
	if err != nil {
		return 0, fmt.Errorf("row %d column %q: %w", i, name, err)
	}
	return v, nil
}

// ParseNumber accepts plain decimals plus thousands separators and a
// trailing percent sign, e.g. "1,250.5" or "12%".
func ParseNumber(s string) (float64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimSuffix(clean, "%")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, "_", "")
	if clean == "" {
		return 0, fmt.Errorf("empty value is not a number")
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a number", s)
	}
	return v, nil
}

// Project returns a new table holding only the selected source columns,
// renamed to the given target names. columns maps target -> source; order
// gives the output column order.
func (t *Table) Project(name string, order []string, columns map[string]string) (*Table, error) {
	src := make([]int, len(order))
	for i, target := range order {
		source, ok := columns[target]
		if !ok {
			return nil, fmt.Errorf("no source column for %q", target)
		}
		c, ok := t.index[source]
		if !ok {
			return nil, fmt.Errorf("column %q not in table %q", source, t.Name)
		}
		src[i] = c
	}

	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]string, len(order))
		for i, c := range src {
			out[i] = row[c]
		}
		rows[r] = out
	}
	return New(name, order, rows), nil
}
