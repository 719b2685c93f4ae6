// Package reconcile maps the columns of an uploaded table onto the semantic
// fields a KPI requires and tracks how complete that mapping is.
package reconcile

import (
	"maps"
	"slices"

	"esg-kpi/internal/table"
)

// Status is the mapping lifecycle of a KPI within a session.
type Status string

const (
	StatusPending    Status = "pending"    // nothing assigned, or no table
	StatusIncomplete Status = "incomplete" // some required field unset
	StatusComplete   Status = "complete"
	StatusInvalid    Status = "invalid" // an assigned column is not in the table
	StatusError      Status = "error"   // last calculation failed
)

// Check describes a KPI's mapping against the current table.
type Check struct {
	Status Status   `json:"status"`
	Unset  []string `json:"unset,omitempty"`
	Absent []string `json:"absent,omitempty"`
}

// Mapping holds per-KPI field -> source column assignments for one session.
// It is not safe for concurrent use; the owning session serializes access.
type Mapping struct {
	assigned map[string]map[string]string
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{assigned: make(map[string]map[string]string)}
}

// Get returns the column assigned to a KPI field.
func (m *Mapping) Get(kpi, field string) (string, bool) {
	col, ok := m.assigned[kpi][field]
	return col, ok
}

// Fields returns a copy of a KPI's assignments.
func (m *Mapping) Fields(kpi string) map[string]string {
	return maps.Clone(m.assigned[kpi])
}

// Set assigns column to a KPI field; an empty column unsets it. It reports
// whether the assignment changed.
func (m *Mapping) Set(kpi, field, column string) bool {
	current, had := m.assigned[kpi][field]
	if column == "" {
		if !had {
			return false
		}
		delete(m.assigned[kpi], field)
		return true
	}
	if had && current == column {
		return false
	}
	if m.assigned[kpi] == nil {
		m.assigned[kpi] = make(map[string]string)
	}
	m.assigned[kpi][field] = column
	return true
}

// Clear drops every assignment of a KPI.
func (m *Mapping) Clear(kpi string) {
	delete(m.assigned, kpi)
}

// AutoMap assigns each unset required field to the column of exactly the
// same name, when one exists. It reports whether anything changed.
func (m *Mapping) AutoMap(kpi string, available, required []string) bool {
	updated := false
	for _, field := range required {
		if _, ok := m.Get(kpi, field); ok {
			continue
		}
		if slices.Contains(available, field) {
			m.Set(kpi, field, field)
			updated = true
		}
	}
	return updated
}

// Check classifies the mapping of a KPI. Invalid takes precedence over
// incomplete, which takes precedence over pending.
func (m *Mapping) Check(kpi string, required []string, tbl *table.Table) Check {
	var c Check
	assigned := 0
	for _, field := range required {
		col, ok := m.Get(kpi, field)
		if !ok {
			c.Unset = append(c.Unset, field)
			continue
		}
		assigned++
		if !tbl.HasColumn(col) {
			c.Absent = append(c.Absent, field)
		}
	}

	switch {
	case len(c.Absent) > 0 && tbl != nil:
		c.Status = StatusInvalid
	case tbl == nil || assigned == 0:
		c.Status = StatusPending
	case len(c.Unset) > 0:
		c.Status = StatusIncomplete
	default:
		c.Status = StatusComplete
	}
	return c
}

// IsComplete is true iff every required field is assigned to a column that
// exists in tbl.
func (m *Mapping) IsComplete(kpi string, required []string, tbl *table.Table) bool {
	return m.Check(kpi, required, tbl).Status == StatusComplete
}

// Reconcile projects tbl onto the KPI's field names. Only fields whose
// column is assigned and present are included, so a partially mapped KPI
// yields a table the calculator will reject with the missing fields named.
func (m *Mapping) Reconcile(kpi string, required []string, tbl *table.Table) *table.Table {
	if tbl == nil {
		return table.New(kpi, nil, nil)
	}

	var order []string
	cols := make(map[string]string)
	for _, field := range required {
		col, ok := m.Get(kpi, field)
		if !ok || !tbl.HasColumn(col) {
			continue
		}
		order = append(order, field)
		cols[field] = col
	}

	out, err := tbl.Project(kpi, order, cols)
	if err != nil {
		// unreachable: every source column was checked above
		return table.New(kpi, nil, nil)
	}
	return out
}
