package session

import (
	"esg-kpi/internal/reconcile"
)

// FieldMapping describes one required field of a KPI and its source column.
type FieldMapping struct {
	Field       string `json:"field"`
	Description string `json:"description,omitempty"`
	Column      string `json:"column,omitempty"`
	Present     bool   `json:"present"`
}

// MappingView is the reconciliation state of a KPI.
type MappingView struct {
	KPI       string           `json:"kpi"`
	Table     string           `json:"table,omitempty"`
	Columns   []string         `json:"available_columns,omitempty"`
	Fields    []FieldMapping   `json:"fields"`
	Check     reconcile.Check  `json:"check"`
	KPIStatus reconcile.Status `json:"kpi_status"`
}

// Mapping returns the field assignments of a KPI against its current table.
func (s *State) Mapping(kpi string) (MappingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec, err := s.deps.Catalogue.GetSpec(kpi)
	if err != nil {
		return MappingView{}, err
	}

	tbl := s.tableForLocked(kpi)
	view := MappingView{
		KPI:       kpi,
		Check:     s.mapping.Check(kpi, spec.FieldNames(), tbl),
		KPIStatus: s.stateLocked(kpi).Status,
	}
	if tbl != nil {
		view.Table = tbl.Name
		view.Columns = tbl.Columns
	}
	for _, f := range spec.RequiredData {
		col, _ := s.mapping.Get(kpi, f.Name)
		view.Fields = append(view.Fields, FieldMapping{
			Field:       f.Name,
			Description: f.Description,
			Column:      col,
			Present:     col != "" && tbl.HasColumn(col),
		})
	}
	return view, nil
}
