// Package calc evaluates KPI formulas against reconciled tables.
package calc

import (
	"errors"
	"fmt"
	"strings"

	"esg-kpi/internal/catalogue"
	"esg-kpi/internal/formula"
	"esg-kpi/internal/kpierr"
	"esg-kpi/internal/table"
)

// Engine computes KPI values from the catalogue's definitions.
type Engine struct {
	catalogue *catalogue.Catalogue
}

// NewEngine creates an engine over cat.
func NewEngine(cat *catalogue.Catalogue) *Engine {
	return &Engine{catalogue: cat}
}

// Calculate computes a KPI from its reconciled table. Numeric KPIs evaluate
// their formula on every row and return the mean; qualitative KPIs return
// the first row of their single field. Any failing row fails the KPI.
func (e *Engine) Calculate(kpi string, tbl *table.Table) (Value, error) {
	spec, err := e.catalogue.GetSpec(kpi)
	if err != nil {
		return Pending(), err
	}
	if spec.IsNumerical {
		return e.numeric(spec, tbl)
	}
	return e.qualitative(spec, tbl)
}

func missingFields(spec *catalogue.KPISpec, tbl *table.Table) []string {
	var missing []string
	for _, f := range spec.FieldNames() {
		if !tbl.HasColumn(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

func (e *Engine) numeric(spec *catalogue.KPISpec, tbl *table.Table) (Value, error) {
	f, err := spec.CompiledFormula()
	if err != nil {
		return Pending(), err
	}

	if missing := missingFields(spec, tbl); len(missing) > 0 {
		return Pending(), kpierr.Missing(spec.Name, missing)
	}
	if tbl.Len() == 0 {
		return Pending(), kpierr.New(kpierr.NoData, spec.Name, "reconciled table has no rows")
	}

	referenced := f.Variables()
	sum := 0.0
	for i := 0; i < tbl.Len(); i++ {
		vars, err := bindRow(tbl, i, referenced)
		if err != nil {
			return Pending(), calcError(spec.Name, i, err)
		}
		v, err := f.Eval(vars)
		if err != nil {
			return Pending(), calcError(spec.Name, i, err)
		}
		sum += v
	}

	return Numeric(sum / float64(tbl.Len())), nil
}

// bindRow parses row i into formula variables. Columns the formula
// references must be numeric; other columns are bound only when they parse.
// A referenced name with no column stays unbound for Eval to report.
func bindRow(tbl *table.Table, i int, referenced []string) (map[string]float64, error) {
	vars := make(map[string]float64, len(tbl.Columns))
	for _, col := range tbl.Columns {
		v, err := tbl.Float(i, col)
		if err == nil {
			vars[col] = v
		}
	}
	for _, field := range referenced {
		if _, ok := vars[field]; !ok && tbl.HasColumn(field) {
			cell, _ := tbl.Cell(i, field)
			return nil, fmt.Errorf("type error: %s = %q is not numeric", field, cell)
		}
	}
	return vars, nil
}

func calcError(kpi string, row int, err error) *kpierr.Error {
	var unknown *formula.UnknownVariableError
	detail := err.Error()
	switch {
	case errors.Is(err, formula.ErrDivByZero):
		detail = "division by zero"
	case errors.As(err, &unknown):
		detail = fmt.Sprintf("name '%s' is not defined", unknown.Name)
	}
	return &kpierr.Error{
		Kind:   kpierr.Calculation,
		KPI:    kpi,
		Detail: fmt.Sprintf("Calculation error: %s (row %d)", detail, row+1),
		Err:    err,
	}
}

func (e *Engine) qualitative(spec *catalogue.KPISpec, tbl *table.Table) (Value, error) {
	if missing := missingFields(spec, tbl); len(missing) > 0 {
		return Pending(), kpierr.Missing(spec.Name, missing)
	}
	if tbl.Len() == 0 {
		return Pending(), kpierr.New(kpierr.NoData, spec.Name, "no narrative provided")
	}

	text, _ := tbl.Cell(0, spec.RequiredData[0].Name)
	text = strings.TrimSpace(text)
	if text == "" {
		return Pending(), kpierr.New(kpierr.NoData, spec.Name, "narrative field is empty")
	}
	return Narrative(text), nil
}
