package catalogue

import (
	"esg-kpi/internal/formula"
	"esg-kpi/internal/kpierr"
)

// RequiredField is a semantic input a KPI consumes.
type RequiredField struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// KPISpec describes how a single KPI is computed.
type KPISpec struct {
	Name         string          `json:"name"`
	IsNumerical  bool            `json:"is_numerical"`
	RequiredData []RequiredField `json:"required_data"`
	Formula      string          `json:"formula,omitempty"`

	compiled   *formula.Formula
	formulaErr error
}

// FieldNames returns the required field names in declaration order.
func (s *KPISpec) FieldNames() []string {
	names := make([]string, 0, len(s.RequiredData))
	for _, f := range s.RequiredData {
		names = append(names, f.Name)
	}
	return names
}

// CompiledFormula returns the formula parsed at load time.
// A KPI without a formula yields NoFormula; one whose formula did not parse
// yields Configuration.
func (s *KPISpec) CompiledFormula() (*formula.Formula, error) {
	if s.formulaErr != nil {
		return nil, kpierr.Wrap(kpierr.Configuration, s.Name, s.formulaErr)
	}
	if s.compiled == nil {
		return nil, kpierr.New(kpierr.NoFormula, s.Name, "No calculation found for "+s.Name)
	}
	return s.compiled, nil
}

func (s *KPISpec) compile() {
	s.compiled, s.formulaErr = nil, nil
	if s.Formula == "" {
		return
	}
	s.compiled, s.formulaErr = formula.Parse(s.Formula)
}

// KPIReference holds the normalization anchors and narrative exemplars of a KPI.
type KPIReference struct {
	BestScore     float64 `json:"best_score"`
	WorstScore    float64 `json:"worst_score"`
	Unit          string  `json:"unit,omitempty"`
	BestResponse  string  `json:"best_response,omitempty"`
	WorstResponse string  `json:"worst_response,omitempty"`
}

// HigherIsBetter reports the orientation of the numeric range.
func (r KPIReference) HigherIsBetter() bool {
	return r.BestScore > r.WorstScore
}

// Degenerate is true when the anchors carry no range information.
func (r KPIReference) Degenerate() bool {
	return r.BestScore == r.WorstScore
}
