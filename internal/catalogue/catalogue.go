// Package catalogue holds the static KPI reference data: per-KPI required
// fields and formula, plus the best/worst anchors used for normalization and
// narrative scoring. It is loaded once and read-only afterwards.
package catalogue

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"esg-kpi/internal/formula"
	"esg-kpi/internal/kpierr"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/hjson/hjson-go/v4"
	"github.com/rs/zerolog/log"
)

// Catalogue is the read-only lookup of KPI specifications and references.
type Catalogue struct {
	specs map[string]*KPISpec
	refs  map[string]KPIReference
	names []string
}

// New builds a catalogue from in-memory tables. Formulas are parsed here;
// a formula that fails to parse is recorded against its KPI only.
func New(specs map[string]*KPISpec, refs map[string]KPIReference) *Catalogue {
	c := &Catalogue{
		specs: make(map[string]*KPISpec, len(specs)),
		refs:  make(map[string]KPIReference, len(refs)),
	}
	for name, s := range specs {
		spec := *s
		spec.Name = name
		spec.RequiredData = slices.Clone(s.RequiredData)
		spec.compile()
		if spec.formulaErr != nil {
			log.Warn().Err(spec.formulaErr).Str("kpi", name).Msg("Invalid KPI formula")
		} else if spec.compiled != nil {
			warnUndeclared(&spec)
		}
		c.specs[name] = &spec
		c.names = append(c.names, name)
	}
	for name, r := range refs {
		c.refs[name] = r
	}
	slices.Sort(c.names)
	return c
}

func warnUndeclared(spec *KPISpec) {
	declared := spec.FieldNames()
	for _, v := range spec.compiled.Variables() {
		if !slices.Contains(declared, v) {
			log.Warn().Str("kpi", spec.Name).Str("variable", v).Msg("Formula references a field not listed in required_data")
		}
	}
}

// Load reads and validates the catalogue and reference files. Both are Hjson,
// so plain JSON is accepted as well. Any schema violation fails the load.
func Load(cataloguePath, referencePath string) (*Catalogue, error) {
	var specs map[string]*KPISpec
	if err := loadDocument(cataloguePath, specSchema, &specs); err != nil {
		return nil, err
	}

	refs := map[string]KPIReference{}
	if referencePath != "" {
		if err := loadDocument(referencePath, referenceSchema, &refs); err != nil {
			return nil, err
		}
	}

	for name, s := range specs {
		if err := checkSpec(name, s); err != nil {
			return nil, err
		}
	}

	c := New(specs, refs)
	log.Info().
		Str("catalogue", cataloguePath).
		Str("reference", referencePath).
		Int("kpis", len(c.specs)).
		Int("references", len(c.refs)).
		Msg("KPI catalogue loaded")
	return c, nil
}

func loadDocument(path string, schema *jsonschema.Schema, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return kpierr.Wrap(kpierr.Configuration, "", fmt.Errorf("failed to read %s: %w", path, err))
	}

	var doc any
	if err := hjson.Unmarshal(data, &doc); err != nil {
		return kpierr.Wrap(kpierr.Configuration, "", fmt.Errorf("failed to parse %s: %w", path, err))
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("failed to resolve schema: %w", err)
	}
	if err := resolved.Validate(doc); err != nil {
		return kpierr.Wrap(kpierr.Configuration, "", fmt.Errorf("%s: %w", path, err))
	}

	// Round-trip through encoding/json to decode into typed structs.
	raw, err := json.Marshal(doc)
	if err != nil {
		return kpierr.Wrap(kpierr.Configuration, "", fmt.Errorf("failed to re-encode %s: %w", path, err))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return kpierr.Wrap(kpierr.Configuration, "", fmt.Errorf("failed to decode %s: %w", path, err))
	}
	return nil
}

func checkSpec(name string, s *KPISpec) error {
	if name == "" {
		return kpierr.New(kpierr.Configuration, "", "catalogue entry with empty name")
	}
	if !s.IsNumerical && len(s.RequiredData) != 1 {
		return kpierr.New(kpierr.Configuration, name,
			fmt.Sprintf("qualitative KPI must declare exactly one required field, got %d", len(s.RequiredData)))
	}
	seen := make(map[string]bool, len(s.RequiredData))
	for _, f := range s.RequiredData {
		if f.Name == "" {
			return kpierr.New(kpierr.Configuration, name, "required field with empty name")
		}
		if seen[f.Name] {
			return kpierr.New(kpierr.Configuration, name, fmt.Sprintf("duplicate required field %q", f.Name))
		}
		seen[f.Name] = true
	}
	return nil
}

// GetSpec returns the specification of a KPI.
func (c *Catalogue) GetSpec(name string) (*KPISpec, error) {
	s, ok := c.specs[name]
	if !ok {
		return nil, kpierr.New(kpierr.NotFound, name, "unknown KPI")
	}
	return s, nil
}

// GetReference returns the normalization anchors of a KPI.
func (c *Catalogue) GetReference(name string) (KPIReference, error) {
	r, ok := c.refs[name]
	if !ok {
		return KPIReference{}, kpierr.New(kpierr.NotFound, name, "no reference entry")
	}
	return r, nil
}

// RequiredFields returns the field names a KPI consumes.
func (c *Catalogue) RequiredFields(name string) ([]string, error) {
	s, err := c.GetSpec(name)
	if err != nil {
		return nil, err
	}
	return s.FieldNames(), nil
}

// Formula returns the parsed formula of a KPI.
func (c *Catalogue) Formula(name string) (*formula.Formula, error) {
	s, err := c.GetSpec(name)
	if err != nil {
		return nil, err
	}
	return s.CompiledFormula()
}

// Names returns all KPI names, sorted.
func (c *Catalogue) Names() []string {
	return slices.Clone(c.names)
}

// Len returns the number of KPIs in the catalogue.
func (c *Catalogue) Len() int {
	return len(c.specs)
}
