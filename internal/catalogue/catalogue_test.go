package catalogue

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"esg-kpi/internal/kpierr"
)

func loadTestCatalogue(t *testing.T) *Catalogue {
	t.Helper()
	c, err := Load(filepath.Join("testdata", "kpis.hjson"), filepath.Join("testdata", "references.json"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return c
}

func TestLoad(t *testing.T) {
	c := loadTestCatalogue(t)

	if c.Len() != 5 {
		t.Errorf("Len() = %d, want 5", c.Len())
	}

	fields, err := c.RequiredFields("Energy consumption, total")
	if err != nil {
		t.Fatalf("RequiredFields() error: %v", err)
	}
	want := []string{"total_energy_consumption", "energy_by_source"}
	if !slices.Equal(fields, want) {
		t.Errorf("RequiredFields() = %v, want %v", fields, want)
	}

	ref, err := c.GetReference("Energy consumption, total")
	if err != nil {
		t.Fatalf("GetReference() error: %v", err)
	}
	if ref.BestScore != 500 || ref.WorstScore != 2500 || ref.Unit != "MWh" {
		t.Errorf("GetReference() = %+v", ref)
	}
	if ref.HigherIsBetter() {
		t.Error("energy consumption should be lower-is-better")
	}

	spec, _ := c.GetSpec("Anti-corruption policy")
	if spec.IsNumerical {
		t.Error("Anti-corruption policy should be qualitative")
	}
}

func TestFormulaStates(t *testing.T) {
	c := loadTestCatalogue(t)

	tests := []struct {
		kpi  string
		kind kpierr.Kind
	}{
		{"Energy consumption, total", ""},
		{"Age structure/distribution", kpierr.NoFormula},
		{"Broken formula KPI", kpierr.Configuration},
		{"Unknown KPI", kpierr.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.kpi, func(t *testing.T) {
			_, err := c.Formula(tt.kpi)
			if got := kpierr.KindOf(err); got != tt.kind {
				t.Errorf("Formula(%q) kind = %q, want %q (err: %v)", tt.kpi, got, tt.kind, err)
			}
		})
	}
}

func TestLoadSchemaViolation(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "bad_kpis.json"), "")
	if !errors.Is(err, kpierr.Configuration) {
		t.Fatalf("Load() error = %v, want configuration error", err)
	}
}

func TestLoadRejectsQualitativeWithManyFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kpis.json")
	doc := `{"Policy": {"is_numerical": false, "required_data": [{"name": "a"}, {"name": "b"}]}}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path, "")
	if !errors.Is(err, kpierr.Configuration) {
		t.Fatalf("Load() error = %v, want configuration error", err)
	}
	if !strings.Contains(err.Error(), "exactly one") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestUnknownKPIIsRecoverable(t *testing.T) {
	c := loadTestCatalogue(t)
	if _, err := c.GetSpec("Nope"); !errors.Is(err, kpierr.NotFound) {
		t.Errorf("GetSpec() error = %v, want not_found", err)
	}
	if _, err := c.GetReference("Age structure/distribution"); !errors.Is(err, kpierr.NotFound) {
		t.Errorf("GetReference() error = %v, want not_found", err)
	}
}

func TestNewIsolatesInput(t *testing.T) {
	specs := map[string]*KPISpec{
		"X": {IsNumerical: true, RequiredData: []RequiredField{{Name: "a"}}, Formula: "a * 2"},
	}
	c := New(specs, nil)
	specs["X"].RequiredData[0].Name = "mutated"

	fields, _ := c.RequiredFields("X")
	if fields[0] != "a" {
		t.Errorf("catalogue shares caller's slice: got %v", fields)
	}
}
