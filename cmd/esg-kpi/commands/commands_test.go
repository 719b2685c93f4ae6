package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"esg-kpi/internal/config"
	"esg-kpi/internal/reconcile"
)

func TestParseMapping(t *testing.T) {
	tests := []struct {
		in      string
		want    mappingArg
		wantErr bool
	}{
		{"Energy consumption, total:energy_by_source=Source MWh", mappingArg{"Energy consumption, total", "energy_by_source", "Source MWh"}, false},
		{"Ratio: a/b:numerator=Col", mappingArg{"Ratio: a/b", "numerator", "Col"}, false},
		{"KPI:field=", mappingArg{"KPI", "field", ""}, false},
		{"KPI field=col", mappingArg{}, true},
		{":field=col", mappingArg{}, true},
		{"KPI:=col", mappingArg{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMapping(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMapping() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseMapping() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseAssignment(t *testing.T) {
	kpi, value, err := parseAssignment("Anti-corruption policy = We audit = yearly")
	if err != nil {
		t.Fatal(err)
	}
	if kpi != "Anti-corruption policy" || value != "We audit = yearly" {
		t.Errorf("parseAssignment() = %q, %q", kpi, value)
	}
	if _, _, err := parseAssignment("no equals"); err == nil {
		t.Error("expected error")
	}
}

func writeFixtures(t *testing.T) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"kpis.hjson": `{
  "Energy consumption, total": {
    is_numerical: true
    required_data: [{name: "total_energy_consumption"}, {name: "energy_by_source"}]
    formula: "total_energy_consumption + energy_by_source"
  }
}`,
		"references.json": `{"Energy consumption, total": {"best_score": 500, "worst_score": 2500, "unit": "MWh"}}`,
		"energy.csv":      "Total,Source\n1000,500\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return &config.AppConfig{
		DataPath:        dir,
		SessionDir:      filepath.Join(dir, "calculated"),
		CatalogueFile:   filepath.Join(dir, "kpis.hjson"),
		ReferenceFile:   filepath.Join(dir, "references.json"),
		IndustryFile:    filepath.Join(dir, "industries.csv"),
		AgentsFile:      filepath.Join(dir, "agents.yaml"),
		NameMappingFile: filepath.Join(dir, "names.json"),
	}
}

func TestSessionFlagsBuild(t *testing.T) {
	c := writeFixtures(t)
	ctx := context.Background()
	d, err := buildDeps(ctx, c)
	if err != nil {
		t.Fatalf("buildDeps() error = %v", err)
	}
	defer d.Close()
	if d.index != nil || d.narrative != nil || d.advisor != nil {
		t.Error("optional services should be disabled without industry file and API key")
	}

	f := sessionFlags{
		tables: []string{filepath.Join(c.DataPath, "energy.csv")},
		mappings: []string{
			"Energy consumption, total:total_energy_consumption=Total",
			"Energy consumption, total:energy_by_source=Source",
		},
		manual: []string{"Water withdrawal=42"},
	}
	st, err := f.build(ctx, d)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	ks := st.KPI("Energy consumption, total")
	if ks.Status != reconcile.StatusComplete || ks.Value.Number != 1500 {
		t.Errorf("energy = %+v", ks)
	}
	if st.KPI("Water withdrawal").Value.Number != 42 {
		t.Errorf("manual value not applied")
	}

	bad := sessionFlags{mappings: []string{"Energy consumption, total:nope=Total"}}
	if _, err := bad.build(ctx, d); err == nil {
		t.Error("unknown field should fail")
	}
}

func TestCalculateCommand(t *testing.T) {
	cfg = writeFixtures(t)
	var out bytes.Buffer
	calculateCmd.SetOut(&out)
	calculateCmd.SetContext(context.Background())
	calcFlags = sessionFlags{
		tables:   []string{filepath.Join(cfg.DataPath, "energy.csv")},
		mappings: []string{"Energy consumption, total:total_energy_consumption=Total", "Energy consumption, total:energy_by_source=Source"},
	}
	defer func() { calcFlags = sessionFlags{} }()

	if err := calculateCmd.RunE(calculateCmd, nil); err != nil {
		t.Fatalf("calculate error = %v", err)
	}
	var got []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid output %q: %v", out.String(), err)
	}
	if len(got) != 1 || got[0].Status != "complete" {
		t.Errorf("output = %+v", got)
	}
	if !strings.Contains(out.String(), `"value": 1500`) {
		t.Errorf("output lacks value: %s", out.String())
	}
}
