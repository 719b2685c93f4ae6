package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"esg-kpi/internal/calc"
	"esg-kpi/internal/catalogue"
	"esg-kpi/internal/kpierr"
	"esg-kpi/internal/namemap"
	"esg-kpi/internal/reconcile"
	"esg-kpi/internal/scoring"
	"esg-kpi/internal/table"
)

const (
	energyKPI  = "Energy consumption, total"
	wasteKPI   = "Percentage of total waste which is recycled"
	policyKPI  = "Anti-corruption policy"
	missingKPI = "KPI outside the catalogue"
)

func testCatalogue() *catalogue.Catalogue {
	specs := map[string]*catalogue.KPISpec{
		energyKPI: {
			IsNumerical:  true,
			RequiredData: []catalogue.RequiredField{{Name: "total_energy_consumption"}, {Name: "energy_by_source"}},
			Formula:      "total_energy_consumption + energy_by_source",
		},
		wasteKPI: {
			IsNumerical:  true,
			RequiredData: []catalogue.RequiredField{{Name: "recycled_waste"}, {Name: "total_waste"}},
			Formula:      "(recycled_waste / total_waste) * 100",
		},
		policyKPI: {
			RequiredData: []catalogue.RequiredField{{Name: "policy_text"}},
		},
	}
	refs := map[string]catalogue.KPIReference{
		energyKPI: {BestScore: 500, WorstScore: 2500, Unit: "MWh"},
		wasteKPI:  {BestScore: 90, WorstScore: 10, Unit: "Percentage"},
		policyKPI: {BestScore: 1, WorstScore: 0, BestResponse: "best", WorstResponse: "worst"},
	}
	return catalogue.New(specs, refs)
}

func testIndex() *catalogue.IndustryIndex {
	return catalogue.NewIndustryIndex([]catalogue.IndustryKPI{
		{Industry: "Automobiles", KPIName: energyKPI, Cluster: "Environmental"},
		{Industry: "Automobiles", KPIName: wasteKPI, Cluster: "Environmental"},
		{Industry: "Automobiles", KPIName: policyKPI, Cluster: "Governance"},
		{Industry: "Automobiles", KPIName: "Employee turnover", Cluster: "Social"},
	})
}

func newTestState(t *testing.T) (*State, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(Deps{
		Catalogue: testCatalogue(),
		Index:     testIndex(),
		Mapper:    namemap.NewMapper(namemap.NewFileStore(filepath.Join(dir, "kpi_name_mapping.json"))),
		DataDir:   dir,
	})
	return s, dir
}

func energyTable() *table.Table {
	return table.New("energy.csv", []string{"total_energy_consumption", "energy_by_source"}, [][]string{
		{"100", "50"},
		{"200", "100"},
	})
}

func TestLoadTableAutoMapsAndCalculates(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestState(t)

	updated := s.LoadTable(ctx, energyTable())
	if len(updated) != 1 || updated[0] != energyKPI {
		t.Errorf("LoadTable() updated = %v", updated)
	}

	st := s.KPI(energyKPI)
	if st.Status != reconcile.StatusComplete {
		t.Fatalf("Status = %v, want complete (err: %v)", st.Status, st.Error)
	}
	if st.Value != calc.Numeric(225) {
		t.Errorf("Value = %+v, want 225", st.Value)
	}

	want := filepath.Join(dir, "Energy consumption_ total_cal_data.csv")
	if st.DataFile != want {
		t.Errorf("DataFile = %q, want %q", st.DataFile, want)
	}
	back, err := table.ReadFile(want)
	if err != nil {
		t.Fatalf("calculated data not readable: %v", err)
	}
	if back.Len() != 2 || !back.HasColumn("energy_by_source") {
		t.Errorf("calculated data = %+v", back)
	}

	if s.KPI(wasteKPI).Status != reconcile.StatusPending {
		t.Errorf("unrelated KPI status = %v, want pending", s.KPI(wasteKPI).Status)
	}
}

func TestMissingColumnLeavesIncomplete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState(t)

	s.LoadTable(ctx, table.New("partial.csv", []string{"total_energy_consumption"}, [][]string{{"100"}}))

	st := s.KPI(energyKPI)
	if st.Status != reconcile.StatusIncomplete {
		t.Errorf("Status = %v, want incomplete", st.Status)
	}
	if st.Error == nil || st.Error.Kind != kpierr.MissingColumns {
		t.Errorf("Error = %v, want missing columns", st.Error)
	}
	if !st.Value.IsPending() {
		t.Errorf("Value = %+v, want pending", st.Value)
	}
}

func TestFailurePreservesLastKnownGood(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState(t)

	tbl := table.New("waste.csv", []string{"recycled", "total", "total_zero"}, [][]string{
		{"40", "100", "0"},
	})
	s.LoadTable(ctx, tbl)
	s.SetMapping(ctx, wasteKPI, "recycled_waste", "recycled")
	st, err := s.SetMapping(ctx, wasteKPI, "total_waste", "total")
	if err != nil {
		t.Fatalf("SetMapping() error: %v", err)
	}
	if st.Status != reconcile.StatusComplete || st.Value != calc.Numeric(40) {
		t.Fatalf("after good mapping: %+v", st)
	}

	st, _ = s.SetMapping(ctx, wasteKPI, "total_waste", "total_zero")
	if st.Status != reconcile.StatusError {
		t.Errorf("Status = %v, want error", st.Status)
	}
	if !errors.Is(st.Error, kpierr.Calculation) {
		t.Errorf("Error = %v, want calculation error", st.Error)
	}
	if st.Value != calc.Numeric(40) {
		t.Errorf("Value = %+v, want last-known-good 40", st.Value)
	}
}

func TestClearedMappingDropsCalculatedValue(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState(t)
	s.LoadTable(ctx, energyTable())
	if s.KPI(energyKPI).Value != calc.Numeric(225) {
		t.Fatalf("Value = %+v, want 225", s.KPI(energyKPI).Value)
	}

	s.SetMapping(ctx, energyKPI, "total_energy_consumption", "")
	st, err := s.SetMapping(ctx, energyKPI, "energy_by_source", "")
	if err != nil {
		t.Fatalf("SetMapping() error: %v", err)
	}
	if st.Status != reconcile.StatusPending {
		t.Errorf("Status = %v, want pending", st.Status)
	}
	if !st.Value.IsPending() || st.Source != "" || st.DataFile != "" {
		t.Errorf("cleared KPI = %+v, want pending value without source", st)
	}
	if _, ok := s.Values()[energyKPI]; ok {
		t.Error("Values() still reports the cleared KPI")
	}
	if _, err := s.Scorecard(ctx, Scorers{Normalizer: scoring.NewNormalizer(testCatalogue())}); !errors.Is(err, kpierr.NoData) {
		t.Errorf("Scorecard() error = %v, want no data", err)
	}
}

func TestClearedMappingKeepsManualValue(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState(t)
	s.SetManualValue(energyKPI, "900")

	s.SetMapping(ctx, energyKPI, "energy_by_source", "Source")
	st, _ := s.SetMapping(ctx, energyKPI, "energy_by_source", "")
	if st.Value != calc.Numeric(900) || st.Source != SourceManual {
		t.Errorf("manual KPI = %+v, want 900 from manual input", st)
	}
}

func TestRemovedColumnInvalidates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState(t)

	s.LoadTable(ctx, energyTable())
	if s.KPI(energyKPI).Status != reconcile.StatusComplete {
		t.Fatal("expected complete after first upload")
	}

	s.LoadTable(ctx, table.New("v2.csv", []string{"total_energy_consumption"}, [][]string{{"1"}}))
	st := s.KPI(energyKPI)
	if st.Status != reconcile.StatusInvalid {
		t.Errorf("Status = %v, want invalid", st.Status)
	}
	if st.Error == nil || st.Error.Kind != kpierr.MappingIncomplete {
		t.Errorf("Error = %v", st.Error)
	}

	view, err := s.Mapping(energyKPI)
	if err != nil {
		t.Fatal(err)
	}
	if view.Check.Status != reconcile.StatusInvalid || len(view.Check.Absent) != 1 {
		t.Errorf("Mapping() = %+v", view)
	}
}

func TestSetMappingValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState(t)

	if _, err := s.SetMapping(ctx, "Nope", "x", "y"); !errors.Is(err, kpierr.NotFound) {
		t.Errorf("unknown KPI error = %v", err)
	}
	if _, err := s.SetMapping(ctx, energyKPI, "not_a_field", "y"); !errors.Is(err, kpierr.NotFound) {
		t.Errorf("unknown field error = %v", err)
	}
}

func TestPerKPITableOverridesShared(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState(t)

	s.LoadTable(ctx, energyTable())
	updated, err := s.LoadKPITable(ctx, policyKPI, table.New("policy.csv", []string{"policy_text"}, [][]string{{"We train all staff annually."}}))
	if err != nil || !updated {
		t.Fatalf("LoadKPITable() = %v, %v", updated, err)
	}

	st := s.KPI(policyKPI)
	if st.Value != calc.Narrative("We train all staff annually.") {
		t.Errorf("Value = %+v", st.Value)
	}
	if s.KPI(energyKPI).Value != calc.Numeric(225) {
		t.Error("shared-table KPI lost its value")
	}
}

func TestSetManualValue(t *testing.T) {
	s, _ := newTestState(t)

	st, err := s.SetManualValue(energyKPI, "1,500")
	if err != nil {
		t.Fatalf("SetManualValue() error: %v", err)
	}
	if st.Value != calc.Numeric(1500) || st.Source != SourceManual || st.Status != reconcile.StatusComplete {
		t.Errorf("SetManualValue() = %+v", st)
	}

	if _, err := s.SetManualValue(energyKPI, "a lot"); !errors.Is(err, kpierr.Calculation) {
		t.Errorf("non-numeric manual value error = %v", err)
	}

	st, _ = s.SetManualValue(missingKPI, "12")
	if st.Value != calc.Numeric(12) {
		t.Errorf("uncatalogued manual value = %+v", st.Value)
	}
}

func TestSetIndustry(t *testing.T) {
	s, _ := newTestState(t)
	if err := s.SetIndustry("Shipping"); !errors.Is(err, kpierr.NotFound) {
		t.Errorf("SetIndustry(unknown) error = %v", err)
	}
	if err := s.SetIndustry("Automobiles"); err != nil {
		t.Fatal(err)
	}
	if len(s.KPIs()) != 3 {
		t.Errorf("KPIs() = %d entries, want 3", len(s.KPIs()))
	}
}

type staticEmbedder map[string][]float32

func (e staticEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e[t]
	}
	return out, nil
}

func TestScorecard(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState(t)
	s.SetIndustry("Automobiles")

	scorers := Scorers{
		Normalizer: scoring.NewNormalizer(testCatalogue()),
		Narrative: scoring.NewNarrativeScorer(testCatalogue(), staticEmbedder{
			"best":  {0, 0},
			"worst": {4, 0},
			"mine":  {1, 0},
		}, 0),
	}

	_, first := s.Scorecard(ctx, scorers)
	if !errors.Is(first, kpierr.NoData) {
		t.Fatalf("empty Scorecard() error = %v, want no data", first)
	}
	first.(*kpierr.Error).Detail = "changed by caller"
	if _, again := s.Scorecard(ctx, scorers); !strings.Contains(again.Error(), "Please input data") {
		t.Errorf("empty Scorecard() error = %v, want a fresh error", again)
	}

	s.LoadTable(ctx, energyTable())
	s.SetManualValue(wasteKPI, "30")
	s.SetManualValue(policyKPI, "mine")

	card, err := s.Scorecard(ctx, scorers)
	if err != nil {
		t.Fatalf("Scorecard() error: %v", err)
	}

	scores := map[string]float64{}
	for _, k := range card.KPIs {
		if k.Score == nil {
			t.Fatalf("KPI %q unscored: %s", k.KPI, k.Error)
		}
		scores[k.KPI] = *k.Score
	}
	if scores[energyKPI] != 100 || scores[wasteKPI] != 25 || scores[policyKPI] != 75 {
		t.Errorf("scores = %v", scores)
	}

	cats := map[string]CategoryScore{}
	for _, c := range card.Categories {
		cats[c.Category] = c
	}
	if cats["Environmental"].Score != 62.5 || cats["Governance"].Score != 75 || cats["Social"].Scored != 0 {
		t.Errorf("categories = %+v", card.Categories)
	}
	// Social has no score, so it does not drag the overall down.
	if card.Overall != 68.8 {
		t.Errorf("Overall = %v, want 68.8", card.Overall)
	}
	if card.TopCategory != "Governance" {
		t.Errorf("TopCategory = %q", card.TopCategory)
	}
	if card.Total != 4 || card.Scored != 3 || card.Completion != 75 {
		t.Errorf("completion = %d/%d (%v%%)", card.Scored, card.Total, card.Completion)
	}
}

func TestDataFileSkippedWithoutDir(t *testing.T) {
	s := New(Deps{Catalogue: testCatalogue()})
	s.LoadTable(context.Background(), energyTable())
	if st := s.KPI(energyKPI); st.DataFile != "" || st.Status != reconcile.StatusComplete {
		t.Errorf("KPI() = %+v", st)
	}
}

func TestDataFileWriteFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	s := New(Deps{
		Catalogue: testCatalogue(),
		Mapper:    namemap.NewMapper(namemap.NewFileStore(filepath.Join(dir, "map.json"))),
		DataDir:   filepath.Join(blocker, "sub"),
	})
	s.LoadTable(context.Background(), energyTable())
	st := s.KPI(energyKPI)
	if st.Status != reconcile.StatusComplete || st.DataFile != "" {
		t.Errorf("KPI() = %+v", st)
	}
}
