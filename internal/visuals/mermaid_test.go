package visuals

import (
	"strings"
	"testing"

	"esg-kpi/internal/session"
)

func ptr(v float64) *float64 { return &v }

func TestGenerateCategoryChart(t *testing.T) {
	card := &session.Scorecard{
		Overall: 68.8,
		Categories: []session.CategoryScore{
			{Category: "Environmental", Score: 62.5, Scored: 2},
			{Category: "Social", Score: 0, Scored: 0},
			{Category: "Governance", Score: 75, Scored: 1},
		},
	}
	chart := GenerateCategoryChart(card)

	for _, want := range []string{
		"```mermaid\nxychart-beta\n",
		`title "ESG Scores (overall 68.8)"`,
		`x-axis ["Environmental", "Social", "Governance"]`,
		"bar [62.5, 0.0, 75.0]",
	} {
		if !strings.Contains(chart, want) {
			t.Errorf("chart missing %q:\n%s", want, chart)
		}
	}

	if got := GenerateCategoryChart(nil); got != "" {
		t.Errorf("GenerateCategoryChart(nil) = %q, want empty", got)
	}
}

func TestGenerateKPIChart(t *testing.T) {
	card := &session.Scorecard{
		KPIs: []session.KPIScore{
			{KPI: "Energy consumption, total", Score: ptr(50)},
			{KPI: "Unscored", Error: "no reference"},
			{KPI: `The "quoted" and very long KPI name here`, Score: ptr(90)},
		},
	}
	chart := GenerateKPIChart(card)

	if !strings.Contains(chart, "bar [50.0, 90.0]") {
		t.Errorf("unexpected bars:\n%s", chart)
	}
	if !strings.Contains(chart, "line [75.0, 75.0]") {
		t.Errorf("missing threshold line:\n%s", chart)
	}
	if strings.Contains(chart, "Unscored") {
		t.Error("unscored KPI should be left out")
	}
	if !strings.Contains(chart, `"The 'quoted' and very l…"`) {
		t.Errorf("label not sanitized:\n%s", chart)
	}

	empty := &session.Scorecard{KPIs: []session.KPIScore{{KPI: "x"}}}
	if got := GenerateKPIChart(empty); got != "" {
		t.Errorf("chart without scores = %q, want empty", got)
	}
}

func TestGenerateKPIChartLimit(t *testing.T) {
	card := &session.Scorecard{}
	for i := 0; i < 30; i++ {
		card.KPIs = append(card.KPIs, session.KPIScore{KPI: "k", Score: ptr(10)})
	}
	chart := GenerateKPIChart(card)
	if n := strings.Count(chart, "10.0"); n != maxChartKPIs {
		t.Errorf("bars = %d, want %d", n, maxChartKPIs)
	}
}
