package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"esg-kpi/internal/calc"
	"esg-kpi/internal/session"
)

func sampleCard() *session.Scorecard {
	score := 62.5
	return &session.Scorecard{
		SessionID: "abc",
		Industry:  "Banks & <Insurers>",
		KPIs: []session.KPIScore{
			{KPI: "Energy consumption, total", Category: "Environmental", Value: calc.Numeric(1500), Unit: "MWh", Score: &score, Label: session.LabelNeedsAttention},
			{KPI: "Anti-corruption policy", Category: "Governance", Value: calc.Narrative("<script>alert(1)</script>"), Error: "narrative scoring unavailable"},
		},
		Categories:  []session.CategoryScore{{Category: "Environmental", Score: 62.5, Scored: 1}},
		Overall:     62.5,
		Scored:      1,
		Total:       4,
		Completion:  25,
		TopCategory: "Environmental",
		GeneratedAt: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	advice := "```markdown\n# Strategy\n\n| Step | Owner |\n|---|---|\n| Cut water | Ops |\n\n<b>raw</b>\n```"
	if err := Render(&buf, Report{Scorecard: sampleCard(), Advice: advice}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"Banks &amp; &lt;Insurers&gt;",
		"<strong>62.5</strong>",
		"25.0% (1/4)",
		"<td>1500 MWh</td>",
		`<span class="warn">Needs Attention</span>`,
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"<h1>Strategy</h1>",
		"<td>Cut water</td>",
		"generated 2024-05-01 10:30",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Error("narrative value was not escaped")
	}
	if strings.Contains(html, "<b>raw</b>") {
		t.Error("raw HTML in advice should not be passed through")
	}
}

func TestRenderWithoutAdvice(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, Report{Scorecard: sampleCard()}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(buf.String(), "<h2>Advice</h2>") {
		t.Error("advice section rendered without advice")
	}

	if err := Render(&buf, Report{}); err == nil {
		t.Error("Render() without scorecard should fail")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.html")
	if err := WriteFile(path, Report{Scorecard: sampleCard()}); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "<!DOCTYPE html>") {
		t.Errorf("unexpected content: %.40s", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestCleanMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"# A", "# A"},
		{"```markdown\n# A\n```", "# A"},
		{"```\n# B\n```", "# B"},
		{"  text  ", "text"},
	}
	for _, tt := range tests {
		if got := cleanMarkdown(tt.in); got != tt.want {
			t.Errorf("cleanMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
