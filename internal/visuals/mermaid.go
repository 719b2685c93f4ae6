package visuals

import (
	"fmt"
	"strings"

	"esg-kpi/internal/session"
)

// maxChartKPIs limits the KPI chart so the text chart stays readable.
const maxChartKPIs = 20

// GenerateCategoryChart creates a Mermaid bar chart of the pillar scores.
func GenerateCategoryChart(card *session.Scorecard) string {
	if card == nil || len(card.Categories) == 0 {
		return ""
	}

	var labels []string
	var values []string
	for _, c := range card.Categories {
		labels = append(labels, quote(c.Category))
		values = append(values, fmt.Sprintf("%.1f", c.Score))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"ESG Scores (overall %.1f)\"\n", card.Overall))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"Score\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateKPIChart creates a Mermaid bar chart of the scored KPIs with the
// on-track threshold drawn as a line.
func GenerateKPIChart(card *session.Scorecard) string {
	if card == nil {
		return ""
	}

	var labels []string
	var values []string
	var threshold []string
	for _, k := range card.KPIs {
		if k.Score == nil {
			continue
		}
		if len(values) == maxChartKPIs {
			break
		}
		labels = append(labels, quote(shorten(k.KPI, 24)))
		values = append(values, fmt.Sprintf("%.1f", *k.Score))
		threshold = append(threshold, fmt.Sprintf("%.1f", session.OnTrackThreshold))
	}
	if len(values) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"KPI Scores\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"Score\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(threshold, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// quote makes a label safe inside a Mermaid axis list.
func quote(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "'") + "\""
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
