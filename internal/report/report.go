// Package report renders a session scorecard and advisory text as a
// standalone HTML page.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"esg-kpi/internal/session"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Report is the content of one HTML report.
type Report struct {
	Scorecard *session.Scorecard
	// Advice is markdown, typically the output of a full analysis.
	Advice string
}

type view struct {
	*session.Scorecard
	Advice template.HTML
}

// Render writes the report as HTML to w.
func Render(w io.Writer, r Report) error {
	if r.Scorecard == nil {
		return fmt.Errorf("report has no scorecard")
	}
	v := view{Scorecard: r.Scorecard}
	if strings.TrimSpace(r.Advice) != "" {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(cleanMarkdown(r.Advice)), &buf); err != nil {
			return fmt.Errorf("failed to render advice: %w", err)
		}
		// goldmark escapes raw HTML unless WithUnsafe is set.
		v.Advice = template.HTML(buf.String())
	}
	if err := page.Execute(w, v); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteFile renders the report to path via a temporary file and rename.
func WriteFile(path string, r Report) error {
	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	log.Info().Str("path", path).Int("kpis", len(r.Scorecard.KPIs)).Msg("Report written")
	return nil
}

// Open shows a written report in the default browser.
func Open(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return browser.OpenFile(abs)
}

// cleanMarkdown strips an outer code fence that models sometimes add.
func cleanMarkdown(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) >= 6 {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
		s = strings.TrimPrefix(s, "markdown")
		s = strings.TrimSpace(s)
	}
	return s
}

var funcs = template.FuncMap{
	"score": func(p *float64) string {
		if p == nil {
			return "–"
		}
		return fmt.Sprintf("%.1f", *p)
	},
	"labelClass": func(label string) string {
		switch label {
		case session.LabelOnTrack:
			return "ok"
		case session.LabelNeedsAttention:
			return "warn"
		}
		return ""
	},
}

var page = template.Must(template.New("report").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>ESG KPI Report{{if .Industry}} · {{.Industry}}{{end}}</title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 960px; color: #222; }
table { border-collapse: collapse; width: 100%; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
th { background: #f3f3f3; }
.ok { color: #1a7f37; }
.warn { color: #b35900; }
.err { color: #a00; font-size: 0.9em; }
.summary span { display: inline-block; margin-right: 2em; }
</style>
</head>
<body>
<h1>ESG KPI Report{{if .Industry}}: {{.Industry}}{{end}}</h1>
<p class="summary">
<span>Overall score: <strong>{{printf "%.1f" .Overall}}</strong></span>
<span>Completion: {{printf "%.1f" .Completion}}% ({{.Scored}}/{{.Total}})</span>
{{if .TopCategory}}<span>Top category: {{.TopCategory}}</span>{{end}}
</p>

<h2>Categories</h2>
<table>
<tr><th>Category</th><th>Score</th><th>Scored KPIs</th></tr>
{{range .Categories}}<tr><td>{{.Category}}</td><td>{{printf "%.1f" .Score}}</td><td>{{.Scored}}</td></tr>
{{end}}</table>

<h2>KPIs</h2>
<table>
<tr><th>KPI</th><th>Category</th><th>Value</th><th>Score</th><th>Status</th></tr>
{{range .KPIs}}<tr>
<td>{{.KPI}}</td><td>{{.Category}}</td><td>{{.Value}}{{if .Unit}} {{.Unit}}{{end}}</td><td>{{score .Score}}</td>
<td>{{if .Label}}<span class="{{labelClass .Label}}">{{.Label}}</span>{{end}}{{if .Error}}<span class="err">{{.Error}}</span>{{end}}</td>
</tr>
{{end}}</table>
{{if .Advice}}
<h2>Advice</h2>
<div class="advice">
{{.Advice}}
</div>
{{end}}
<p><small>Session {{.SessionID}} · generated {{.GeneratedAt.Format "2006-01-02 15:04"}}</small></p>
</body>
</html>
`))
