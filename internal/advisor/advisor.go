// Package advisor is the client side of the advisory pipeline: a team of
// LLM agents that turns KPI data into analysis, strategy and answers.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"esg-kpi/internal/calc"
	"esg-kpi/internal/kpierr"
	"esg-kpi/internal/llm"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// RequestType selects what the pipeline produces.
type RequestType string

const (
	TypeDataOverview RequestType = "data_overview"
	TypeFullAnalysis RequestType = "full_analysis"
	TypeQuestion     RequestType = "question"
	TypeChat         RequestType = "chat"
)

// Request is the payload sent to the advisor.
type Request struct {
	Type     RequestType    `json:"type"`
	Data     map[string]any `json:"data"`
	Industry string         `json:"industry"`
	Question string         `json:"question,omitempty"`
	Context  string         `json:"context,omitempty"`
}

// DataFromValues converts session values into request data: numbers stay
// numbers, narratives become strings. Pending values are skipped.
func DataFromValues(values map[string]calc.Value) map[string]any {
	data := make(map[string]any, len(values))
	for name, v := range values {
		switch v.Kind {
		case calc.KindNumeric:
			data[name] = v.Number
		case calc.KindNarrative:
			data[name] = v.Text
		}
	}
	return data
}

// Advisor produces markdown advice for a request.
type Advisor interface {
	Advise(ctx context.Context, req Request) (string, error)
}

// DataReport is the structured output of the data-processing agent.
type DataReport struct {
	ProcessedData     map[string]any `json:"processed_data"`
	QualityMetrics    map[string]any `json:"data_quality_metrics"`
	Issues            []string       `json:"identified_issues"`
	CompletenessScore float64        `json:"completeness_score"`
}

// Pipeline runs data processing, per-pillar analyses and strategy on an
// llm.Provider. It keeps no per-session state; questions carry the analysis
// they refer to in Request.Context.
type Pipeline struct {
	provider llm.Provider
	cfg      Config
}

var _ Advisor = (*Pipeline)(nil)

// NewPipeline creates a pipeline.
func NewPipeline(provider llm.Provider, cfg Config) *Pipeline {
	return &Pipeline{provider: provider, cfg: cfg}
}

// Advise dispatches on the request type.
func (p *Pipeline) Advise(ctx context.Context, req Request) (string, error) {
	log.Info().Str("type", string(req.Type)).Str("industry", req.Industry).Int("kpis", len(req.Data)).Msg("Advisory request")

	var (
		out string
		err error
	)
	switch req.Type {
	case TypeDataOverview:
		out, err = p.dataOverview(ctx, req)
	case TypeFullAnalysis:
		out, err = p.fullAnalysis(ctx, req)
	case TypeQuestion:
		out, err = p.question(ctx, req)
	case TypeChat:
		out, err = p.chat(ctx, req)
	default:
		return "", kpierr.New(kpierr.Advisory, "", fmt.Sprintf("unknown request type %q", req.Type))
	}
	if err != nil {
		log.Error().Err(err).Str("type", string(req.Type)).Msg("Advisory request failed")
		return "", kpierr.Wrap(kpierr.Advisory, "", err)
	}
	return out, nil
}

func requireData(req Request) error {
	if len(req.Data) == 0 {
		return fmt.Errorf("Please input data for at least one KPI before requesting advice")
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, role, prompt string, jsonMode bool) (string, error) {
	agent, ok := p.cfg.Agents[role]
	if !ok {
		return "", fmt.Errorf("agent %q not configured", role)
	}
	opts := map[string]interface{}{"temperature": agent.Temperature}
	if agent.Model != "" {
		opts["model"] = agent.Model
	}
	if jsonMode {
		opts["response_format"] = map[string]interface{}{"type": "json_object"}
	}

	out, err := p.provider.GenerateResponse(ctx, prompt, agent.SystemPrompt(), opts)
	if err != nil {
		return "", fmt.Errorf("%s agent: %w", role, err)
	}
	return strings.TrimSpace(out), nil
}

func (p *Pipeline) processData(ctx context.Context, req Request) (DataReport, string, error) {
	prompt, err := render(dataPrompt, req)
	if err != nil {
		return DataReport{}, "", err
	}
	raw, err := p.run(ctx, AgentData, prompt, true)
	if err != nil {
		return DataReport{}, "", err
	}

	var report DataReport
	if err := smartParse(raw, &report); err != nil {
		// Downstream agents can still work from the raw text.
		log.Warn().Err(err).Msg("Data agent returned unparseable JSON")
		return DataReport{ProcessedData: req.Data}, raw, nil
	}
	if report.ProcessedData == nil {
		report.ProcessedData = req.Data
	}
	return report, raw, nil
}

func (p *Pipeline) dataOverview(ctx context.Context, req Request) (string, error) {
	if err := requireData(req); err != nil {
		return "", err
	}
	report, _, err := p.processData(ctx, req)
	if err != nil {
		return "", err
	}
	return formatOverview(req.Industry, report), nil
}

func (p *Pipeline) fullAnalysis(ctx context.Context, req Request) (string, error) {
	if err := requireData(req); err != nil {
		return "", err
	}
	report, _, err := p.processData(ctx, req)
	if err != nil {
		return "", err
	}

	categories := []string{AgentEnvironmental, AgentSocial, AgentGovernance}
	analyses := make([]string, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			prompt, err := render(categoryPrompt, map[string]any{
				"Category": category,
				"Industry": req.Industry,
				"Data":     report,
			})
			if err != nil {
				return err
			}
			out, err := p.run(gctx, category, prompt, false)
			if err != nil {
				return err
			}
			analyses[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	byCategory := make(map[string]string, len(categories))
	for i, c := range categories {
		byCategory[c] = analyses[i]
	}
	prompt, err := render(strategyPrompt, map[string]any{
		"Industry": req.Industry,
		"Analyses": byCategory,
	})
	if err != nil {
		return "", err
	}
	return p.run(ctx, AgentStrategy, prompt, false)
}

func (p *Pipeline) question(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", fmt.Errorf("question is empty")
	}
	if strings.TrimSpace(req.Context) == "" {
		return "", fmt.Errorf("no analysis available yet; run a full analysis first")
	}

	prompt, err := render(questionPrompt, map[string]any{
		"Industry": req.Industry,
		"Context":  req.Context,
		"Question": req.Question,
	})
	if err != nil {
		return "", err
	}
	return p.run(ctx, AgentCommunication, prompt, false)
}

func (p *Pipeline) chat(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", fmt.Errorf("message is empty")
	}
	prompt, err := render(chatPrompt, req)
	if err != nil {
		return "", err
	}
	return p.run(ctx, AgentCommunication, prompt, false)
}

func formatOverview(industry string, r DataReport) string {
	var sb strings.Builder
	sb.WriteString("## Data Overview")
	if industry != "" {
		sb.WriteString(" (" + industry + ")")
	}
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("**Completeness score:** %.1f\n\n", r.CompletenessScore))

	if len(r.QualityMetrics) > 0 {
		sb.WriteString("### Data quality\n\n")
		keys := make([]string, 0, len(r.QualityMetrics))
		for k := range r.QualityMetrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- %s: %v\n", k, r.QualityMetrics[k]))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("### Issues\n\n")
	if len(r.Issues) == 0 {
		sb.WriteString("No issues identified.\n")
	}
	for _, issue := range r.Issues {
		sb.WriteString("- " + issue + "\n")
	}
	return sb.String()
}

var funcs = template.FuncMap{
	"json": func(v any) string {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	},
}

var (
	dataPrompt = template.Must(template.New("data").Funcs(funcs).Parse(`Process and validate this ESG data from the {{.Industry}} industry:
{{json .Data}}

Steps:
1. Validate data structure and types
2. Check for missing or invalid values
3. Normalize metrics to standard ranges
4. Flag any anomalies or outliers

Return a JSON object with the keys "processed_data", "data_quality_metrics",
"identified_issues" (array of strings) and "completeness_score" (0-100).`))

	categoryPrompt = template.Must(template.New("category").Funcs(funcs).Parse(`Analyze {{.Category}} performance for the {{.Industry}} industry:
{{json .Data}}

Provide:
1. Performance assessment
2. Gap analysis
3. Risk evaluation
4. Improvement opportunities

Answer in Markdown.`))

	strategyPrompt = template.Must(template.New("strategy").Funcs(funcs).Parse(`Develop a strategy based on these analyses for the {{.Industry}} industry:
{{range $category, $analysis := .Analyses}}
### {{$category}}
{{$analysis}}
{{end}}
Create:
1. Prioritized improvements
2. Action plans
3. Implementation timeline
4. Resource requirements

Return the strategy in Markdown.`))

	questionPrompt = template.Must(template.New("question").Funcs(funcs).Parse(`Based on this ESG analysis for the {{.Industry}} industry:
{{.Context}}

Answer the question: {{.Question}}`))

	chatPrompt = template.Must(template.New("chat").Funcs(funcs).Parse(`You are advising a company in the {{.Industry}} industry. Its current ESG KPI data:
{{json .Data}}
{{if .Context}}
Conversation so far:
{{.Context}}
{{end}}
User: {{.Question}}`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
