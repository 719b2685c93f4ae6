package mcp

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"esg-kpi/internal/advisor"
	"esg-kpi/internal/calc"
	"esg-kpi/internal/kpierr"
	"esg-kpi/internal/report"
	"esg-kpi/internal/visuals"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleNormalizeValue(ctx context.Context, req *mcp.CallToolRequest, in normalizeInput) (*mcp.CallToolResult, any, error) {
	if s.deps.Normalizer == nil {
		return errorResult(kpierr.New(kpierr.Configuration, in.KPI, "no normalizer configured")), nil, nil
	}
	score, err := s.deps.Normalizer.Normalize(in.KPI, in.Value)
	if err != nil {
		return errorResult(err), nil, nil
	}
	res := map[string]interface{}{
		"kpi":   in.KPI,
		"value": in.Value,
		"score": math.Round(score*10) / 10,
	}
	return s.WrapResponse(res, nil, nil), nil, nil
}

func (s *Server) handleScoreNarrative(ctx context.Context, req *mcp.CallToolRequest, in narrativeInput) (*mcp.CallToolResult, any, error) {
	if s.deps.Narrative == nil {
		return errorResult(kpierr.New(kpierr.EmbeddingService, in.KPI, "no embedding service configured; set GEMINI_API_KEY")), nil, nil
	}
	text := in.Text
	if text == "" {
		v := s.Session().KPI(in.KPI).Value
		if v.Kind != calc.KindNarrative {
			return errorResult(kpierr.New(kpierr.NoData, in.KPI, "no narrative given and none stored in the session")), nil, nil
		}
		text = v.Text
	}

	score, err := s.deps.Narrative.Score(ctx, in.KPI, text)
	if err != nil {
		return errorResult(err), nil, nil
	}
	res := map[string]interface{}{
		"kpi":   in.KPI,
		"score": score,
	}
	return s.WrapResponse(res, nil, nil), nil, nil
}

func (s *Server) handleGetScorecard(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, any, error) {
	card, err := s.Session().Scorecard(ctx, s.scorers())
	if err != nil {
		return errorResult(err), nil, nil
	}

	var warnings []string
	for _, k := range card.KPIs {
		if k.Error != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", k.KPI, k.Error))
		}
	}
	var charts []string
	if s.opts.EnableMermaidCharts {
		charts = append(charts, visuals.GenerateCategoryChart(card), visuals.GenerateKPIChart(card))
	}
	guidance := []string{"Call 'advise' with type 'full_analysis' for improvement strategies."}
	return s.WrapResponse(card, warnings, guidance, charts...), nil, nil
}

func (s *Server) handleAdvise(ctx context.Context, req *mcp.CallToolRequest, in adviseInput) (*mcp.CallToolResult, any, error) {
	if s.deps.Advisor == nil {
		return errorResult(kpierr.New(kpierr.Advisory, "", "no advisor configured; set GEMINI_API_KEY")), nil, nil
	}

	areq := advisor.Request{
		Type:     advisor.RequestType(in.Type),
		Data:     advisor.DataFromValues(s.Session().Values()),
		Industry: s.Session().Industry(),
		Question: in.Question,
		Context:  in.Context,
	}
	if areq.Type == advisor.TypeQuestion && areq.Context == "" {
		// Questions refer to this session's last full analysis.
		s.mu.Lock()
		areq.Context = s.lastAdvice
		s.mu.Unlock()
	}
	advice, err := s.deps.Advisor.Advise(ctx, areq)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if areq.Type == advisor.TypeFullAnalysis {
		s.mu.Lock()
		s.lastAdvice = advice
		s.mu.Unlock()
	}

	res := map[string]interface{}{
		"type":   in.Type,
		"advice": advice,
	}
	return s.WrapResponse(res, nil, nil), nil, nil
}

func (s *Server) handleWriteReport(ctx context.Context, req *mcp.CallToolRequest, in reportInput) (*mcp.CallToolResult, any, error) {
	st := s.Session()
	card, err := st.Scorecard(ctx, s.scorers())
	if err != nil {
		return errorResult(err), nil, nil
	}

	path := in.Path
	if path == "" {
		dir := s.deps.SessionDir
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, "report-"+strings.SplitN(st.ID, "-", 2)[0]+".html")
	}

	s.mu.Lock()
	advice := s.lastAdvice
	s.mu.Unlock()

	if err := report.WriteFile(path, report.Report{Scorecard: card, Advice: advice}); err != nil {
		return errorResult(kpierr.Wrap(kpierr.Persistence, "", err)), nil, nil
	}

	var warnings []string
	if advice == "" {
		warnings = append(warnings, "No full analysis yet; the report contains the scorecard only.")
	}
	if in.Open {
		if err := report.Open(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to open report")
			warnings = append(warnings, "Could not open a browser: "+err.Error())
		}
	}
	return s.WrapResponse(map[string]interface{}{"path": path}, warnings, nil), nil, nil
}
