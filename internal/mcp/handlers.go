package mcp

import (
	"context"
	"fmt"
	"path/filepath"

	"esg-kpi/internal/catalogue"
	"esg-kpi/internal/kpierr"
	"esg-kpi/internal/namemap"
	"esg-kpi/internal/reconcile"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleListIndustries(ctx context.Context, req *mcp.CallToolRequest, in listIndustriesInput) (*mcp.CallToolResult, any, error) {
	if s.deps.Index == nil {
		return errorResult(kpierr.New(kpierr.Configuration, "", "no industry index loaded")), nil, nil
	}
	industries := s.deps.Index.SearchIndustries(in.Query)
	res := map[string]interface{}{
		"industries": industries,
		"count":      len(industries),
	}
	return s.WrapResponse(res, nil, nil), nil, nil
}

func (s *Server) handleSetIndustry(ctx context.Context, req *mcp.CallToolRequest, in industryInput) (*mcp.CallToolResult, any, error) {
	if err := required("industry", in.Industry); err != nil {
		return errorResult(err), nil, nil
	}
	st := s.Session()
	if err := st.SetIndustry(in.Industry); err != nil {
		return errorResult(err), nil, nil
	}
	log.Info().Str("session", st.ID).Str("industry", in.Industry).Msg("Industry selected")

	res := map[string]interface{}{"industry": in.Industry}
	if s.deps.Index != nil {
		res["total_kpis"] = s.deps.Index.TotalKPIs(in.Industry)
	}
	return s.WrapResponse(res, nil, []string{"Call 'list_kpis' to see the industry's KPIs, then 'load_table' to upload data."}), nil, nil
}

// kpiSummary is one KPI in a category listing.
type kpiSummary struct {
	Name        string           `json:"name"`
	InCatalogue bool             `json:"in_catalogue"`
	IsNumerical bool             `json:"is_numerical"`
	Status      reconcile.Status `json:"status"`
	Value       interface{}      `json:"value,omitempty"`
}

func (s *Server) handleListKPIs(ctx context.Context, req *mcp.CallToolRequest, in listKPIsInput) (*mcp.CallToolResult, any, error) {
	st := s.Session()
	industry := in.Industry
	if industry == "" {
		industry = st.Industry()
	}

	var groups map[string][]string
	if industry != "" && s.deps.Index != nil {
		g, err := s.deps.Index.KPIsByCategory(industry)
		if err != nil {
			return errorResult(err), nil, nil
		}
		groups = g
	} else {
		groups = map[string][]string{catalogue.CategoryUnclassified: s.deps.Catalogue.Names()}
	}

	var warnings []string
	out := make(map[string][]kpiSummary, len(groups))
	for category, names := range groups {
		for _, name := range names {
			sum := kpiSummary{Name: name}
			if spec, err := s.deps.Catalogue.GetSpec(name); err == nil {
				sum.InCatalogue = true
				sum.IsNumerical = spec.IsNumerical
			}
			ks := st.KPI(name)
			sum.Status = ks.Status
			if !ks.Value.IsPending() {
				sum.Value = plainValue(ks.Value)
			}
			out[category] = append(out[category], sum)
		}
	}
	for _, sums := range out {
		for _, k := range sums {
			if !k.InCatalogue {
				warnings = append(warnings, fmt.Sprintf("%q has no catalogue definition; enter it with 'set_manual_value'.", k.Name))
			}
		}
	}

	res := map[string]interface{}{
		"industry":   industry,
		"categories": out,
	}
	return s.WrapResponse(res, warnings, nil), nil, nil
}

func (s *Server) handleGetKPI(ctx context.Context, req *mcp.CallToolRequest, in kpiInput) (*mcp.CallToolResult, any, error) {
	spec, err := s.deps.Catalogue.GetSpec(in.KPI)
	if err != nil {
		return errorResult(err), nil, nil
	}

	res := map[string]interface{}{
		"name":          spec.Name,
		"is_numerical":  spec.IsNumerical,
		"required_data": spec.RequiredData,
	}
	if spec.Formula != "" {
		res["formula"] = spec.Formula
	}
	var warnings []string
	if ref, err := s.deps.Catalogue.GetReference(in.KPI); err == nil {
		res["reference"] = ref
	} else {
		warnings = append(warnings, "No scoring reference; the KPI cannot be scored.")
	}
	if s.deps.Index != nil {
		if d, err := s.deps.Index.Details(in.KPI); err == nil {
			res["details"] = d
			res["category"] = d.Category()
		}
	}
	return s.WrapResponse(res, warnings, nil), nil, nil
}

func (s *Server) handleMapKPIName(ctx context.Context, req *mcp.CallToolRequest, in nameInput) (*mcp.CallToolResult, any, error) {
	if err := required("name", in.Name); err != nil {
		return errorResult(err), nil, nil
	}
	if s.deps.Mapper == nil {
		return errorResult(kpierr.New(kpierr.Configuration, "", "no name mapper configured")), nil, nil
	}
	sanitized := s.deps.Mapper.SanitizeAndMap(ctx, in.Name)
	res := map[string]interface{}{
		"original":  in.Name,
		"sanitized": sanitized,
		"filename":  sanitized + namemap.CalDataSuffix,
	}
	return s.WrapResponse(res, nil, nil), nil, nil
}

func (s *Server) handleResolveKPIName(ctx context.Context, req *mcp.CallToolRequest, in nameInput) (*mcp.CallToolResult, any, error) {
	if err := required("name", in.Name); err != nil {
		return errorResult(err), nil, nil
	}
	if s.deps.Mapper == nil {
		return errorResult(kpierr.New(kpierr.Configuration, "", "no name mapper configured")), nil, nil
	}
	original, ok := s.deps.Mapper.ResolveOriginal(ctx, filepath.Base(in.Name))
	if !ok {
		original = in.Name
	}
	res := map[string]interface{}{
		"name":     in.Name,
		"original": original,
		"known":    ok,
	}
	var warnings []string
	if !ok {
		warnings = append(warnings, "Name not in the mapping table; returned unchanged.")
	}
	return s.WrapResponse(res, warnings, nil), nil, nil
}

func (s *Server) handleNewSession(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	old := s.state.ID
	s.state = s.newState()
	s.lastAdvice = ""
	s.mu.Unlock()

	log.Info().Str("previous", old).Msg("Session reset")
	return s.WrapResponse(map[string]interface{}{"previous_session_id": old}, nil, nil), nil, nil
}
