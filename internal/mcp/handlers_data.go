package mcp

import (
	"context"
	"fmt"
	"strings"

	"esg-kpi/internal/reconcile"
	"esg-kpi/internal/session"
	"esg-kpi/internal/table"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleLoadTable(ctx context.Context, req *mcp.CallToolRequest, in loadTableInput) (*mcp.CallToolResult, any, error) {
	var (
		tbl *table.Table
		err error
	)
	switch {
	case in.Path != "":
		tbl, err = table.ReadFile(in.Path)
	case in.CSV != "":
		name := in.Name
		if name == "" {
			name = "inline.csv"
		}
		tbl, err = table.ReadCSV(name, strings.NewReader(in.CSV))
	default:
		err = fmt.Errorf("either path or csv is required")
	}
	if err != nil {
		return errorResult(err), nil, nil
	}

	st := s.Session()
	res := map[string]interface{}{
		"table":   tbl.Name,
		"columns": tbl.Columns,
		"rows":    tbl.Len(),
	}

	if in.KPI != "" {
		updated, err := st.LoadKPITable(ctx, in.KPI, tbl)
		if err != nil {
			return errorResult(err), nil, nil
		}
		res["kpi"] = st.KPI(in.KPI)
		res["automapped"] = updated
		return s.WrapResponse(res, nil, mappingGuidance(st.KPI(in.KPI))), nil, nil
	}

	updated := st.LoadTable(ctx, tbl)
	counts := make(map[reconcile.Status]int)
	var incomplete []string
	for _, k := range st.KPIs() {
		counts[k.Status]++
		if k.Status == reconcile.StatusIncomplete || k.Status == reconcile.StatusInvalid {
			incomplete = append(incomplete, k.Name)
		}
	}
	res["automapped"] = updated
	res["status_counts"] = counts

	var guidance []string
	if len(incomplete) > 0 {
		guidance = append(guidance, fmt.Sprintf("%d KPIs need column assignments: %s. Use 'get_mapping_status' and 'set_mapping'.", len(incomplete), strings.Join(incomplete, "; ")))
	}
	return s.WrapResponse(res, nil, guidance), nil, nil
}

func (s *Server) handleAutoMap(ctx context.Context, req *mcp.CallToolRequest, in kpiInput) (*mcp.CallToolResult, any, error) {
	st := s.Session()
	updated, err := st.AutoMap(ctx, in.KPI)
	if err != nil {
		return errorResult(err), nil, nil
	}
	view, err := st.Mapping(in.KPI)
	if err != nil {
		return errorResult(err), nil, nil
	}
	res := map[string]interface{}{
		"updated": updated,
		"mapping": view,
	}
	var warnings []string
	if view.Table == "" {
		warnings = append(warnings, "No table loaded for this KPI.")
	}
	return s.WrapResponse(res, warnings, mappingGuidance(st.KPI(in.KPI))), nil, nil
}

func (s *Server) handleSetMapping(ctx context.Context, req *mcp.CallToolRequest, in setMappingInput) (*mcp.CallToolResult, any, error) {
	st := s.Session()
	ks, err := st.SetMapping(ctx, in.KPI, in.Field, in.Column)
	if err != nil {
		return errorResult(err), nil, nil
	}
	view, err := st.Mapping(in.KPI)
	if err != nil {
		return errorResult(err), nil, nil
	}
	res := map[string]interface{}{
		"kpi":     ks,
		"mapping": view,
	}
	return s.WrapResponse(res, nil, mappingGuidance(ks)), nil, nil
}

func (s *Server) handleGetMappingStatus(ctx context.Context, req *mcp.CallToolRequest, in kpiInput) (*mcp.CallToolResult, any, error) {
	st := s.Session()
	view, err := st.Mapping(in.KPI)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return s.WrapResponse(view, nil, mappingGuidance(st.KPI(in.KPI))), nil, nil
}

func (s *Server) handleCalculateKPI(ctx context.Context, req *mcp.CallToolRequest, in kpiInput) (*mcp.CallToolResult, any, error) {
	if _, err := s.deps.Catalogue.GetSpec(in.KPI); err != nil {
		return errorResult(err), nil, nil
	}
	ks := s.Session().Recompute(ctx, in.KPI)
	return s.WrapResponse(ks, nil, mappingGuidance(ks)), nil, nil
}

func (s *Server) handleSetManualValue(ctx context.Context, req *mcp.CallToolRequest, in manualValueInput) (*mcp.CallToolResult, any, error) {
	if err := required("kpi", in.KPI); err != nil {
		return errorResult(err), nil, nil
	}
	ks, err := s.Session().SetManualValue(in.KPI, strings.TrimSpace(in.Value))
	if err != nil {
		return errorResult(err), nil, nil
	}
	var warnings []string
	if _, err := s.deps.Catalogue.GetSpec(in.KPI); err != nil {
		warnings = append(warnings, "KPI is not in the catalogue; it is listed but cannot be scored.")
	}
	return s.WrapResponse(ks, warnings, nil), nil, nil
}

func (s *Server) handleListKPIStatus(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, any, error) {
	kpis := s.Session().KPIs()
	complete := 0
	for _, k := range kpis {
		if k.Status == reconcile.StatusComplete {
			complete++
		}
	}
	res := map[string]interface{}{
		"kpis":     kpis,
		"complete": complete,
		"total":    len(kpis),
	}
	return s.WrapResponse(res, nil, nil), nil, nil
}

// mappingGuidance suggests the next step for a KPI in the given state.
func mappingGuidance(ks session.KPIState) []string {
	switch ks.Status {
	case reconcile.StatusPending:
		return []string{"Load a table with 'load_table' or enter a value with 'set_manual_value'."}
	case reconcile.StatusIncomplete:
		return []string{"Assign the unset fields with 'set_mapping'."}
	case reconcile.StatusInvalid:
		return []string{"A mapped column is missing from the table; reassign it with 'set_mapping'."}
	case reconcile.StatusError:
		return []string{"The calculation failed; check the data in the mapped columns."}
	}
	return nil
}
