package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type listIndustriesInput struct {
	Query string `json:"query,omitempty" jsonschema:"Optional case-insensitive substring of the industry name"`
}

type industryInput struct {
	Industry string `json:"industry" jsonschema:"Industry name as returned by list_industries"`
}

type listKPIsInput struct {
	Industry string `json:"industry,omitempty" jsonschema:"Optional industry; defaults to the session industry, or the whole catalogue"`
}

type kpiInput struct {
	KPI string `json:"kpi" jsonschema:"Exact KPI name"`
}

type loadTableInput struct {
	Path string `json:"path,omitempty" jsonschema:"Path to a .csv or .html file"`
	CSV  string `json:"csv,omitempty" jsonschema:"Inline CSV content, used when no path is given"`
	Name string `json:"name,omitempty" jsonschema:"Display name for inline CSV"`
	KPI  string `json:"kpi,omitempty" jsonschema:"Attach the table to this KPI only instead of the whole session"`
}

type setMappingInput struct {
	KPI    string `json:"kpi" jsonschema:"Exact KPI name"`
	Field  string `json:"field" jsonschema:"Required field of the KPI"`
	Column string `json:"column,omitempty" jsonschema:"Source column in the uploaded table; empty clears the assignment"`
}

type manualValueInput struct {
	KPI   string `json:"kpi" jsonschema:"KPI name"`
	Value string `json:"value" jsonschema:"Number for numeric KPIs, text for qualitative KPIs"`
}

type normalizeInput struct {
	KPI   string  `json:"kpi" jsonschema:"Exact KPI name"`
	Value float64 `json:"value" jsonschema:"Raw KPI value in the KPI's unit"`
}

type narrativeInput struct {
	KPI  string `json:"kpi" jsonschema:"Qualitative KPI name"`
	Text string `json:"text,omitempty" jsonschema:"Narrative to score; defaults to the session value of the KPI"`
}

type adviseInput struct {
	Type     string `json:"type" jsonschema:"One of data_overview, full_analysis, question, chat"`
	Question string `json:"question,omitempty" jsonschema:"Question or chat message"`
	Context  string `json:"context,omitempty" jsonschema:"Previous analysis or conversation to answer against"`
}

type reportInput struct {
	Path string `json:"path,omitempty" jsonschema:"Output file; defaults to the session directory"`
	Open bool   `json:"open,omitempty" jsonschema:"Open the report in the default browser"`
}

type nameInput struct {
	Name string `json:"name" jsonschema:"Original KPI name or a sanitized file name"`
}

type emptyInput struct{}

func (s *Server) registerTools(srv *mcp.Server) {
	// Catalogue and industries
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_industries",
		Description: "List the industries of the KPI index, optionally filtered by a search string. Guidance: call 'set_industry' next to scope the session.",
	}, s.handleListIndustries)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "set_industry",
		Description: "Select the industry whose KPIs this session tracks. Scorecard completion is measured against the industry's KPI count.",
	}, s.handleSetIndustry)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_kpis",
		Description: "List KPIs grouped by Environmental, Social and Governance for an industry, with each KPI's current status in the session.",
	}, s.handleListKPIs)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_kpi",
		Description: "Get the catalogue definition of a KPI: required fields, formula, scoring reference and industry details.",
	}, s.handleGetKPI)

	// Data and mapping
	mcp.AddTool(srv, &mcp.Tool{
		Name: "load_table",
		Description: "Load a CSV or HTML table. Without 'kpi' it becomes the shared upload: every tracked KPI is auto-mapped by exact column name and recalculated. " +
			"Guidance: check 'get_mapping_status' for KPIs that stay incomplete and assign columns with 'set_mapping'.",
	}, s.handleLoadTable)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "auto_map",
		Description: "Re-run exact-name column matching for a KPI. Existing assignments are kept.",
	}, s.handleAutoMap)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "set_mapping",
		Description: "Assign a table column to a required field of a KPI, or clear it with an empty column. The KPI is recalculated immediately.",
	}, s.handleSetMapping)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_mapping_status",
		Description: "Show the required fields of a KPI, their assigned columns and the mapping status (pending, incomplete, invalid, complete).",
	}, s.handleGetMappingStatus)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "calculate_kpi",
		Description: "Recalculate a KPI from its mapped data and return its value, status and any error.",
	}, s.handleCalculateKPI)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "set_manual_value",
		Description: "Enter a KPI value by hand. Numeric KPIs require a number; qualitative KPIs take the narrative text.",
	}, s.handleSetManualValue)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_kpi_status",
		Description: "List every KPI of the session with its status, value and source.",
	}, s.handleListKPIStatus)

	// Scoring
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "normalize_value",
		Description: "Map a raw KPI value to a 0-100 score using the KPI's best and worst reference values.",
	}, s.handleNormalizeValue)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "score_narrative",
		Description: "Score a qualitative answer between 0 and 1 by its embedding distance to the KPI's best and worst exemplar responses.",
	}, s.handleScoreNarrative)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_scorecard",
		Description: "Score every KPI with a value, average per category and overall, and report completion. Requires at least one KPI value.",
	}, s.handleGetScorecard)

	// Advice and reporting
	mcp.AddTool(srv, &mcp.Tool{
		Name: "advise",
		Description: "Run the advisory agents on the session's KPI values. 'data_overview' checks data quality, 'full_analysis' produces a strategy, " +
			"'question' answers against the last analysis and 'chat' answers with the KPI data as context.",
	}, s.handleAdvise)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "write_report",
		Description: "Write the scorecard and the last full analysis as an HTML report.",
	}, s.handleWriteReport)

	// Names and session
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "map_kpi_name",
		Description: "Return the persistent filesystem-safe name of a KPI and its calculated-data file name.",
	}, s.handleMapKPIName)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "resolve_kpi_name",
		Description: "Resolve a sanitized name or calculated-data file name back to the original KPI name.",
	}, s.handleResolveKPIName)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "new_session",
		Description: "Discard the current tables, mappings and values and start a new session.",
	}, s.handleNewSession)
}
