package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"esg-kpi/internal/calc"
	"esg-kpi/internal/kpierr"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// ResponseEnvelope is the JSON body of every successful tool call.
type ResponseEnvelope struct {
	Data     interface{}     `json:"data"`
	Context  ResponseContext `json:"context"`
	Warnings []string        `json:"warnings,omitempty"`
	Guidance []string        `json:"guidance,omitempty"`
}

// ResponseContext identifies the session a result belongs to.
type ResponseContext struct {
	SessionID string `json:"session_id"`
	Industry  string `json:"industry,omitempty"`
}

// WrapResponse renders data as the tool result. Charts, when given, are
// appended as separate text blocks so clients can render them directly.
func (s *Server) WrapResponse(data interface{}, warnings, guidance []string, charts ...string) *mcp.CallToolResult {
	st := s.Session()
	env := ResponseEnvelope{
		Data: data,
		Context: ResponseContext{
			SessionID: st.ID,
			Industry:  st.Industry(),
		},
		Warnings: warnings,
		Guidance: guidance,
	}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("failed to encode result: %w", err))
	}

	res := &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(out)}}}
	for _, c := range charts {
		if c != "" {
			res.Content = append(res.Content, &mcp.TextContent{Text: c})
		}
	}
	return res
}

// toolError is the JSON body of a failed tool call.
type toolError struct {
	Error  string        `json:"error"`
	Detail *kpierr.Error `json:"detail,omitempty"`
}

// errorResult reports err to the client as a tool error. KPI errors keep
// their kind and fields so the caller can react to them.
func errorResult(err error) *mcp.CallToolResult {
	body := toolError{Error: err.Error()}
	var kerr *kpierr.Error
	if errors.As(err, &kerr) {
		body.Detail = kerr
	}
	out, merr := json.MarshalIndent(body, "", "  ")
	if merr != nil {
		out = []byte(err.Error())
	}
	log.Debug().Err(err).Msg("Tool call failed")
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(out)}},
	}
}

// plainValue turns a calculated value into what an LLM prompt expects.
func plainValue(v calc.Value) interface{} {
	if v.Kind == calc.KindNumeric {
		return v.Number
	}
	return v.Text
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}
