package mcp

import (
	"context"
	"encoding/json"
	"slices"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestServerOverTransport(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, false)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := s.MCPServer().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{"load_table", "set_mapping", "calculate_kpi", "normalize_value", "score_narrative", "get_scorecard", "advise"} {
		if !slices.Contains(names, want) {
			t.Errorf("tool %q not registered", want)
		}
	}

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "normalize_value",
		Arguments: map[string]any{"kpi": energyKPI, "value": 1000},
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	var env struct {
		Data struct {
			Score float64 `json:"score"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(text(t, res, 0)), &env); err != nil {
		t.Fatal(err)
	}
	if env.Data.Score != 75 {
		t.Errorf("score = %v, want 75", env.Data.Score)
	}

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "get_kpi",
		Arguments: map[string]any{"kpi": "Unknown"},
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if !res.IsError {
		t.Error("get_kpi(Unknown) should be a tool error")
	}
}
