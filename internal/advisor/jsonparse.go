package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// smartParse decodes model output into out, trying strict JSON, then a
// repaired version, then Hjson.
func smartParse(input string, out interface{}) error {
	input = stripFence(input)
	if !strings.Contains(input, "{") {
		return fmt.Errorf("model output contains no JSON object")
	}

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	if repaired, err := jsonrepair.RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), out); err == nil {
			return nil
		}
	}

	var generic interface{}
	if err := hjson.Unmarshal([]byte(input), &generic); err == nil {
		if raw, err := json.Marshal(generic); err == nil {
			if err := json.Unmarshal(raw, out); err == nil {
				return nil
			}
		}
	}

	return fmt.Errorf("could not parse model output as JSON")
}

// stripFence removes a surrounding ```json fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
