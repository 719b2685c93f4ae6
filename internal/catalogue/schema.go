package catalogue

import "github.com/google/jsonschema-go/jsonschema"

var falseSchema = &jsonschema.Schema{Not: &jsonschema.Schema{}}

var specSchema = &jsonschema.Schema{
	Type: "object",
	AdditionalProperties: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"is_numerical", "required_data"},
		Properties: map[string]*jsonschema.Schema{
			"is_numerical": {Type: "boolean"},
			"required_data": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type:     "object",
					Required: []string{"name"},
					Properties: map[string]*jsonschema.Schema{
						"name":        {Type: "string"},
						"description": {Type: "string"},
					},
				},
			},
			"formula": {Type: "string"},
		},
		AdditionalProperties: falseSchema,
	},
}

var referenceSchema = &jsonschema.Schema{
	Type: "object",
	AdditionalProperties: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"best_score", "worst_score"},
		Properties: map[string]*jsonschema.Schema{
			"best_score":     {Type: "number"},
			"worst_score":    {Type: "number"},
			"unit":           {Type: "string"},
			"best_response":  {Type: "string"},
			"worst_response": {Type: "string"},
		},
	},
}
