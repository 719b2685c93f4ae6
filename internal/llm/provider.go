// Package llm wraps the language-model and embedding services behind small
// interfaces so the advisor and narrative scorer can be tested with fakes.
package llm

import (
	"context"
)

// Provider generates text from a prompt.
//
// Recognised options: "temperature" (float64), "model" (string),
// "response_format" ({"type": "json_object"}).
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error)

func (f ProviderFunc) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	return f(ctx, prompt, systemPrompt, options)
}
