// Package mock implements a mock provider for testing and development.
// It returns deterministic chat-completion shaped responses without any
// network calls.
package mock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gamelens/gamelens/internal/provider"
	"github.com/gamelens/gamelens/pkg/idgen"
)

// ProviderName is the identifier for the mock provider
const ProviderName = "mock"

func init() {
	provider.Register(ProviderName, New)
}

// Provider implements provider.Provider with canned responses.
type Provider struct{}

// New creates a mock provider. The configuration is accepted but unused.
func New(config *provider.Config) (provider.Provider, error) {
	return &Provider{}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// response renders a chat-completion shaped payload echoing the prompt length,
// so mappers and token accounting can be exercised end to end.
func (p *Provider) response(fullPrompt, model string) string {
	payload := map[string]interface{}{
		"id":     "mock-" + idgen.NewID(),
		"object": "chat.completion",
		"model":  model,
		"choices": []map[string]interface{}{
			{
				"index": 0,
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": fmt.Sprintf("Mock analysis of a %d-character prompt.", len(fullPrompt)),
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     len(fullPrompt) / 4,
			"completion_tokens": 12,
			"total_tokens":      len(fullPrompt)/4 + 12,
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

// AnalyzeSingle returns one canned response.
func (p *Provider) AnalyzeSingle(ctx context.Context, fullPrompt, model string, reasoning *provider.Reasoning) (string, error) {
	return p.response(fullPrompt, model), nil
}

// AnalyzeBatch returns one canned response per input.
func (p *Provider) AnalyzeBatch(ctx context.Context, req provider.BatchRequest, progress provider.ProgressFunc) ([]string, error) {
	results := make([]string, len(req.Inputs))
	for i, input := range req.Inputs {
		results[i] = p.response(provider.BuildFullPrompt(req.Prompt, input), req.Model)
		if progress != nil {
			progress(i+1, len(req.Inputs))
		}
	}
	return results, nil
}
