// Package provider sends chat completions to hosted language models.
package provider

import (
	"context"
	"net/http"

	"hermitbench/internal/bench"
)

// HTTPDoer abstracts HTTP clients used by providers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Params tunes a single completion request.
type Params struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Gateway sends an exact message context and returns one assistant reply.
type Gateway interface {
	Complete(ctx context.Context, model string, messages []bench.Message, params Params) (string, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Pricing lists per-token prices as reported by the provider.
type Pricing struct {
	Prompt     string `json:"prompt,omitempty"`
	Completion string `json:"completion,omitempty"`
}

// ModelInfo describes one model offered by a provider.
type ModelInfo struct {
	ID            string  `json:"id"`
	Name          string  `json:"name,omitempty"`
	Description   string  `json:"description,omitempty"`
	ContextLength int     `json:"context_length,omitempty"`
	Pricing       Pricing `json:"pricing"`
	PricePerToken string  `json:"price_per_token"`
}

// unknownPrice is reported when the provider has no prompt price.
const unknownPrice = "Unknown"

func pricePerToken(p Pricing) string {
	if p.Prompt == "" {
		return unknownPrice
	}
	return p.Prompt
}

// sendable drops messages that are never part of a request context.
func sendable(messages []bench.Message) []bench.Message {
	out := make([]bench.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == bench.RoleSystemNote {
			continue
		}
		out = append(out, msg)
	}
	return out
}
