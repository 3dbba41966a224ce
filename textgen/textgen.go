// Package textgen is the text-generation capability boundary. Each
// provider adapter translates its wire format into plain text at the
// boundary so the fallback executor never sees provider-shaped
// payloads.
package textgen

import (
	"context"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/fallback"
)

// Request is the normalized text-generation request.
type Request struct {
	System      string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Provider is one text-generation backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Chain adapts providers into a fallback chain for one request.
func Chain(providers []Provider, req Request) []fallback.Provider[string] {
	chain := make([]fallback.Provider[string], 0, len(providers))
	for _, p := range providers {
		p := p
		chain = append(chain, fallback.Provider[string]{
			Name: p.Name(),
			Call: func(ctx context.Context) (string, error) {
				return p.Generate(ctx, req)
			},
		})
	}
	return chain
}
