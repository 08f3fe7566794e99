// Package providers adapts the judge metric's provider/model reference
// (spec.md section 4.6: "call the provider adapter ... at temperature 0")
// to the chat-completion APIs of OpenAI, Azure OpenAI, Anthropic, and Google
// Gemini, following the adapter shape of haasonsaas-nexus's
// internal/agent/providers package and internal/providers/venice, but
// collapsed to a single non-streaming call since the judge only needs a
// finished response to parse a number out of.
package providers

import (
	"context"
	"fmt"
)

// Provider issues a single, non-streaming chat completion. Implementations
// must honour temperature 0 determinism where the upstream API supports it.
type Provider interface {
	// Complete sends system and user prompts to model and returns the
	// response text.
	Complete(ctx context.Context, model, system, user string, temperature float32) (string, error)
}

// Registry resolves a metric's provider name to a configured Provider.
// Building one is the caller's job (config.go wires API keys); the scorer
// only needs Resolve.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a Registry from named providers. Typical names: openai,
// azure-openai, anthropic, gemini.
func NewRegistry(named map[string]Provider) *Registry {
	return &Registry{providers: named}
}

// Resolve looks up a provider by name (spec.md section 4.6's "provider
// adapter"). An empty name defaults to "openai".
func (r *Registry) Resolve(name string) (Provider, error) {
	if name == "" {
		name = "openai"
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("providers: unknown provider %q", name)
	}
	return p, nil
}
