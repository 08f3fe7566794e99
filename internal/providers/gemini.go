package providers

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider against Google's Gemini API, grounded
// on haasonsaas-nexus's internal/agent/providers/google.go client
// construction and buildConfig, collapsed to the SDK's non-streaming
// GenerateContent call.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider builds a GeminiProvider from an API key.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("providers: gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Complete implements Provider.
func (p *GeminiProvider) Complete(ctx context.Context, model, system, user string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{Temperature: genai.Ptr(temperature)}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	contents := []*genai.Content{{Parts: []*genai.Part{{Text: user}}, Role: "user"}}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("providers: gemini completion: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("providers: gemini returned no text content")
	}
	return text, nil
}
