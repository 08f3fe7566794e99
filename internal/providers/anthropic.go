package providers

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultJudgeMaxTokens bounds the judge's response; a score extraction only
// needs a short answer.
const defaultJudgeMaxTokens = 256

// AnthropicProvider implements Provider against Anthropic's Messages API,
// grounded on haasonsaas-nexus's internal/agent/providers/anthropic.go
// client construction and message-building, collapsed to a single
// non-streaming call (New instead of NewStreaming).
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider builds an AnthropicProvider from an API key.
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, model, system, user string, temperature float32) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: defaultJudgeMaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(user))},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: system}}
	}
	params.Temperature = anthropic.Float(float64(temperature))

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("providers: anthropic completion: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("providers: anthropic returned no text content")
	}
	return text, nil
}
