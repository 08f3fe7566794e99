package providers

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAI or Azure OpenAI-compatible client.
// AzureBaseURL and AzureAPIVersion mirror the Venice provider's
// "OpenAI-compatible, different base URL" pattern (venice.go's
// NewClientWithConfig), adapted for Azure OpenAI's deployment-scoped URLs
// instead of a flat proxy endpoint.
type OpenAIConfig struct {
	APIKey string

	// AzureBaseURL, when set, switches this client to Azure OpenAI's
	// deployment-scoped API (e.g. https://<resource>.openai.azure.com/).
	AzureBaseURL    string
	AzureAPIVersion string
}

// OpenAIProvider implements Provider against OpenAI's or Azure OpenAI's
// chat-completions API via the OpenAI client both services are compatible
// with.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider builds an OpenAIProvider, switching to Azure's client
// configuration when AzureBaseURL is set.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.AzureBaseURL != "" {
		azureCfg := openai.DefaultAzureConfig(cfg.APIKey, cfg.AzureBaseURL)
		if cfg.AzureAPIVersion != "" {
			azureCfg.APIVersion = cfg.AzureAPIVersion
		}
		return &OpenAIProvider{client: openai.NewClientWithConfig(azureCfg)}
	}
	return &OpenAIProvider{client: openai.NewClient(cfg.APIKey)}
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, model, system, user string, temperature float32) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("providers: openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("providers: openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
