package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openai "github.com/sashabaranov/go-openai"
)

func TestOpenAIProviderCompleteReturnsFirstChoiceContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, float32(0), req.Temperature)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "Score: 7/10"}}},
		})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	provider := &OpenAIProvider{client: openai.NewClientWithConfig(cfg)}

	text, err := provider.Complete(context.Background(), "gpt-4o-mini", "judge carefully", "rate this", 0)
	require.NoError(t, err)
	assert.Equal(t, "Score: 7/10", text)
}

func TestOpenAIProviderCompleteSurfacesEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	provider := &OpenAIProvider{client: openai.NewClientWithConfig(cfg)}

	_, err := provider.Complete(context.Background(), "gpt-4o-mini", "", "rate this", 0)
	assert.Error(t, err)
}

func TestRegistryResolveDefaultsToOpenAI(t *testing.T) {
	openaiProvider := &OpenAIProvider{}
	registry := NewRegistry(map[string]Provider{"openai": openaiProvider})

	p, err := registry.Resolve("")
	require.NoError(t, err)
	assert.Same(t, openaiProvider, p)
}

func TestRegistryResolveUnknownProvider(t *testing.T) {
	registry := NewRegistry(map[string]Provider{})
	_, err := registry.Resolve("unknown")
	assert.Error(t, err)
}
