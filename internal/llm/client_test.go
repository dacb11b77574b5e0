package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yannabadie/appia-dev/internal/config"
)

func providerConfig(apiKey, baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		APIKey:  config.Secret(apiKey),
		BaseURL: baseURL,
	}
}

func TestNewClients_RequireAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(config.ProviderConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewAnthropicClient(config.ProviderConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewGeminiClient(config.ProviderConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewGrokClient(config.ProviderConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAIClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		fmt.Fprint(w, `{"choices":[{"message":{"content":"world"}}]}`)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(providerConfig("sk-test", server.URL))
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, client.Provider())

	out, err := client.Complete(context.Background(), Request{Model: "gpt-4o", Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "world", out)
}

func TestOpenAIClient_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"recovered"}}]}`)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(providerConfig("sk-test", server.URL))
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), Request{Model: "gpt-4o", Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIClient_NonRetryableError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(providerConfig("sk-bad", server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{Model: "gpt-4o", Prompt: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
	assert.Equal(t, int32(1), calls.Load(), "auth errors must not be retried")
}

func TestAnthropicClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("X-API-Key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("Anthropic-Version"))

		fmt.Fprint(w, `{"content":[{"text":"claude says hi"}]}`)
	}))
	defer server.Close()

	client, err := NewAnthropicClient(providerConfig("sk-ant", server.URL))
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, client.Provider())

	out, err := client.Complete(context.Background(), Request{Model: "claude-sonnet-4-20250514", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "claude says hi", out)
}

func TestAnthropicClient_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":[]}`)
	}))
	defer server.Close()

	client, err := NewAnthropicClient(providerConfig("sk-ant", server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{Model: "claude-sonnet-4-20250514", Prompt: "hi"})
	assert.ErrorContains(t, err, "empty response")
}

func TestGeminiClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v1beta/models/gemini-2.5-pro:generateContent")
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))

		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"gemini says hi"}]}}]}`)
	}))
	defer server.Close()

	client, err := NewGeminiClient(providerConfig("g-key", server.URL))
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, client.Provider())

	out, err := client.Complete(context.Background(), Request{Model: "gemini-2.5-pro", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "gemini says hi", out)
}

func TestGrokClient_UsesChatCompletions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"grok says hi"}}]}`)
	}))
	defer server.Close()

	client, err := NewGrokClient(providerConfig("xai-key", server.URL))
	require.NoError(t, err)
	assert.Equal(t, ProviderGrok, client.Provider())

	out, err := client.Complete(context.Background(), Request{Model: "grok-4", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "grok says hi", out)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(fmt.Errorf("plain error")))
	assert.True(t, isRetryableError(&retryableError{err: fmt.Errorf("rate limited")}))
	assert.True(t, isRetryableError(fmt.Errorf("wrapped: %w", &retryableError{err: fmt.Errorf("5xx")})))
}
