package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/yannabadie/appia-dev/internal/config"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultGrokBaseURL   = "https://api.x.ai"
)

// openAIClient implements Client against an OpenAI-compatible chat completions
// API. Grok (xAI) exposes the same wire shape, so the same client serves both
// vendors with a different base URL.
type openAIClient struct {
	provider   Provider
	apiKey     string `json:"-"` // Never serialize API keys
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// NewOpenAIClient creates a client for the OpenAI chat completions API.
func NewOpenAIClient(cfg config.ProviderConfig) (Client, error) {
	return newChatCompletionsClient(ProviderOpenAI, defaultOpenAIBaseURL, cfg)
}

// NewGrokClient creates a client for xAI's OpenAI-compatible API.
func NewGrokClient(cfg config.ProviderConfig) (Client, error) {
	return newChatCompletionsClient(ProviderGrok, defaultGrokBaseURL, cfg)
}

func newChatCompletionsClient(provider Provider, defaultBaseURL string, cfg config.ProviderConfig) (Client, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("%s: %w", provider, ErrNotConfigured)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	return &openAIClient{
		provider: provider,
		apiKey:   cfg.APIKey.Value(),
		baseURL:  baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		maxRetries: defaultMaxRetries,
	}, nil
}

func (o *openAIClient) Provider() Provider {
	return o.provider
}

// openAIRequest is the request body for the chat completions API.
type openAIRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete generates a completion via the chat completions API, retrying
// transient failures with exponential backoff.
func (o *openAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	body := openAIRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openAIMessage{
			{Role: "user", Content: req.Prompt},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		response, err := o.doRequest(ctx, body)
		if err == nil {
			return response, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doRequest performs the actual HTTP request to the chat completions API.
func (o *openAIClient) doRequest(ctx context.Context, req openAIRequest) (string, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &retryableError{err: fmt.Errorf("rate limited (429)")}
	}

	if resp.StatusCode >= 500 {
		return "", &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp openAIError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var completionResp openAIResponse
	if err := json.Unmarshal(body, &completionResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(completionResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from API")
	}

	return completionResp.Choices[0].Message.Content, nil
}

var _ Client = (*openAIClient)(nil)
