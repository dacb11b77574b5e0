// Package llm provides HTTP clients for the LLM providers the agent can route
// to: OpenAI, Anthropic, Gemini, and Grok (xAI).
//
// Every client implements the Client interface and handles rate limiting,
// context cancellation, bounded timeouts, and retries with exponential backoff
// for transient failures. API keys are never serialized or logged.
package llm

import (
	"context"
	"errors"
	"time"
)

// Default configuration values.
const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.3
	defaultTimeout     = 120 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = 1 * time.Second
)

// Rate limiter defaults: 50 requests per minute per provider.
const (
	defaultRateLimit = 50.0 / 60.0 // ~0.83 requests per second
	defaultBurst     = 5           // Allow bursts of up to 5 requests
)

// Provider names the supported vendors.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderGrok      Provider = "grok"
)

// ErrNotConfigured indicates a provider has no API key and cannot serve
// requests. The router skips unconfigured providers in its fallback chain.
var ErrNotConfigured = errors.New("provider not configured")

// Request is one completion request against a specific model.
type Request struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Client is the common completion interface over all providers.
type Client interface {
	// Provider identifies the vendor this client talks to.
	Provider() Provider

	// Complete generates a completion for the request. The prompt is never
	// mutated. Transient failures are retried internally; the returned error
	// is terminal for this client.
	Complete(ctx context.Context, req Request) (string, error)
}

// retryableError marks an error worth retrying (rate limits, 5xx, network).
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var re *retryableError
	return errors.As(err, &re)
}
