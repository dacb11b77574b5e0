package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/llm"
	"github.com/yannabadie/appia-dev/internal/telemetry"
)

// ErrNoAvailableModel is returned when every provider in the fallback chain
// has failed or is unconfigured. Callers degrade to a placeholder result
// rather than aborting the cycle.
var ErrNoAvailableModel = errors.New("no available model for generation")

// Response is the outcome of a successful Generate call.
type Response struct {
	Text     string
	Model    string
	Provider llm.Provider
	Score    float64
	Analysis TaskAnalysis
}

// Router selects a model for each prompt and executes the completion, walking
// a per-task-type provider chain when calls fail. Clients are injected at
// construction; a provider with no client is skipped.
type Router struct {
	catalogue *Catalogue
	history   *History
	scorer    *Scorer
	clients   map[llm.Provider]llm.Client
	logger    *zap.Logger
}

// New returns a router over the given catalogue and clients.
func New(catalogue *Catalogue, history *History, clients []llm.Client, logger *zap.Logger) *Router {
	byProvider := make(map[llm.Provider]llm.Client, len(clients))
	for _, c := range clients {
		byProvider[c.Provider()] = c
	}
	return &Router{
		catalogue: catalogue,
		history:   history,
		scorer:    NewScorer(history),
		clients:   byProvider,
		logger:    logger,
	}
}

// fallbackChain returns the ordered provider list for a task type. Multimodal
// tasks prefer Gemini; everything else starts with OpenAI. Every task type
// has a non-empty chain.
func fallbackChain(taskType TaskType) []llm.Provider {
	if taskType == TaskMultimodal {
		return []llm.Provider{llm.ProviderGemini, llm.ProviderOpenAI, llm.ProviderAnthropic}
	}
	return []llm.Provider{llm.ProviderOpenAI, llm.ProviderAnthropic, llm.ProviderGemini}
}

// Generate analyzes the prompt, picks the best-scoring model with a
// configured client, and executes the completion. On failure it walks the
// task type's fallback chain, recording a PerformanceRecord for every
// attempt. Returns ErrNoAvailableModel when all attempts fail.
func (r *Router) Generate(ctx context.Context, prompt string, hint TaskType) (Response, error) {
	if prompt == "" {
		return Response{}, errors.New("prompt must not be empty")
	}

	analysis := Analyze(prompt, hint)

	candidates := r.availableProfiles()
	best, bestScore, ok := r.scorer.SelectBest(candidates, analysis)
	if !ok {
		return Response{}, fmt.Errorf("%w: no provider is configured", ErrNoAvailableModel)
	}

	r.logger.Debug("model selected",
		zap.String("model", best.Identifier),
		zap.String("provider", string(best.Provider)),
		zap.Float64("score", bestScore),
		zap.String("task_type", string(analysis.TaskType)))

	tried := map[string]bool{}

	text, err := r.attempt(ctx, best, prompt, analysis)
	if err == nil {
		return Response{Text: text, Model: best.Identifier, Provider: best.Provider, Score: bestScore, Analysis: analysis}, nil
	}
	tried[best.Identifier] = true
	r.logger.Warn("primary model failed, entering fallback chain",
		zap.String("model", best.Identifier), zap.Error(err))
	telemetry.Fallbacks.WithLabelValues(string(analysis.TaskType)).Inc()

	for _, provider := range fallbackChain(analysis.TaskType) {
		if _, ok := r.clients[provider]; !ok {
			continue
		}
		profile, ok := r.bestProfileFor(provider, analysis)
		if !ok || tried[profile.Identifier] {
			continue
		}
		tried[profile.Identifier] = true

		text, err := r.attempt(ctx, profile, prompt, analysis)
		if err != nil {
			r.logger.Warn("fallback model failed",
				zap.String("model", profile.Identifier), zap.Error(err))
			continue
		}
		return Response{
			Text:     text,
			Model:    profile.Identifier,
			Provider: provider,
			Score:    r.scorer.Score(profile, analysis),
			Analysis: analysis,
		}, nil
	}

	return Response{}, fmt.Errorf("%w: task type %s", ErrNoAvailableModel, analysis.TaskType)
}

// attempt executes one completion against a profile's provider and records
// the outcome in the history and metrics, whichever way it goes.
func (r *Router) attempt(ctx context.Context, profile ModelProfile, prompt string, analysis TaskAnalysis) (string, error) {
	client, ok := r.clients[profile.Provider]
	if !ok {
		return "", fmt.Errorf("provider %s has no configured client", profile.Provider)
	}

	start := time.Now()
	text, err := client.Complete(ctx, llm.Request{Model: profile.Identifier, Prompt: prompt})
	latency := time.Since(start)

	success := 0.0
	if err == nil {
		success = 1.0
	}
	r.history.Append(PerformanceRecord{
		Model:     profile.Identifier,
		TaskType:  analysis.TaskType,
		Success:   success,
		Latency:   latency,
		Cost:      float64(analysis.EstimatedTokens) / 1000 * profile.CostPerKiloTokens,
		Timestamp: time.Now(),
	})
	telemetry.RecordProviderRequest(string(profile.Provider), latency, err == nil)

	if err != nil {
		return "", err
	}
	return text, nil
}

// availableProfiles returns catalogue profiles whose provider has a client,
// sorted by identifier.
func (r *Router) availableProfiles() []ModelProfile {
	var out []ModelProfile
	for _, p := range r.catalogue.Profiles() {
		if _, ok := r.clients[p.Provider]; ok {
			out = append(out, p)
		}
	}
	return out
}

// bestProfileFor returns the highest-scoring catalogue profile belonging to
// the given provider.
func (r *Router) bestProfileFor(provider llm.Provider, analysis TaskAnalysis) (ModelProfile, bool) {
	var candidates []ModelProfile
	for _, p := range r.catalogue.Profiles() {
		if p.Provider == provider {
			candidates = append(candidates, p)
		}
	}
	best, _, ok := r.scorer.SelectBest(candidates, analysis)
	return best, ok
}

// History exposes the router's outcome history for status reporting.
func (r *Router) History() *History {
	return r.history
}

// Catalogue exposes the router's model catalogue.
func (r *Router) Catalogue() *Catalogue {
	return r.catalogue
}
