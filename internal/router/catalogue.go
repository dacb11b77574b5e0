// Package router selects the best model for a prompt, executes the request
// against the matching provider client, and falls back through an ordered
// provider chain when a call fails. Selection combines static capability
// profiles with a small bonus derived from recent per-model outcomes.
package router

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/yannabadie/appia-dev/internal/llm"
)

// ModelProfile describes one model's static capabilities. All capability
// scores are in [0,1].
type ModelProfile struct {
	Identifier        string       `json:"identifier"`
	Provider          llm.Provider `json:"provider"`
	ReasoningScore    float64      `json:"reasoning_score"`
	CreativityScore   float64      `json:"creativity_score"`
	SpeedScore        float64      `json:"speed_score"`
	Multimodal        bool         `json:"multimodal"`
	MaxContextTokens  int          `json:"max_context_tokens"`
	CostPerKiloTokens float64      `json:"cost_per_1k_tokens"`
	Specialties       []string     `json:"specialties"`
}

// Validate checks the profile's numeric invariants.
func (p ModelProfile) Validate() error {
	if p.Identifier == "" {
		return fmt.Errorf("model profile missing identifier")
	}
	for name, v := range map[string]float64{
		"reasoning_score":  p.ReasoningScore,
		"creativity_score": p.CreativityScore,
		"speed_score":      p.SpeedScore,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("model %s: %s out of range: %v", p.Identifier, name, v)
		}
	}
	if p.CostPerKiloTokens < 0 {
		return fmt.Errorf("model %s: negative cost: %v", p.Identifier, p.CostPerKiloTokens)
	}
	return nil
}

// HasSpecialty reports whether the profile lists the given specialty tag.
func (p ModelProfile) HasSpecialty(tag string) bool {
	for _, s := range p.Specialties {
		if s == tag {
			return true
		}
	}
	return false
}

// Catalogue holds the known model profiles. Profiles are updated in place by
// the model watcher and never removed during a run.
type Catalogue struct {
	mu       sync.RWMutex
	profiles map[string]ModelProfile
}

// NewCatalogue returns a catalogue seeded with the built-in profiles. If
// overlayPath is non-empty, the JSON file at that path is applied on top:
// entries replace same-identifier built-ins and add new models.
func NewCatalogue(overlayPath string) (*Catalogue, error) {
	c := &Catalogue{profiles: make(map[string]ModelProfile)}
	for _, p := range builtinProfiles() {
		c.profiles[p.Identifier] = p
	}
	if overlayPath != "" {
		if err := c.applyOverlay(overlayPath); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalogue) applyOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model catalogue overlay: %w", err)
	}
	var overlay []ModelProfile
	if err := json.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse model catalogue overlay: %w", err)
	}
	for _, p := range overlay {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid overlay entry: %w", err)
		}
		c.profiles[p.Identifier] = p
	}
	return nil
}

// Profiles returns a snapshot of all profiles sorted by identifier. Sorted
// iteration keeps selection deterministic when scores tie.
func (c *Catalogue) Profiles() []ModelProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ModelProfile, 0, len(c.profiles))
	for _, p := range c.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// Profile returns the profile for the given identifier.
func (c *Catalogue) Profile(identifier string) (ModelProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.profiles[identifier]
	return p, ok
}

// Upsert adds or replaces a profile. Used by the model watcher when a
// provider listing reveals a model the catalogue does not know yet.
func (c *Catalogue) Upsert(p ModelProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.profiles[p.Identifier] = p
	return nil
}

// Known reports whether the catalogue has a profile for the identifier.
func (c *Catalogue) Known(identifier string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.profiles[identifier]
	return ok
}

// builtinProfiles is the static capability table the catalogue starts from.
func builtinProfiles() []ModelProfile {
	return []ModelProfile{
		{
			Identifier:        "gpt-4o",
			Provider:          llm.ProviderOpenAI,
			ReasoningScore:    0.95,
			CreativityScore:   0.88,
			SpeedScore:        0.85,
			Multimodal:        true,
			MaxContextTokens:  128000,
			CostPerKiloTokens: 0.01,
			Specialties:       []string{"reasoning", "coding", "analysis", "multimodal"},
		},
		{
			Identifier:        "o1-preview",
			Provider:          llm.ProviderOpenAI,
			ReasoningScore:    0.98,
			CreativityScore:   0.82,
			SpeedScore:        0.65,
			Multimodal:        false,
			MaxContextTokens:  32768,
			CostPerKiloTokens: 0.015,
			Specialties:       []string{"complex_reasoning", "mathematics", "scientific_analysis"},
		},
		{
			Identifier:        "gpt-4o-mini",
			Provider:          llm.ProviderOpenAI,
			ReasoningScore:    0.88,
			CreativityScore:   0.85,
			SpeedScore:        0.95,
			Multimodal:        true,
			MaxContextTokens:  128000,
			CostPerKiloTokens: 0.0001,
			Specialties:       []string{"fast_tasks", "simple_coding", "chat"},
		},
		{
			Identifier:        "claude-opus-4-20250514",
			Provider:          llm.ProviderAnthropic,
			ReasoningScore:    0.98,
			CreativityScore:   0.95,
			SpeedScore:        0.75,
			Multimodal:        true,
			MaxContextTokens:  200000,
			CostPerKiloTokens: 0.015,
			Specialties:       []string{"superior_reasoning", "complex_problem_solving", "advanced_coding", "multimodal_analysis"},
		},
		{
			Identifier:        "claude-sonnet-4-20250514",
			Provider:          llm.ProviderAnthropic,
			ReasoningScore:    0.96,
			CreativityScore:   0.93,
			SpeedScore:        0.88,
			Multimodal:        true,
			MaxContextTokens:  200000,
			CostPerKiloTokens: 0.003,
			Specialties:       []string{"high_performance", "exceptional_reasoning", "efficiency", "balanced_tasks"},
		},
		{
			Identifier:        "claude-3-7-sonnet-20250219",
			Provider:          llm.ProviderAnthropic,
			ReasoningScore:    0.94,
			CreativityScore:   0.91,
			SpeedScore:        0.90,
			Multimodal:        true,
			MaxContextTokens:  200000,
			CostPerKiloTokens: 0.003,
			Specialties:       []string{"extended_thinking", "high_performance", "recent_knowledge"},
		},
		{
			Identifier:        "claude-3-5-sonnet-20241022",
			Provider:          llm.ProviderAnthropic,
			ReasoningScore:    0.93,
			CreativityScore:   0.92,
			SpeedScore:        0.82,
			Multimodal:        true,
			MaxContextTokens:  200000,
			CostPerKiloTokens: 0.003,
			Specialties:       []string{"creative_writing", "code_review", "long_context"},
		},
		{
			Identifier:        "gemini-2.5-pro",
			Provider:          llm.ProviderGemini,
			ReasoningScore:    0.97,
			CreativityScore:   0.91,
			SpeedScore:        0.82,
			Multimodal:        true,
			MaxContextTokens:  2000000,
			CostPerKiloTokens: 0.002,
			Specialties:       []string{"enhanced_thinking", "maximum_accuracy", "complex_coding", "multimodal_understanding"},
		},
		{
			Identifier:        "gemini-2.5-flash",
			Provider:          llm.ProviderGemini,
			ReasoningScore:    0.94,
			CreativityScore:   0.89,
			SpeedScore:        0.95,
			Multimodal:        true,
			MaxContextTokens:  1000000,
			CostPerKiloTokens: 0.0005,
			Specialties:       []string{"adaptive_thinking", "cost_efficiency", "high_volume_tasks"},
		},
		{
			Identifier:        "gemini-2.0-flash-exp",
			Provider:          llm.ProviderGemini,
			ReasoningScore:    0.90,
			CreativityScore:   0.89,
			SpeedScore:        0.92,
			Multimodal:        true,
			MaxContextTokens:  1000000,
			CostPerKiloTokens: 0.0005,
			Specialties:       []string{"multimodal", "large_context", "realtime"},
		},
		{
			Identifier:        "grok-4",
			Provider:          llm.ProviderGrok,
			ReasoningScore:    0.92,
			CreativityScore:   0.90,
			SpeedScore:        0.88,
			Multimodal:        false,
			MaxContextTokens:  8192,
			CostPerKiloTokens: 0,
			Specialties:       []string{"realtime", "humor"},
		},
	}
}
