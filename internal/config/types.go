package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yannabadie/appia-dev/internal/logging"
)

// Secret is a string that redacts itself in logs, JSON, and fmt output.
// Use Value() at the call site that actually needs the credential.
type Secret string

// String implements fmt.Stringer. Always returns a redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the actual secret value. Use sparingly.
func (s Secret) Value() string {
	return string(s)
}

// IsSet returns true if the secret has a non-empty value.
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON implements json.Marshaler. Always returns a redacted value.
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("[REDACTED]")
}

// MarshalText implements encoding.TextMarshaler. Always returns a redacted value.
func (s Secret) MarshalText() ([]byte, error) {
	if s == "" {
		return []byte(""), nil
	}
	return []byte("[REDACTED]"), nil
}

// Config holds the complete jarvys agent configuration.
type Config struct {
	Logging   logging.Config  `koanf:"logging"`
	GitHub    GitHubConfig    `koanf:"github"`
	Providers ProvidersConfig `koanf:"providers"`
	Router    RouterConfig    `koanf:"router"`
	Loop      LoopConfig      `koanf:"loop"`
	Memory    MemoryConfig    `koanf:"memory"`
	Server    ServerConfig    `koanf:"server"`
	Workspace WorkspaceConfig `koanf:"workspace"`
}

// GitHubConfig identifies the two target repositories and the credentials
// used for issue, branch, and pull-request operations.
type GitHubConfig struct {
	Token Secret `koanf:"token"`

	// PrimaryRepo is the development repository, "owner/name".
	PrimaryRepo string `koanf:"primary_repo"`

	// SecondaryRepo is the companion repository the agent also maintains.
	SecondaryRepo string `koanf:"secondary_repo"`

	// BaseBranch is the pull-request base (default: main).
	BaseBranch string `koanf:"base_branch"`

	// WorkBranch is the branch the agent commits to (default: agent-evolution).
	WorkBranch string `koanf:"work_branch"`
}

// ProviderConfig configures one LLM provider endpoint.
type ProviderConfig struct {
	APIKey  Secret `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`

	// Model overrides the catalogue default for this provider.
	Model string `koanf:"model"`

	// Timeout bounds a single completion call (default: 120s).
	Timeout time.Duration `koanf:"timeout"`
}

// ProvidersConfig holds per-provider settings. A provider with no API key is
// treated as unavailable and skipped by the router's fallback chain.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `koanf:"openai"`
	Anthropic ProviderConfig `koanf:"anthropic"`
	Gemini    ProviderConfig `koanf:"gemini"`
	Grok      ProviderConfig `koanf:"grok"`
}

// RouterConfig configures model selection and the catalogue refresh.
type RouterConfig struct {
	// CataloguePath is an optional JSON overlay for the built-in model
	// catalogue.
	CataloguePath string `koanf:"catalogue_path"`

	// RefreshInterval is how often provider model listings are re-scanned.
	// Zero disables the model watcher.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// HistoryLimit bounds the performance history (default: 1000).
	HistoryLimit int `koanf:"history_limit"`
}

// LoopConfig configures the autonomous run loop.
type LoopConfig struct {
	// Interval is the pause between outer iterations (default: 1h).
	Interval time.Duration `koanf:"interval"`

	// MaxCycles caps iterations per run (default: 10).
	MaxCycles int `koanf:"max_cycles"`

	// MaxRuntime is the wall-clock cap for a run. Zero means uncapped.
	MaxRuntime time.Duration `koanf:"max_runtime"`

	// MaxLintAttempts caps the lint-fix self-loop (default: 5).
	MaxLintAttempts int `koanf:"max_lint_attempts"`

	// MaxRegenerations caps test-failure regeneration per cycle (default: 2).
	MaxRegenerations int `koanf:"max_regenerations"`

	// ConfidenceThreshold gates autonomous continuation (default: 0.85).
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`
}

// MemoryConfig configures the embedded memory store.
type MemoryConfig struct {
	// Path is the directory for the persistent vector store
	// (default: ~/.config/jarvys/memory).
	Path string `koanf:"path"`

	// Collection is the default collection name (default: jarvys_memory).
	Collection string `koanf:"collection"`

	// LocalLogPath is the JSON-lines fallback log written when the store is
	// unreachable (default: local_logs.jsonl).
	LocalLogPath string `koanf:"local_log_path"`
}

// ServerConfig holds status server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// WorkspaceConfig locates the local checkouts the agent mutates.
type WorkspaceConfig struct {
	// Root is the parent directory of both checkouts.
	Root string `koanf:"root"`

	// PrimaryDir and SecondaryDir are checkout directory names under Root.
	PrimaryDir   string `koanf:"primary_dir"`
	SecondaryDir string `koanf:"secondary_dir"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.GitHub.PrimaryRepo == "" {
		return errors.New("github.primary_repo is required")
	}
	if c.GitHub.SecondaryRepo == "" {
		return errors.New("github.secondary_repo is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Loop.MaxCycles < 1 {
		return errors.New("loop.max_cycles must be positive")
	}
	if c.Loop.ConfidenceThreshold <= 0 || c.Loop.ConfidenceThreshold > 1 {
		return fmt.Errorf("loop.confidence_threshold out of range: %v", c.Loop.ConfidenceThreshold)
	}
	if c.Router.HistoryLimit < 1 {
		return errors.New("router.history_limit must be positive")
	}
	return nil
}
