// Package config provides configuration loading for the jarvys agent.
//
// Configuration is loaded from a YAML file and then overridden by environment
// variables. Precedence (highest to lowest):
//
//  1. Environment variables (GITHUB_PRIMARY_REPO, LOOP_MAX_CYCLES, ...)
//  2. YAML config file (~/.config/jarvys/config.yaml)
//  3. Hardcoded defaults
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load loads configuration from the given YAML file (or the default path when
// empty), applies environment overrides and defaults, then validates.
//
// Environment variables use an underscore separator and are uppercased:
//
//	GITHUB_PRIMARY_REPO  -> github.primary_repo
//	PROVIDERS_OPENAI_API_KEY -> providers.openai.api_key
//	LOOP_MAX_CYCLES      -> loop.max_cycles
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "jarvys", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Environment overrides. The transformer maps SECTION_FIELD_NAME to
	// section.field_name, with a second split for the providers.* subtree.
	if err := k.Load(env.Provider("", ".", transformEnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// transformEnvKey maps an environment variable name to a koanf key.
//
//	GITHUB_PRIMARY_REPO       -> github.primary_repo
//	PROVIDERS_OPENAI_API_KEY  -> providers.openai.api_key
//	SERVER_PORT               -> server.port
func transformEnvKey(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}

	section := parts[0]
	field := parts[1]

	// The providers subtree has one more level: providers.<name>.<field>
	if section == "providers" {
		sub := strings.SplitN(field, "_", 2)
		if len(sub) == 2 {
			return section + "." + sub[0] + "." + sub[1]
		}
	}

	return section + "." + field
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.GitHub.BaseBranch == "" {
		cfg.GitHub.BaseBranch = "main"
	}
	if cfg.GitHub.WorkBranch == "" {
		cfg.GitHub.WorkBranch = "agent-evolution"
	}

	for _, p := range []*ProviderConfig{
		&cfg.Providers.OpenAI, &cfg.Providers.Anthropic,
		&cfg.Providers.Gemini, &cfg.Providers.Grok,
	} {
		if p.Timeout == 0 {
			p.Timeout = 120 * time.Second
		}
	}

	if cfg.Router.HistoryLimit == 0 {
		cfg.Router.HistoryLimit = 1000
	}

	if cfg.Loop.Interval == 0 {
		cfg.Loop.Interval = time.Hour
	}
	if cfg.Loop.MaxCycles == 0 {
		cfg.Loop.MaxCycles = 10
	}
	if cfg.Loop.MaxLintAttempts == 0 {
		cfg.Loop.MaxLintAttempts = 5
	}
	if cfg.Loop.MaxRegenerations == 0 {
		cfg.Loop.MaxRegenerations = 2
	}
	if cfg.Loop.ConfidenceThreshold == 0 {
		cfg.Loop.ConfidenceThreshold = 0.85
	}

	if cfg.Memory.Path == "" {
		cfg.Memory.Path = "~/.config/jarvys/memory"
	}
	if cfg.Memory.Collection == "" {
		cfg.Memory.Collection = "jarvys_memory"
	}
	if cfg.Memory.LocalLogPath == "" {
		cfg.Memory.LocalLogPath = "local_logs.jsonl"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "."
	}
	if cfg.Workspace.PrimaryDir == "" {
		cfg.Workspace.PrimaryDir = "appia-dev"
	}
	if cfg.Workspace.SecondaryDir == "" {
		cfg.Workspace.SecondaryDir = "appIA"
	}
}
