package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
github:
  primary_repo: yannabadie/appia-dev
  secondary_repo: yannabadie/appIA
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.GitHub.BaseBranch)
	assert.Equal(t, "agent-evolution", cfg.GitHub.WorkBranch)
	assert.Equal(t, time.Hour, cfg.Loop.Interval)
	assert.Equal(t, 10, cfg.Loop.MaxCycles)
	assert.Equal(t, 5, cfg.Loop.MaxLintAttempts)
	assert.Equal(t, 0.85, cfg.Loop.ConfidenceThreshold)
	assert.Equal(t, 1000, cfg.Router.HistoryLimit)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 120*time.Second, cfg.Providers.OpenAI.Timeout)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfigFile(t, `
github:
  primary_repo: yannabadie/appia-dev
  secondary_repo: yannabadie/appIA
  work_branch: grok-evolution
loop:
  max_cycles: 3
  interval: 30m
server:
  port: 8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "grok-evolution", cfg.GitHub.WorkBranch)
	assert.Equal(t, 3, cfg.Loop.MaxCycles)
	assert.Equal(t, 30*time.Minute, cfg.Loop.Interval)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfigFile(t, `
github:
  primary_repo: yannabadie/appia-dev
  secondary_repo: yannabadie/appIA
`)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("PROVIDERS_OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, cfg.Providers.OpenAI.APIKey.IsSet())
	assert.Equal(t, "sk-test", cfg.Providers.OpenAI.APIKey.Value())
}

func TestLoad_MissingRepos(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary_repo")
}

func TestTransformEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GITHUB_PRIMARY_REPO", "github.primary_repo"},
		{"SERVER_PORT", "server.port"},
		{"LOOP_MAX_CYCLES", "loop.max_cycles"},
		{"PROVIDERS_ANTHROPIC_API_KEY", "providers.anthropic.api_key"},
		{"PROVIDERS_GROK_BASE_URL", "providers.grok.base_url"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, transformEnvKey(tt.in), tt.in)
	}
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("super-secret-token")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "Secret([REDACTED])", s.GoString())
	assert.Equal(t, "super-secret-token", s.Value())
	assert.True(t, s.IsSet())

	formatted := fmt.Sprintf("token=%v %s %#v", s, s, s)
	assert.NotContains(t, formatted, "super-secret-token")

	data, err := json.Marshal(struct {
		Token Secret `json:"token"`
	}{Token: s})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret-token")
}

func TestSecret_Empty(t *testing.T) {
	var s Secret
	assert.False(t, s.IsSet())
	assert.Equal(t, "", s.String())
}
