package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate_Defaults(t *testing.T) {
	cfg := Config{}
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_BadFormat(t *testing.T) {
	cfg := Config{Format: "xml"}
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_BadLevel(t *testing.T) {
	cfg := Config{Level: "loud"}
	assert.Error(t, cfg.Validate())
}

func TestNewLogger_JSON(t *testing.T) {
	logger, err := NewLogger(Config{Level: "debug", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Debug("hello")
}

func TestNewLogger_ConstantFields(t *testing.T) {
	logger, err := NewLogger(Config{
		Fields: map[string]string{"service": "jarvys"},
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	_, err := NewLogger(Config{Format: "yaml"})
	assert.Error(t, err)
}

func TestSync_SwallowsStdoutError(t *testing.T) {
	logger, err := NewLogger(Config{})
	require.NoError(t, err)
	logger.Info("flush me")

	// Syncing a stdout-backed logger reports EINVAL/ENOTTY on Linux; the
	// helper treats that as success.
	assert.NoError(t, Sync(logger))
}
