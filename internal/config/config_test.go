package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8721, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.Std())
	assert.Equal(t, "mock", cfg.Capabilities.Provider)
	assert.NotEmpty(t, cfg.Cache.Dir)
	assert.NotEmpty(t, cfg.Staging.Dir)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mira.yaml")
	content := `
server:
  host: 0.0.0.0
  port: 9000
cache:
  ttl: 1h
capabilities:
  provider: openai
  openai:
    base_url: https://llm.internal/v1
    vision_model: custom-vision
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Std())
	assert.Equal(t, "openai", cfg.Capabilities.Provider)
	assert.Equal(t, "https://llm.internal/v1", cfg.Capabilities.OpenAI.BaseURL)
	assert.Equal(t, "custom-vision", cfg.Capabilities.OpenAI.VisionModel)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset sections keep their defaults.
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MIRA_PORT", "7777")
	t.Setenv("MIRA_CACHE_TTL", "30m")
	t.Setenv("MIRA_CAPABILITY_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL.Std())
	assert.Equal(t, "openai", cfg.Capabilities.Provider)
	assert.Equal(t, "sk-env", cfg.Capabilities.OpenAI.APIKey)
}

func TestMiraKeyWinsOverOpenAIKey(t *testing.T) {
	t.Setenv("MIRA_OPENAI_API_KEY", "sk-mira")
	t.Setenv("OPENAI_API_KEY", "sk-generic")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-mira", cfg.Capabilities.OpenAI.APIKey)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("MIRA_CAPABILITY_PROVIDER", "carrier-pigeon")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown capability provider")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
