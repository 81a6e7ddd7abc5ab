package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Analysis.BatchSize)
	assert.Equal(t, 4, cfg.Analysis.MaxPrompts)
	assert.Equal(t, 6, cfg.Analysis.MaxCompetitors)
	assert.Equal(t, 500, cfg.Analysis.MockDelayMinMS)
	assert.Equal(t, 1500, cfg.Analysis.MockDelayMaxMS)
	assert.Equal(t, "./data/brandscope.db", cfg.Storage.Path)
	assert.False(t, cfg.Analysis.Simulate)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BRANDSCOPE_SERVER__PORT", "9090")
	t.Setenv("BRANDSCOPE_ANALYSIS__BATCH_SIZE", "5")
	t.Setenv("BRANDSCOPE_ANALYSIS__SIMULATE", "true")
	t.Setenv("BRANDSCOPE_STORAGE__PATH", "/tmp/test.db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Analysis.BatchSize)
	assert.True(t, cfg.Analysis.Simulate)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 7070
providers:
  - name: OpenAI
    type: openai
    api_key: sk-test
    model: gpt-4o
  - name: Disabled
    type: anthropic
    api_key: sk-other
    disabled: true
analysis:
  max_in_flight: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "OpenAI", cfg.Providers[0].Name)
	assert.Equal(t, "sk-test", cfg.Providers[0].APIKey)
	assert.Equal(t, "gpt-4o", cfg.Providers[0].Model)
	assert.True(t, cfg.Providers[1].Disabled)
	assert.Equal(t, 4, cfg.Analysis.MaxInFlight)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.Analysis.BatchSize)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_BareAPIKeysSynthesizeProviders(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-anthropic")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "openai", cfg.Providers[0].Type)
	assert.Equal(t, "sk-openai", cfg.Providers[0].APIKey)
	assert.Equal(t, "anthropic", cfg.Providers[1].Type)
}
