package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visiblelabs/brandscope/internal/config"
)

func TestFromConfig(t *testing.T) {
	cfgs := []config.ProviderConfig{
		{Name: "OpenAI", Type: "openai", APIKey: "sk-1", Model: "gpt-4o"},
		{Name: "Anthropic", Type: "anthropic", APIKey: "sk-2"},
		{Name: "NoKey", Type: "openai"},
		{Name: "Off", Type: "anthropic", APIKey: "sk-3", Disabled: true},
	}

	providers, err := FromConfig(cfgs)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, []string{"OpenAI", "Anthropic"}, Names(providers))

	descs := Descriptors(providers)
	assert.Equal(t, "gpt-4o", descs[0].Model)
	assert.Equal(t, "claude-3-5-sonnet-latest", descs[1].Model)
}

func TestFromConfig_UnknownType(t *testing.T) {
	_, err := FromConfig([]config.ProviderConfig{
		{Name: "Mystery", Type: "gemini", APIKey: "sk-1"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider type")
}

func TestFromConfig_Empty(t *testing.T) {
	providers, err := FromConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, providers)
}
