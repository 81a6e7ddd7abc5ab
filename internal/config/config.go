// Package config loads service configuration from an optional YAML file
// and BRANDSCOPE_-prefixed environment variables, env taking precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Providers []ProviderConfig `koanf:"providers"`
	Analysis  AnalysisConfig   `koanf:"analysis"`
	Storage   StorageConfig    `koanf:"storage"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

// ProviderConfig describes one answer provider. A provider is usable when
// it is not disabled and carries an API key.
type ProviderConfig struct {
	Name     string `koanf:"name"`
	Type     string `koanf:"type"` // "openai" or "anthropic"
	APIKey   string `koanf:"api_key"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	Disabled bool   `koanf:"disabled"`
}

// AnalysisConfig tunes the fan-out stage. BatchSize is the number of
// prompts grouped per batch; MaxInFlight optionally caps concurrent
// provider calls across a batch (0 = bounded only by batch size times
// provider count).
type AnalysisConfig struct {
	BatchSize      int  `koanf:"batch_size"`
	MaxInFlight    int  `koanf:"max_in_flight"`
	MaxPrompts     int  `koanf:"max_prompts"`
	MaxCompetitors int  `koanf:"max_competitors"`
	Simulate       bool `koanf:"simulate"`
	MockDelayMinMS int  `koanf:"mock_delay_min_ms"`
	MockDelayMaxMS int  `koanf:"mock_delay_max_ms"`
}

type StorageConfig struct {
	Path string `koanf:"path"`
}

// Load reads the optional config file then the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	// Double underscore separates sections so multiword keys survive:
	// BRANDSCOPE_ANALYSIS__BATCH_SIZE -> analysis.batch_size.
	if err := k.Load(env.Provider("BRANDSCOPE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "BRANDSCOPE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Bare API keys in the environment stand in for full provider entries
	// so the common two-provider setup needs no config file.
	if len(cfg.Providers) == 0 {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Providers = append(cfg.Providers, ProviderConfig{
				Name: "OpenAI", Type: "openai", APIKey: key,
			})
		}
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.Providers = append(cfg.Providers, ProviderConfig{
				Name: "Anthropic", Type: "anthropic", APIKey: key,
			})
		}
	}

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.port":                8080,
		"analysis.batch_size":        3,
		"analysis.max_prompts":       4,
		"analysis.max_competitors":   6,
		"analysis.mock_delay_min_ms": 500,
		"analysis.mock_delay_max_ms": 1500,
		"storage.path":               "./data/brandscope.db",
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}
}
