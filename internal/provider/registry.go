// Package provider builds the set of usable answer providers from
// configuration. Providers are usable when enabled and credentialed; the
// set is fixed for the duration of a session.
package provider

import (
	"fmt"

	"github.com/visiblelabs/brandscope/internal/config"
	"github.com/visiblelabs/brandscope/internal/domain"
	"github.com/visiblelabs/brandscope/internal/provider/anthropic"
	"github.com/visiblelabs/brandscope/internal/provider/openai"
)

// FromConfig builds the usable provider set. Entries that are disabled or
// missing an API key are skipped; an unknown type is an error. Order
// follows the configuration.
func FromConfig(cfgs []config.ProviderConfig) ([]domain.AnswerProvider, error) {
	providers := make([]domain.AnswerProvider, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.Disabled || cfg.APIKey == "" {
			continue
		}
		p, err := create(cfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func create(cfg config.ProviderConfig) (domain.AnswerProvider, error) {
	switch cfg.Type {
	case "openai":
		var opts []openai.Option
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Name != "" {
			opts = append(opts, openai.WithDisplayName(cfg.Name))
		}
		return openai.New(cfg.APIKey, opts...), nil
	case "anthropic":
		var opts []anthropic.Option
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Name != "" {
			opts = append(opts, anthropic.WithDisplayName(cfg.Name))
		}
		return anthropic.New(cfg.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q for %q", cfg.Type, cfg.Name)
	}
}

// Names lists the display names of a provider set, in session order.
func Names(providers []domain.AnswerProvider) []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Descriptor().Name
	}
	return names
}

// Descriptors lists the descriptors of a provider set, in session order.
func Descriptors(providers []domain.AnswerProvider) []domain.ProviderDescriptor {
	out := make([]domain.ProviderDescriptor, len(providers))
	for i, p := range providers {
		out[i] = p.Descriptor()
	}
	return out
}
