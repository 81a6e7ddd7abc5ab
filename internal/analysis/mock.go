package analysis

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/visiblelabs/brandscope/internal/domain"
	"github.com/visiblelabs/brandscope/internal/tokens"
)

// mockProvider fabricates answers locally so the full event protocol can
// be exercised without live provider dependencies. It follows the exact
// same call path as a real provider, including an artificial latency.
type mockProvider struct {
	descriptor  domain.ProviderDescriptor
	brand       string
	competitors []string
	minDelay    time.Duration
	maxDelay    time.Duration
}

// MockProviders returns the simulated provider pair used when no real
// provider is configured or simulation is forced.
func MockProviders(brand string, competitors []string, minDelay, maxDelay time.Duration) []domain.AnswerProvider {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	mk := func(name, model string) *mockProvider {
		return &mockProvider{
			descriptor:  domain.ProviderDescriptor{Name: name, Model: model, Icon: strings.ToLower(name)},
			brand:       brand,
			competitors: competitors,
			minDelay:    minDelay,
			maxDelay:    maxDelay,
		}
	}
	return []domain.AnswerProvider{
		mk("OpenAI", "gpt-4o-mini-simulated"),
		mk("Anthropic", "claude-3-5-sonnet-simulated"),
	}
}

func (m *mockProvider) Descriptor() domain.ProviderDescriptor {
	return m.descriptor
}

func (m *mockProvider) Answer(ctx context.Context, prompt string, _ domain.AnswerOptions) (*domain.Answer, error) {
	delay := m.minDelay
	if m.maxDelay > m.minDelay {
		delay += rand.N(m.maxDelay - m.minDelay)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	text := m.fabricate()
	return &domain.Answer{
		Text: text,
		Usage: domain.Usage{
			PromptTokens:     tokens.Estimate("gpt-4o-mini", prompt),
			CompletionTokens: tokens.Estimate("gpt-4o-mini", text),
			TotalTokens:      tokens.Estimate("gpt-4o-mini", prompt) + tokens.Estimate("gpt-4o-mini", text),
		},
	}, nil
}

var mockTones = []struct {
	adjective string
	weight    float64
}{
	{"an excellent, widely recommended", 0.5},
	{"a well-known", 0.3},
	{"a somewhat limited", 0.2},
}

// fabricate builds a ranked-list answer. The brand appears with roughly
// 70% probability; each competitor independently with 60%.
func (m *mockProvider) fabricate() string {
	var entries []string
	if rand.Float64() < 0.7 {
		entries = append(entries, m.brand)
	}
	for _, c := range m.competitors {
		if rand.Float64() < 0.6 {
			entries = append(entries, c)
		}
	}
	rand.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})

	if len(entries) == 0 {
		return "There are several options in this space, but no single product stands out."
	}

	var b strings.Builder
	b.WriteString("Here are the options most users bring up:\n")
	for i, name := range entries {
		fmt.Fprintf(&b, "%d. %s is %s choice in this market.\n", i+1, name, pickTone())
	}
	return b.String()
}

func pickTone() string {
	roll := rand.Float64()
	acc := 0.0
	for _, t := range mockTones {
		acc += t.weight
		if roll < acc {
			return t.adjective
		}
	}
	return mockTones[len(mockTones)-1].adjective
}
