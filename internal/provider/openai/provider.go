// Package openai implements the answer-provider contract on top of the
// OpenAI chat completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/visiblelabs/brandscope/internal/domain"
	"github.com/visiblelabs/brandscope/internal/tokens"
)

const (
	defaultModel       = "gpt-4o-mini"
	defaultDisplayName = "OpenAI"
	// Calls must resolve rather than hang a batch; the orchestrator itself
	// enforces no timeout.
	defaultCallTimeout = 60 * time.Second
)

// Option configures the provider.
type Option func(*Provider)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL sets a custom API base URL.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// WithDisplayName overrides the descriptor name.
func WithDisplayName(name string) Option {
	return func(p *Provider) { p.displayName = name }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(p *Provider) { p.httpClient = httpClient }
}

// Provider answers prompts with an OpenAI chat model.
type Provider struct {
	client      *Client
	model       string
	baseURL     string
	displayName string
	httpClient  *http.Client
}

// New creates an OpenAI-backed answer provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		model:       defaultModel,
		displayName: defaultDisplayName,
	}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, WithClientBaseURL(p.baseURL))
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: defaultCallTimeout}
	}
	clientOpts = append(clientOpts, WithClientHTTPClient(p.httpClient))

	p.client = NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		Name:  p.displayName,
		Model: p.model,
		Icon:  "openai",
	}
}

// Answer poses one prompt and returns the raw answer text plus usage.
// Usage is estimated with tiktoken when the API response omits it.
func (p *Provider) Answer(ctx context.Context, prompt string, opts domain.AnswerOptions) (*domain.Answer, error) {
	req := &ChatCompletionRequest{
		Model: p.model,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
	}
	if opts.WebSearch {
		req.WebSearchOptions = &WebSearchOption{}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion from model %s", p.model)
	}

	answer := &domain.Answer{
		Text: resp.Choices[0].Message.Content,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if answer.Usage.TotalTokens == 0 {
		answer.Usage.PromptTokens = tokens.Estimate(p.model, prompt)
		answer.Usage.CompletionTokens = tokens.Estimate(p.model, answer.Text)
		answer.Usage.TotalTokens = answer.Usage.PromptTokens + answer.Usage.CompletionTokens
	}
	return answer, nil
}
