// Package anthropic implements the answer-provider contract on top of the
// Anthropic messages API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/visiblelabs/brandscope/internal/domain"
	"github.com/visiblelabs/brandscope/internal/tokens"
)

const (
	defaultModel       = "claude-3-5-sonnet-latest"
	defaultDisplayName = "Anthropic"
	defaultMaxTokens   = 1024
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

// Provider answers prompts with an Anthropic model.
type Provider struct {
	client      *Client
	model       string
	baseURL     string
	displayName string
	httpClient  *http.Client
}

// New creates an Anthropic-backed answer provider.
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
		Icon:  "anthropic",
	}
}

// Answer poses one prompt and returns the concatenated text blocks of the
// reply. Usage is estimated when the API omits it.
func (p *Provider) Answer(ctx context.Context, prompt string, opts domain.AnswerOptions) (*domain.Answer, error) {
	req := &MessagesRequest{
		Model:     p.model,
		MaxTokens: defaultMaxTokens,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
	}
	if opts.WebSearch {
		req.Tools = append(req.Tools, Tool{
			Type:    "web_search_20250305",
			Name:    "web_search",
			MaxUses: 3,
		})
	}

	resp, err := p.client.CreateMessage(ctx, req)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty reply from model %s", p.model)
	}

	answer := &domain.Answer{
		Text: text.String(),
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
	if answer.Usage.TotalTokens == 0 {
		answer.Usage.PromptTokens = tokens.Estimate(p.model, prompt)
		answer.Usage.CompletionTokens = tokens.Estimate(p.model, answer.Text)
		answer.Usage.TotalTokens = answer.Usage.PromptTokens + answer.Usage.CompletionTokens
	}
	return answer, nil
}
