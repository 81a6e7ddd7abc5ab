package domain

import (
	"context"
	"errors"
)

// ErrUnavailable signals that a provider declined a call without a hard
// error (missing capability, disabled feature). The orchestrator marks the
// cell failed but records nothing in the error list.
var ErrUnavailable = errors.New("provider unavailable")

// ProviderDescriptor identifies a provider for the lifetime of a session.
// The descriptor set is fixed when the session starts.
type ProviderDescriptor struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Icon  string `json:"icon,omitempty"`
}

// Answer is the raw outcome of posing one prompt to one provider.
type Answer struct {
	Text  string
	Usage Usage
}

// AnswerOptions carries per-call switches.
type AnswerOptions struct {
	// WebSearch asks the provider to augment the answer with live web
	// results where the upstream API supports it.
	WebSearch bool
}

// AnswerProvider is one independent AI answer source. Implementations must
// bound their own latency (a deadline on the underlying HTTP client) and
// return an error rather than hang a batch.
type AnswerProvider interface {
	Descriptor() ProviderDescriptor
	Answer(ctx context.Context, prompt string, opts AnswerOptions) (*Answer, error)
}
