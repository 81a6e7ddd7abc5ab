package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visiblelabs/brandscope/internal/domain"
	"github.com/visiblelabs/brandscope/internal/testutil"
)

func TestAnswer_VCR(t *testing.T) {
	r, cleanup := testutil.NewVCRRecorder(t, "chat_completion")
	defer cleanup()

	p := New("test-key", WithHTTPClient(testutil.VCRHTTPClient(r)))
	answer, err := p.Answer(context.Background(), "What is the best developer tool?", domain.AnswerOptions{})
	require.NoError(t, err)

	assert.Contains(t, answer.Text, "Acme")
	assert.Equal(t, 12, answer.Usage.PromptTokens)
	assert.Equal(t, 25, answer.Usage.CompletionTokens)
	assert.Equal(t, 37, answer.Usage.TotalTokens)
}

func TestAnswer_APIError_VCR(t *testing.T) {
	r, cleanup := testutil.NewVCRRecorder(t, "chat_completion_error")
	defer cleanup()

	p := New("test-key", WithHTTPClient(testutil.VCRHTTPClient(r)))
	_, err := p.Answer(context.Background(), "What is the best developer tool?", domain.AnswerOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rate limit reached")
	assert.Contains(t, err.Error(), "429")
}

func TestDescriptor(t *testing.T) {
	p := New("key", WithModel("gpt-4o"), WithDisplayName("OpenAI GPT-4o"))
	desc := p.Descriptor()
	assert.Equal(t, "OpenAI GPT-4o", desc.Name)
	assert.Equal(t, "gpt-4o", desc.Model)
	assert.Equal(t, "openai", desc.Icon)
}
