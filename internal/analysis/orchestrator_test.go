package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visiblelabs/brandscope/internal/config"
	"github.com/visiblelabs/brandscope/internal/domain"
)

type stubProvider struct {
	name   string
	answer func(ctx context.Context, prompt string) (*domain.Answer, error)
}

func (s *stubProvider) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{Name: s.name, Model: s.name + "-model"}
}

func (s *stubProvider) Answer(ctx context.Context, prompt string, _ domain.AnswerOptions) (*domain.Answer, error) {
	return s.answer(ctx, prompt)
}

func answering(text string) func(context.Context, string) (*domain.Answer, error) {
	return func(context.Context, string) (*domain.Answer, error) {
		return &domain.Answer{Text: text, Usage: domain.Usage{PromptTokens: 5, CompletionTokens: 10, TotalTokens: 15}}, nil
	}
}

// memorySink records every event; failAfter > 0 makes Send fail once that
// many events have been accepted.
type memorySink struct {
	mu        sync.Mutex
	events    []domain.ProgressEvent
	failAfter int
}

func (m *memorySink) Send(_ context.Context, event domain.ProgressEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter > 0 && len(m.events) >= m.failAfter {
		return errors.New("sink closed")
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memorySink) ofType(t domain.EventType) []domain.ProgressEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ProgressEvent
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.AnalysisConfig {
	return config.AnalysisConfig{BatchSize: 3, MaxPrompts: 4, MaxCompetitors: 6}
}

func TestRun_StartCompletePairing(t *testing.T) {
	providers := []domain.AnswerProvider{
		&stubProvider{name: "OpenAI", answer: answering("1. Acme is great.")},
		&stubProvider{name: "Anthropic", answer: answering("Acme and Foo are options.")},
	}
	analyzer := New(testConfig(), providers, testLogger())

	sink := &memorySink{}
	result, err := analyzer.Run(context.Background(), Request{
		Company:     domain.Company{Name: "Acme"},
		Prompts:     []string{"best tool?", "top startups?", "most popular?"},
		Competitors: []string{"Foo"},
	}, sink)
	require.NoError(t, err)
	require.NotNil(t, result)

	starts := sink.ofType(domain.EventAnalysisStart)
	completes := sink.ofType(domain.EventAnalysisComplete)
	assert.Len(t, starts, 6) // 3 prompts x 2 providers
	assert.Len(t, completes, 6)

	// Every start has exactly one complete for the same pair, and the
	// start comes first.
	type pair struct{ prompt, provider string }
	seen := make(map[pair]int)
	started := make(map[pair]bool)
	for _, e := range sink.events {
		data, ok := e.Data.(domain.CallProgressData)
		if !ok {
			continue
		}
		p := pair{data.PromptID, data.Provider}
		switch e.Type {
		case domain.EventAnalysisStart:
			started[p] = true
		case domain.EventAnalysisComplete:
			require.True(t, started[p], "complete before start for %v", p)
			seen[p]++
		}
	}
	require.Len(t, seen, 6)
	for p, n := range seen {
		assert.Equal(t, 1, n, "pair %v completed %d times", p, n)
	}
}

func TestRun_ProgressMonotonic(t *testing.T) {
	providers := []domain.AnswerProvider{
		&stubProvider{name: "OpenAI", answer: answering("Acme.")},
		&stubProvider{name: "Anthropic", answer: answering("Acme.")},
	}
	cfg := testConfig()
	cfg.BatchSize = 2
	analyzer := New(cfg, providers, testLogger())

	sink := &memorySink{}
	_, err := analyzer.Run(context.Background(), Request{
		Company:     domain.Company{Name: "Acme"},
		Prompts:     []string{"a?", "b?", "c?", "d?", "e?"},
		Competitors: []string{"Foo"},
	}, sink)
	require.NoError(t, err)

	last := -1
	final := 0
	for _, e := range sink.events {
		if e.Type != domain.EventProgress || e.Stage != domain.StageAnalyzingPrompts {
			continue
		}
		data, ok := e.Data.(domain.StageProgressData)
		require.True(t, ok)
		require.GreaterOrEqual(t, data.Progress, last)
		last = data.Progress
		final = data.Progress
	}
	assert.Equal(t, 100, final)
}

func TestRun_PartialFailure(t *testing.T) {
	var calls int
	var mu sync.Mutex
	flaky := &stubProvider{name: "OpenAI", answer: func(ctx context.Context, prompt string) (*domain.Answer, error) {
		mu.Lock()
		calls++
		failing := calls == 1
		mu.Unlock()
		if failing {
			return nil, errors.New("rate limited")
		}
		return &domain.Answer{Text: "Acme is great."}, nil
	}}
	steady := &stubProvider{name: "Anthropic", answer: answering("Acme leads; Foo follows.")}

	analyzer := New(testConfig(), []domain.AnswerProvider{flaky, steady}, testLogger())

	sink := &memorySink{}
	result, err := analyzer.Run(context.Background(), Request{
		Company:     domain.Company{Name: "Acme"},
		Prompts:     []string{"best?", "top?"},
		Competitors: []string{"Foo"},
	}, sink)
	require.NoError(t, err)

	assert.Len(t, result.Responses, 3)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "OpenAI: "), result.Errors[0])
	assert.Contains(t, result.Errors[0], "rate limited")

	// Rankings are computed from the 3 successes only: every success
	// mentions the brand, so visibility stays 100.
	own, ok := result.OwnRanking()
	require.True(t, ok)
	assert.InDelta(t, 100.0, own.VisibilityScore, 0.01)
	assert.Equal(t, 3, own.Mentions)

	failed := 0
	for _, e := range sink.ofType(domain.EventAnalysisComplete) {
		if e.Data.(domain.CallProgressData).Status == domain.CallFailed {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestRun_UnavailableProviderSkippedWithoutErrorEntry(t *testing.T) {
	down := &stubProvider{name: "OpenAI", answer: func(context.Context, string) (*domain.Answer, error) {
		return nil, fmt.Errorf("no key: %w", domain.ErrUnavailable)
	}}
	up := &stubProvider{name: "Anthropic", answer: answering("Acme.")}

	analyzer := New(testConfig(), []domain.AnswerProvider{down, up}, testLogger())

	sink := &memorySink{}
	result, err := analyzer.Run(context.Background(), Request{
		Company:     domain.Company{Name: "Acme"},
		Prompts:     []string{"best?"},
		Competitors: []string{"Foo"},
	}, sink)
	require.NoError(t, err)

	assert.Len(t, result.Responses, 1)
	assert.Empty(t, result.Errors)
	assert.Len(t, sink.ofType(domain.EventAnalysisComplete), 2)
}

func TestRun_MockModeEventSequence(t *testing.T) {
	cfg := testConfig()
	cfg.Simulate = true
	analyzer := New(cfg, nil, testLogger())

	sink := &memorySink{}
	result, err := analyzer.Run(context.Background(), Request{
		Company:     domain.Company{Name: "Acme"},
		Prompts:     []string{"What is the best developer tool?"},
		Competitors: []string{"Foo", "Bar"},
	}, sink)
	require.NoError(t, err)
	require.NotNil(t, result)

	// partial-result and progress events interleave non-deterministically
	// with the call events; the remaining sequence is fixed.
	var got []string
	for _, e := range sink.events {
		if e.Type == domain.EventPartialResult || e.Type == domain.EventProgress {
			continue
		}
		tag := string(e.Type)
		if e.Type == domain.EventStage {
			tag += "/" + string(e.Stage)
		}
		got = append(got, tag)
	}
	want := []string{
		"start",
		"stage/identifying-competitors",
		"competitor-found",
		"competitor-found",
		"stage/generating-prompts",
		"prompt-generated",
		"stage/analyzing-prompts",
		// 2 mock providers x 1 prompt: 2 starts and 2 completes, order
		// within the block unconstrained but starts precede their own
		// completes.
		"analysis-start", "analysis-start", "analysis-complete", "analysis-complete",
		"stage/calculating-scores",
		"scoring-start", "scoring-start", "scoring-start",
		"stage/finalizing",
	}
	require.Len(t, got, len(want))
	assert.Equal(t, want[:7], got[:7])
	assert.Equal(t, want[11:], got[11:])
	assert.ElementsMatch(t, want[7:11], got[7:11])

	// Session identity is stamped on every event.
	for _, e := range sink.events {
		assert.Equal(t, result.SessionID, e.SessionID)
	}

	// Visibility reflects only responses that actually mentioned the brand.
	own, ok := result.OwnRanking()
	require.True(t, ok)
	mentioning := 0
	for _, r := range result.Responses {
		if r.BrandMentioned {
			mentioning++
		}
	}
	if len(result.Responses) > 0 {
		expected := float64(mentioning) / float64(len(result.Responses)) * 100
		assert.InDelta(t, expected, own.VisibilityScore, 0.1)
	}
}

func TestRun_SinkFailureAborts(t *testing.T) {
	providers := []domain.AnswerProvider{
		&stubProvider{name: "OpenAI", answer: answering("Acme.")},
	}
	analyzer := New(testConfig(), providers, testLogger())

	sink := &memorySink{failAfter: 3}
	_, err := analyzer.Run(context.Background(), Request{
		Company:     domain.Company{Name: "Acme"},
		Prompts:     []string{"best?"},
		Competitors: []string{"Foo"},
	}, sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event transport failed")
}

func TestRun_CancellationIsBatchGranular(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// The provider cancels the run while the first batch is in flight; the
	// in-flight call still completes because calls are detached from the
	// request context.
	provider := &stubProvider{name: "OpenAI", answer: func(callCtx context.Context, prompt string) (*domain.Answer, error) {
		cancel()
		require.NoError(t, callCtx.Err())
		return &domain.Answer{Text: "Acme."}, nil
	}}

	cfg := testConfig()
	cfg.BatchSize = 1
	analyzer := New(cfg, []domain.AnswerProvider{provider}, testLogger())

	sink := &memorySink{}
	_, err := analyzer.Run(ctx, Request{
		Company:     domain.Company{Name: "Acme"},
		Prompts:     []string{"first?", "second?"},
		Competitors: []string{"Foo"},
	}, sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis canceled")

	// Batch 1 ran to completion; batch 2 never started.
	assert.Len(t, sink.ofType(domain.EventAnalysisStart), 1)
	assert.Len(t, sink.ofType(domain.EventAnalysisComplete), 1)
}

func TestRun_MaxInFlightBoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0
	provider := func(name string) *stubProvider {
		return &stubProvider{name: name, answer: func(context.Context, string) (*domain.Answer, error) {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()
			defer func() {
				mu.Lock()
				inFlight--
				mu.Unlock()
			}()
			return &domain.Answer{Text: "Acme."}, nil
		}}
	}

	cfg := testConfig()
	cfg.MaxInFlight = 1
	analyzer := New(cfg, []domain.AnswerProvider{provider("OpenAI"), provider("Anthropic")}, testLogger())

	sink := &memorySink{}
	_, err := analyzer.Run(context.Background(), Request{
		Company:     domain.Company{Name: "Acme"},
		Prompts:     []string{"a?", "b?", "c?"},
		Competitors: []string{"Foo"},
	}, sink)
	require.NoError(t, err)
	assert.Equal(t, 1, peak)
}

func TestProviderNames(t *testing.T) {
	t.Run("mock mode", func(t *testing.T) {
		analyzer := New(testConfig(), nil, testLogger())
		assert.True(t, analyzer.MockMode())
		assert.Equal(t, []string{"OpenAI", "Anthropic"}, analyzer.ProviderNames())
	})

	t.Run("real providers", func(t *testing.T) {
		analyzer := New(testConfig(), []domain.AnswerProvider{
			&stubProvider{name: "OpenAI"},
		}, testLogger())
		assert.False(t, analyzer.MockMode())
		assert.Equal(t, []string{"OpenAI"}, analyzer.ProviderNames())
	})
}
