package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visiblelabs/brandscope/internal/domain"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "acme", NormalizeName("Acme"))
	assert.Equal(t, "acme", NormalizeName("Acme, Inc."))
	assert.Equal(t, "acme", NormalizeName("ACME LLC"))
	assert.Equal(t, "acme", NormalizeName("  Acme Co  "))
	assert.Equal(t, "foo bar", NormalizeName("Foo Bar GmbH"))
}

func TestDedupe(t *testing.T) {
	names := []string{
		"Foo", "foo", "Foo, Inc.", // all the same entity
		"Acme",          // the brand itself
		"Competitor 1",  // placeholder
		"",              // blank
		"Bar", "Baz", "Qux",
	}
	got := Dedupe("Acme", names, 3)
	assert.Equal(t, []string{"Foo", "Bar", "Baz"}, got)
}

func TestDedupe_PreservesFirstSeenForm(t *testing.T) {
	got := Dedupe("Acme", []string{"Foo, Inc.", "Foo"}, 6)
	assert.Equal(t, []string{"Foo, Inc."}, got)
}

func TestResolve_HintsOnlyWithNilSource(t *testing.T) {
	resolver := NewCompetitorResolver(nil, 6)
	company := domain.Company{Name: "Acme", Competitors: []string{"Foo", "Bar"}}

	got, err := resolver.Resolve(context.Background(), company)
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo", "Bar"}, got)
}

func TestResolve_MergesHintsAndSuggestions(t *testing.T) {
	source := &stubProvider{name: "OpenAI", answer: func(_ context.Context, prompt string) (*domain.Answer, error) {
		assert.Contains(t, prompt, "Acme")
		return &domain.Answer{Text: "Bar\nBaz\nFoo\nCompetitor 2"}, nil
	}}
	resolver := NewCompetitorResolver(source, 6)
	company := domain.Company{Name: "Acme", Industry: "developer tools", Competitors: []string{"Foo"}}

	got, err := resolver.Resolve(context.Background(), company)
	require.NoError(t, err)
	// Hints first, then new suggestions; duplicates and placeholders dropped.
	assert.Equal(t, []string{"Foo", "Bar", "Baz"}, got)
}

func TestResolve_CapsAtMax(t *testing.T) {
	source := &stubProvider{name: "OpenAI", answer: answering("A\nB\nC\nD\nE\nF\nG\nH")}
	resolver := NewCompetitorResolver(source, 3)

	got, err := resolver.Resolve(context.Background(), domain.Company{Name: "Acme"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
