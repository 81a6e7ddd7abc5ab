package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/visiblelabs/brandscope/internal/domain"
)

// CompetitorResolver determines the entities the target is compared
// against when the caller supplies none.
type CompetitorResolver struct {
	source domain.AnswerProvider // nil means hints-only resolution
	max    int
}

// NewCompetitorResolver builds a resolver backed by the given provider. A
// nil provider restricts resolution to the scraped hints on the company.
func NewCompetitorResolver(source domain.AnswerProvider, max int) *CompetitorResolver {
	if max <= 0 {
		max = 6
	}
	return &CompetitorResolver{source: source, max: max}
}

// placeholderRe drops generic placeholder names some models emit instead
// of real companies.
var placeholderRe = regexp.MustCompile(`^Competitor [1-9]$`)

// Resolve returns a best-effort, bounded competitor list. Hints extracted
// upstream (company.Competitors) are merged with names suggested by the
// source provider; order is hints first, then suggestions.
func (r *CompetitorResolver) Resolve(ctx context.Context, company domain.Company) ([]string, error) {
	var names []string
	names = append(names, company.Competitors...)

	if r.source != nil {
		answer, err := r.source.Answer(ctx, identificationPrompt(company, r.max), domain.AnswerOptions{})
		if err != nil {
			return nil, fmt.Errorf("competitor identification failed: %w", err)
		}
		names = append(names, splitQuestions(answer.Text, r.max*2)...)
	}

	return Dedupe(company.Name, names, r.max), nil
}

// Dedupe normalizes, removes duplicates, placeholders, and the brand
// itself, preserving first-seen order, capped at max.
func Dedupe(brand string, names []string, max int) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, max)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || placeholderRe.MatchString(name) {
			continue
		}
		norm := NormalizeName(name)
		if norm == "" || norm == NormalizeName(brand) {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, name)
		if len(out) == max {
			break
		}
	}
	return out
}

var corpSuffixRe = regexp.MustCompile(`\s+(inc|llc|ltd|corp|co|gmbh|sas|sa)\.?$`)

// NormalizeName lowercases a company name and strips punctuation and
// corporate suffixes so "Acme, Inc." and "acme" collapse together.
func NormalizeName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	lower = strings.Trim(lower, ".,;:!?\"'")
	lower = corpSuffixRe.ReplaceAllString(lower, "")
	return strings.TrimSpace(lower)
}

func identificationPrompt(company domain.Company, max int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "List up to %d direct competitors of %s", max, company.Name)
	if company.Industry != "" {
		fmt.Fprintf(&b, ", a company in the %s space", company.Industry)
	}
	if company.Description != "" {
		fmt.Fprintf(&b, " (%s)", company.Description)
	}
	b.WriteString(". Output only full company names, one per line, no commentary.")
	return b.String()
}
