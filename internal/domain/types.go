// Package domain holds the core types shared across the analysis pipeline:
// the analyzed company, probe prompts, per-provider responses, and the
// aggregate rankings computed from them.
package domain

import "time"

// Sentiment classifies the tone of a single provider answer toward a brand.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// PromptCategory distinguishes caller-supplied prompts from generated ones.
type PromptCategory string

const (
	PromptGenerated PromptCategory = "generated"
	PromptCustom    PromptCategory = "custom"
)

// Company is the target entity under analysis.
type Company struct {
	ID          string   `json:"id"`
	URL         string   `json:"url,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	Favicon     string   `json:"favicon,omitempty"`
	Products    []string `json:"products,omitempty"`
	// Competitors holds competitor name hints extracted by an upstream
	// collaborator (e.g. a site scrape). They are only hints; the resolved
	// competitor set for a run lives on the AnalysisResult.
	Competitors []string `json:"competitors,omitempty"`
}

// Prompt is one probe question posed to every provider. Ordering is
// significant: the index is used for progress math and UI correlation.
type Prompt struct {
	ID       string         `json:"id"`
	Text     string         `json:"prompt"`
	Category PromptCategory `json:"category"`
}

// Response is the analyzed outcome of one (prompt, provider) call.
// Exactly one Response exists per successful call; failed calls produce an
// error-list entry instead, never an empty Response.
type Response struct {
	Provider             string    `json:"provider"`
	PromptID             string    `json:"promptId"`
	Prompt               string    `json:"prompt"`
	BrandMentioned       bool      `json:"brandMentioned"`
	BrandPosition        int       `json:"brandPosition,omitempty"` // 1-based, 0 = not positioned
	Sentiment            Sentiment `json:"sentiment"`
	CompetitorsMentioned []string  `json:"competitorsMentioned,omitempty"`
	RawText              string    `json:"response"`
}

// CompetitorRanking is the per-entity aggregate, fully recomputed from the
// response set on every run.
type CompetitorRanking struct {
	Name            string  `json:"name"`
	IsOwn           bool    `json:"isOwn"`
	VisibilityScore float64 `json:"visibilityScore"`
	ShareOfVoice    float64 `json:"shareOfVoice"`
	AveragePosition float64 `json:"averagePosition,omitempty"` // 0 = never positioned
	SentimentScore  float64 `json:"sentimentScore"`
	WeeklyChange    float64 `json:"weeklyChange"`
	Mentions        int     `json:"mentions"`
}

// ProviderRankings holds the same ranking computation restricted to the
// responses of a single provider, keyed by provider name.
type ProviderRankings map[string][]CompetitorRanking

// ProviderComparison is a cross-provider matrix: entity name to
// per-provider visibility score.
type ProviderComparison struct {
	Entities  []ComparisonRow `json:"entities"`
	Providers []string        `json:"providers"`
}

// ComparisonRow is one entity's visibility broken down by provider.
type ComparisonRow struct {
	Name   string             `json:"name"`
	IsOwn  bool               `json:"isOwn"`
	Scores map[string]float64 `json:"scores"`
}

// Usage aggregates token consumption across all provider calls of a run.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// AnalysisResult is the terminal object of a run.
type AnalysisResult struct {
	SessionID          string              `json:"sessionId"`
	Company            Company             `json:"company"`
	KnownCompetitors   []string            `json:"knownCompetitors"`
	Prompts            []Prompt            `json:"prompts"`
	Responses          []Response          `json:"responses"`
	Competitors        []CompetitorRanking `json:"competitors"`
	ProviderRankings   ProviderRankings    `json:"providerRankings,omitempty"`
	ProviderComparison *ProviderComparison `json:"providerComparison,omitempty"`
	Errors             []string            `json:"errors,omitempty"`
	WebSearchUsed      bool                `json:"webSearchUsed,omitempty"`
	Usage              Usage               `json:"usage"`
	CompletedAt        time.Time           `json:"completedAt"`
}

// OwnRanking returns the target entity's row from the rankings, if present.
func (r *AnalysisResult) OwnRanking() (CompetitorRanking, bool) {
	for _, c := range r.Competitors {
		if c.IsOwn {
			return c, true
		}
	}
	return CompetitorRanking{}, false
}
