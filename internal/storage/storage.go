// Package storage defines the persistence surface for completed analyses.
// The pipeline itself never touches it; the server hands each terminal
// result over exactly once.
package storage

import (
	"context"
	"time"

	"github.com/visiblelabs/brandscope/internal/domain"
)

// Summary is the listing row for a stored analysis, without the full
// result payload.
type Summary struct {
	SessionID   string    `json:"sessionId"`
	CompanyName string    `json:"companyName"`
	CompanyURL  string    `json:"companyUrl,omitempty"`
	Responses   int       `json:"responses"`
	Errors      int       `json:"errors"`
	TotalTokens int       `json:"totalTokens"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AnalysisStore persists terminal analysis results and serves them back
// for history views and week-over-week deltas.
type AnalysisStore interface {
	// SaveAnalysis stores one completed result. Saving the same session
	// twice is a no-op, not an error.
	SaveAnalysis(ctx context.Context, result *domain.AnalysisResult) error

	// LatestByCompany returns the most recent stored result for the
	// company name, or (nil, nil) when none exists.
	LatestByCompany(ctx context.Context, companyName string) (*domain.AnalysisResult, error)

	// ListAnalyses returns the most recent analyses, newest first,
	// optionally filtered by company name.
	ListAnalyses(ctx context.Context, companyName string, limit int) ([]Summary, error)

	Close() error
}
