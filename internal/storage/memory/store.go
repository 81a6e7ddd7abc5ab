// Package memory is an in-memory AnalysisStore for tests and for running
// without a database file.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/visiblelabs/brandscope/internal/domain"
	"github.com/visiblelabs/brandscope/internal/storage"
)

// Store keeps analyses in a map guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	analyses map[string]entry
}

type entry struct {
	result    domain.AnalysisResult
	createdAt time.Time
}

var _ storage.AnalysisStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{analyses: make(map[string]entry)}
}

func (s *Store) SaveAnalysis(_ context.Context, result *domain.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.analyses[result.SessionID]; exists {
		return nil
	}
	createdAt := result.CompletedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.analyses[result.SessionID] = entry{result: *result, createdAt: createdAt}
	return nil
}

func (s *Store) LatestByCompany(_ context.Context, companyName string) (*domain.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *entry
	for _, e := range s.analyses {
		if e.result.Company.Name != companyName {
			continue
		}
		if latest == nil || e.createdAt.After(latest.createdAt) {
			cp := e
			latest = &cp
		}
	}
	if latest == nil {
		return nil, nil
	}
	result := latest.result
	return &result, nil
}

func (s *Store) ListAnalyses(_ context.Context, companyName string, limit int) ([]storage.Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.Summary
	for _, e := range s.analyses {
		if companyName != "" && e.result.Company.Name != companyName {
			continue
		}
		out = append(out, storage.Summary{
			SessionID:   e.result.SessionID,
			CompanyName: e.result.Company.Name,
			CompanyURL:  e.result.Company.URL,
			Responses:   len(e.result.Responses),
			Errors:      len(e.result.Errors),
			TotalTokens: e.result.Usage.TotalTokens,
			CreatedAt:   e.createdAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
