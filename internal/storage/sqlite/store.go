// Package sqlite is the SQLite-backed AnalysisStore.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/visiblelabs/brandscope/internal/domain"
	"github.com/visiblelabs/brandscope/internal/storage"
)

// Store persists analyses in a single SQLite database file.
type Store struct {
	db *sql.DB
}

var _ storage.AnalysisStore = (*Store)(nil)

// New opens (creating if needed) the database at dbPath and initializes
// the schema.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			session_id TEXT PRIMARY KEY,
			company_name TEXT NOT NULL,
			company_url TEXT,
			responses INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			result TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_company ON analyses(company_name, created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveAnalysis stores one terminal result. A duplicate session id is
// ignored so retried completion callbacks stay harmless.
func (s *Store) SaveAnalysis(ctx context.Context, result *domain.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	createdAt := result.CompletedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (session_id, company_name, company_url, responses, errors, total_tokens, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING`,
		result.SessionID,
		result.Company.Name,
		result.Company.URL,
		len(result.Responses),
		len(result.Errors),
		result.Usage.TotalTokens,
		string(payload),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// LatestByCompany returns the newest stored result for the company, or
// (nil, nil) when the company has no history.
func (s *Store) LatestByCompany(ctx context.Context, companyName string) (*domain.AnalysisResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT result FROM analyses
		WHERE company_name = ?
		ORDER BY created_at DESC
		LIMIT 1`, companyName).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to decode stored analysis: %w", err)
	}
	return &result, nil
}

// ListAnalyses returns summaries newest first. An empty companyName lists
// across all companies; limit <= 0 defaults to 50.
func (s *Store) ListAnalyses(ctx context.Context, companyName string, limit int) ([]storage.Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT session_id, company_name, company_url, responses, errors, total_tokens, created_at
		FROM analyses`
	args := []any{}
	if companyName != "" {
		query += ` WHERE company_name = ?`
		args = append(args, companyName)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var out []storage.Summary
	for rows.Next() {
		var sum storage.Summary
		var url sql.NullString
		if err := rows.Scan(&sum.SessionID, &sum.CompanyName, &url, &sum.Responses, &sum.Errors, &sum.TotalTokens, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		sum.CompanyURL = url.String
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
