package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"

	"github.com/visiblelabs/brandscope/internal/analysis"
	"github.com/visiblelabs/brandscope/internal/domain"
	"github.com/visiblelabs/brandscope/internal/scoring"
	"github.com/visiblelabs/brandscope/internal/sse"
	"github.com/visiblelabs/brandscope/internal/storage"
)

// BrandMonitorHandler serves the analysis endpoints.
type BrandMonitorHandler struct {
	analyzer *analysis.Analyzer
	store    storage.AnalysisStore // nil disables persistence
	logger   *slog.Logger

	mu    sync.Mutex
	saved map[string]struct{}
}

// NewBrandMonitorHandler builds the handler; store may be nil.
func NewBrandMonitorHandler(analyzer *analysis.Analyzer, store storage.AnalysisStore, logger *slog.Logger) *BrandMonitorHandler {
	return &BrandMonitorHandler{
		analyzer: analyzer,
		store:    store,
		logger:   logger,
		saved:    make(map[string]struct{}),
	}
}

// RegisterRoutes mounts the brand-monitor API.
func (h *BrandMonitorHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/brand-monitor/analyze", h.Analyze)
	r.Post("/api/brand-monitor/generate-prompts", h.GeneratePrompts)
	r.Get("/api/brand-monitor/check-providers", h.CheckProviders)
	r.Get("/api/brand-monitor/analyses", h.ListAnalyses)
	r.Get("/health", h.Health)
}

type competitorInput struct {
	Name string `json:"name"`
}

type analyzeRequest struct {
	Company     domain.Company    `json:"company"`
	Prompts     []string          `json:"prompts,omitempty"`
	Competitors []competitorInput `json:"competitors,omitempty"`
	WebSearch   bool              `json:"webSearch,omitempty"`
}

// Analyze runs the full pipeline, streaming progress as SSE. The stream
// ends with a complete event on success; a stream ending without one is a
// failed run.
func (h *BrandMonitorHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	company := req.Company
	if company.Name == "" && company.URL != "" {
		company.Name = CompanyNameFromURL(company.URL)
		if company.Industry == "" {
			company.Industry = "technology"
		}
		if company.Favicon == "" {
			company.Favicon = FaviconURL(company.URL)
		}
	}
	if company.Name == "" {
		http.Error(w, "company name or url is required", http.StatusBadRequest)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	runReq := analysis.Request{
		Company:   company,
		Prompts:   req.Prompts,
		WebSearch: req.WebSearch,
		Previous:  h.previousScores(r, company.Name),
	}
	for _, c := range req.Competitors {
		if c.Name != "" {
			runReq.Competitors = append(runReq.Competitors, c.Name)
		}
	}

	result, err := h.analyzer.Run(r.Context(), runReq, writer)
	if err != nil {
		AddError(r.Context(), err)
		// Best effort: the transport itself may be what failed.
		_ = writer.Send(r.Context(), domain.ProgressEvent{
			Type:      domain.EventError,
			Data:      domain.ErrorData{Message: err.Error()},
			Timestamp: time.Now().UTC(),
		})
		return
	}

	if err := writer.Send(r.Context(), domain.ProgressEvent{
		Type:      domain.EventComplete,
		Stage:     domain.StageComplete,
		SessionID: result.SessionID,
		Data:      domain.CompleteData{Analysis: *result},
		Timestamp: time.Now().UTC(),
	}); err != nil {
		AddError(r.Context(), err)
		return
	}

	h.saveOnce(r, result)
}

// previousScores loads the prior run's rankings for week-over-week deltas.
// Failures only cost the deltas, never the run.
func (h *BrandMonitorHandler) previousScores(r *http.Request, companyName string) scoring.PreviousScores {
	if h.store == nil {
		return nil
	}
	prev, err := h.store.LatestByCompany(r.Context(), companyName)
	if err != nil {
		h.logger.Warn("failed to load previous analysis",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("company", companyName),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if prev == nil {
		return nil
	}
	return scoring.PreviousFromRankings(prev.Competitors)
}

// saveOnce persists the terminal result at most once per session, even if
// the completion path runs again.
func (h *BrandMonitorHandler) saveOnce(r *http.Request, result *domain.AnalysisResult) {
	if h.store == nil {
		return
	}

	h.mu.Lock()
	if _, done := h.saved[result.SessionID]; done {
		h.mu.Unlock()
		return
	}
	h.saved[result.SessionID] = struct{}{}
	h.mu.Unlock()

	// The client may already be gone; persistence should not depend on it.
	ctx := context.WithoutCancel(r.Context())
	if err := h.store.SaveAnalysis(ctx, result); err != nil {
		h.logger.Error("failed to save analysis",
			slog.String("session_id", result.SessionID),
			slog.String("error", err.Error()),
		)
	}
}

// GeneratePrompts returns the probe questions that a run without custom
// prompts would use.
func (h *BrandMonitorHandler) GeneratePrompts(w http.ResponseWriter, r *http.Request) {
	var req analysis.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.EntityName == "" {
		http.Error(w, "entityName is required", http.StatusBadRequest)
		return
	}

	prompts, err := h.analyzer.PromptTexts(r.Context(), req)
	if err != nil {
		AddError(r.Context(), err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts})
}

// CheckProviders reports the display names of the providers a run would
// fan out to, including the simulated pair in mock mode.
func (h *BrandMonitorHandler) CheckProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": h.analyzer.ProviderNames(),
		"mockMode":  h.analyzer.MockMode(),
	})
}

// ListAnalyses returns stored analysis summaries, newest first. Supports
// ?company= and ?limit= filters.
func (h *BrandMonitorHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"analyses": []storage.Summary{}})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	summaries, err := h.store.ListAnalyses(r.Context(), r.URL.Query().Get("company"), limit)
	if err != nil {
		AddError(r.Context(), err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []storage.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": summaries})
}

func (h *BrandMonitorHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// FaviconURL points at Google's favicon service for the site's host, used
// when the caller supplied no favicon of its own.
func FaviconURL(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return "https://www.google.com/s2/favicons?domain=" + u.Hostname() + "&sz=128"
}

// CompanyNameFromURL derives a display name from a URL when the caller
// supplies only the site: host minus "www." and the public suffix, with
// the first letter upcased.
func CompanyNameFromURL(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if i := strings.Index(host, "."); i > 0 {
		host = host[:i]
	}
	if host == "" {
		return ""
	}
	runes := []rune(host)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
