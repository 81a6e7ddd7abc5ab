package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visiblelabs/brandscope/internal/analysis"
	"github.com/visiblelabs/brandscope/internal/config"
	"github.com/visiblelabs/brandscope/internal/domain"
	"github.com/visiblelabs/brandscope/internal/sse"
	"github.com/visiblelabs/brandscope/internal/storage/memory"
	"github.com/visiblelabs/brandscope/internal/viewstate"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.AnalysisConfig{
		BatchSize:      3,
		MaxPrompts:     4,
		MaxCompetitors: 6,
		Simulate:       true, // mock providers, zero delay
	}
	analyzer := analysis.New(cfg, nil, logger)
	store := memory.New()

	r := chi.NewRouter()
	handler := NewBrandMonitorHandler(analyzer, store, logger)
	handler.RegisterRoutes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, store
}

func postAnalyze(t *testing.T, ts *httptest.Server, body map[string]any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/brand-monitor/analyze", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func TestAnalyze_StreamsToCompletion(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postAnalyze(t, ts, map[string]any{
		"company": map[string]any{"name": "Acme", "industry": "developer tools"},
		"prompts": []string{"What is the best developer tool?"},
		"competitors": []map[string]string{
			{"name": "Foo"}, {"name": "Bar"},
		},
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	state := viewstate.Reduce(viewstate.Initial(), viewstate.BeginAnalysis{})
	reader := sse.NewReader(resp.Body)
	var types []domain.EventType
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		types = append(types, event.Type)

		action, err := viewstate.FromEvent(event)
		require.NoError(t, err)
		state = viewstate.Reduce(state, action)
	}

	require.NotNil(t, state.Result, "stream ended without a complete event")
	assert.Equal(t, domain.StageComplete, state.Stage)
	assert.Equal(t, "Acme", state.Result.Company.Name)
	assert.ElementsMatch(t, []string{"Foo", "Bar"}, state.Result.KnownCompetitors)
	assert.Len(t, state.Result.Prompts, 1)
	assert.Len(t, state.Result.Responses, 2) // 1 prompt x 2 mock providers
	assert.Len(t, state.Result.Competitors, 3)

	assert.Equal(t, domain.EventStart, types[0])
	assert.Equal(t, domain.EventComplete, types[len(types)-1])
}

func TestAnalyze_PersistsResultOnce(t *testing.T) {
	ts, store := newTestServer(t)

	resp := postAnalyze(t, ts, map[string]any{
		"company": map[string]any{"name": "Acme"},
		"prompts": []string{"best?"},
		"competitors": []map[string]string{
			{"name": "Foo"},
		},
	})
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	summaries, err := store.ListAnalyses(t.Context(), "Acme", 0)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestAnalyze_SecondRunGetsWeeklyChange(t *testing.T) {
	ts, _ := newTestServer(t)

	body := map[string]any{
		"company":     map[string]any{"name": "Acme"},
		"prompts":     []string{"best?"},
		"competitors": []map[string]string{{"name": "Foo"}},
	}

	for run := 0; run < 2; run++ {
		resp := postAnalyze(t, ts, body)
		reader := sse.NewReader(resp.Body)
		var sawComplete bool
		for {
			event, err := reader.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			if event.Type != domain.EventComplete {
				continue
			}
			sawComplete = true
			payload, err := event.DecodeData()
			require.NoError(t, err)
			result := payload.(*domain.CompleteData).Analysis
			if run == 0 {
				for _, r := range result.Competitors {
					assert.Zero(t, r.WeeklyChange, "first run has no prior scores")
				}
			}
		}
		resp.Body.Close()
		require.True(t, sawComplete, "run %d ended without complete", run)
	}
}

func TestAnalyze_DerivesCompanyNameFromURL(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postAnalyze(t, ts, map[string]any{
		"company":     map[string]any{"url": "https://www.acme.io"},
		"prompts":     []string{"best?"},
		"competitors": []map[string]string{{"name": "Foo"}},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := sse.NewReader(resp.Body)
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if event.Type == domain.EventComplete {
			payload, err := event.DecodeData()
			require.NoError(t, err)
			company := payload.(*domain.CompleteData).Analysis.Company
			assert.Equal(t, "Acme", company.Name)
			assert.Equal(t, "technology", company.Industry)
			assert.Contains(t, company.Favicon, "acme.io")
			return
		}
	}
	t.Fatal("no complete event")
}

func TestAnalyze_BadRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/brand-monitor/analyze", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postAnalyze(t, ts, map[string]any{"company": map[string]any{}})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckProviders_MockFallback(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/brand-monitor/check-providers")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Providers []string `json:"providers"`
		MockMode  bool     `json:"mockMode"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"OpenAI", "Anthropic"}, body.Providers)
	assert.True(t, body.MockMode)
}

func TestGeneratePrompts_TemplateFallback(t *testing.T) {
	ts, _ := newTestServer(t)

	payload := `{"entityName":"Acme","sector":"web scraping"}`
	resp, err := http.Post(ts.URL+"/api/brand-monitor/generate-prompts", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Prompts []string `json:"prompts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Prompts, 4)
	assert.Contains(t, body.Prompts[0], "web scraping tool")
}

func TestGeneratePrompts_RequiresEntityName(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/brand-monitor/generate-prompts", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListAnalyses_EmptyStore(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/brand-monitor/analyses")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Analyses []any `json:"analyses"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.Analyses)
}

func TestFaviconURL(t *testing.T) {
	assert.Equal(t,
		"https://www.google.com/s2/favicons?domain=acme.io&sz=128",
		FaviconURL("https://www.acme.io/about"))
	assert.Empty(t, FaviconURL("https://"))
}

func TestCompanyNameFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.acme.io", "Acme"},
		{"acme.com", "Acme"},
		{"https://sub.acme.com/path", "Sub"},
		{"", ""},
		{"https://", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompanyNameFromURL(tt.in), tt.in)
	}
}
