// Command scopewatch triggers an analysis against a running brandscope
// server and renders the progress stream in the terminal.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/visiblelabs/brandscope/internal/domain"
	"github.com/visiblelabs/brandscope/internal/sse"
	"github.com/visiblelabs/brandscope/internal/viewstate"
)

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8080", "brandscope server URL")
		company   = flag.String("company", "", "company name to analyze")
		siteURL   = flag.String("url", "", "company website (used when -company is omitted)")
		industry  = flag.String("industry", "", "company industry")
		webSearch = flag.Bool("web-search", false, "ask providers to use web search")
		prompts   multiFlag
		rivals    multiFlag
	)
	flag.Var(&prompts, "prompt", "custom prompt (repeatable)")
	flag.Var(&rivals, "competitor", "known competitor (repeatable)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	if *company == "" && *siteURL == "" {
		fmt.Fprintln(os.Stderr, "either -company or -url is required")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := watch(ctx, *serverURL, *company, *siteURL, *industry, prompts, rivals, *webSearch, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func watch(ctx context.Context, serverURL, company, siteURL, industry string, prompts, rivals []string, webSearch bool, logger *slog.Logger) error {
	type competitorInput struct {
		Name string `json:"name"`
	}
	body := map[string]any{
		"company": domain.Company{
			Name:     company,
			URL:      siteURL,
			Industry: industry,
		},
		"webSearch": webSearch,
	}
	if len(prompts) > 0 {
		body["prompts"] = prompts
	}
	if len(rivals) > 0 {
		inputs := make([]competitorInput, len(rivals))
		for i, name := range rivals {
			inputs[i] = competitorInput{Name: name}
		}
		body["competitors"] = inputs
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(serverURL, "/")+"/api/brand-monitor/analyze", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{Timeout: 0}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	state := viewstate.Reduce(viewstate.Initial(), viewstate.BeginAnalysis{})
	reader := sse.NewReader(resp.Body)

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			state = viewstate.Reduce(state, viewstate.StreamEnded{SessionID: state.SessionID})
			break
		}
		if err != nil {
			return err
		}

		action, err := viewstate.FromEvent(event)
		if err != nil {
			logger.Warn("dropping malformed event", slog.String("type", string(event.Type)), slog.String("error", err.Error()))
			continue
		}
		prev := state
		state = viewstate.Reduce(state, action)
		render(prev, state, event)

		if state.Result != nil || state.FatalError != "" {
			break
		}
	}

	if state.FatalError != "" {
		return errors.New(state.FatalError)
	}
	if state.Result != nil {
		printResult(state.Result)
	}
	return nil
}

// render prints one line per visible transition rather than redrawing the
// whole screen.
func render(prev, state viewstate.State, event *domain.RawEvent) {
	switch event.Type {
	case domain.EventStage:
		fmt.Printf("── %s\n", state.Stage)
	case domain.EventCompetitorFound:
		if n := len(state.Competitors); n > len(prev.Competitors) {
			fmt.Printf("   competitor: %s\n", state.Competitors[n-1])
		}
	case domain.EventPromptGenerated:
		if n := len(state.Prompts); n > len(prev.Prompts) {
			fmt.Printf("   prompt: %s\n", state.Prompts[n-1].Text)
		}
	case domain.EventProgress:
		fmt.Printf("   %3d%% %s\n", state.Progress, state.Message)
	case domain.EventError:
		fmt.Printf("   fatal: %s\n", state.FatalError)
	}
}

func printResult(result *domain.AnalysisResult) {
	fmt.Printf("\n%s — completed %s\n", result.Company.Name, result.CompletedAt.Format(time.RFC3339))
	fmt.Printf("%-24s %10s %8s %8s %9s\n", "ENTITY", "VISIBILITY", "SOV", "AVGPOS", "SENTIMENT")
	for _, r := range result.Competitors {
		marker := " "
		if r.IsOwn {
			marker = "*"
		}
		avgPos := "-"
		if r.AveragePosition > 0 {
			avgPos = fmt.Sprintf("%.1f", r.AveragePosition)
		}
		fmt.Printf("%s%-23s %9.1f%% %8.3f %8s %9.1f\n",
			marker, r.Name, r.VisibilityScore, r.ShareOfVoice, avgPos, r.SentimentScore)
	}
	if len(result.Errors) > 0 {
		fmt.Printf("\n%d call(s) failed:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Println("  -", e)
		}
	}
	fmt.Printf("\ntokens: %d prompt / %d completion / %d total\n",
		result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.TotalTokens)
}
