package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/visiblelabs/brandscope/internal/config"
	"github.com/visiblelabs/brandscope/internal/domain"
	"github.com/visiblelabs/brandscope/internal/scoring"
)

// EventSink receives every progress event the pipeline produces. A Send
// failure is fatal to the run: if progress cannot be communicated there is
// no point continuing.
type EventSink interface {
	Send(ctx context.Context, event domain.ProgressEvent) error
}

// Request is one analysis run. Prompts and Competitors are optional; when
// absent they are generated and resolved respectively.
type Request struct {
	Company     domain.Company
	Prompts     []string
	Competitors []string
	WebSearch   bool
	// Previous feeds the weekly-change deltas; nil leaves them at zero.
	Previous scoring.PreviousScores
}

// Analyzer drives the stage machine for one run at a time. It is safe for
// concurrent use; each Run owns its session exclusively.
type Analyzer struct {
	cfg       config.AnalysisConfig
	providers []domain.AnswerProvider
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New creates an analyzer over the configured provider set.
func New(cfg config.AnalysisConfig, providers []domain.AnswerProvider, logger *slog.Logger) *Analyzer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	if cfg.MaxPrompts <= 0 {
		cfg.MaxPrompts = 4
	}
	if cfg.MaxCompetitors <= 0 {
		cfg.MaxCompetitors = 6
	}
	return &Analyzer{
		cfg:       cfg,
		providers: providers,
		logger:    logger,
		tracer:    otel.Tracer("brandscope/analysis"),
	}
}

// MockMode reports whether runs will use fabricated providers: forced by
// configuration, or no real provider is usable.
func (a *Analyzer) MockMode() bool {
	return a.cfg.Simulate || len(a.providers) == 0
}

// ProviderNames lists the display names a run will fan out to, accounting
// for mock mode.
func (a *Analyzer) ProviderNames() []string {
	if a.MockMode() {
		return []string{"OpenAI", "Anthropic"}
	}
	names := make([]string, len(a.providers))
	for i, p := range a.providers {
		names[i] = p.Descriptor().Name
	}
	return names
}

// Run executes the full pipeline, emitting events on sink, and returns the
// terminal result. A per-call failure never aborts the run; failures in
// the non-parallel stages and transport failures do, without a terminal
// result.
func (a *Analyzer) Run(ctx context.Context, req Request, sink EventSink) (*domain.AnalysisResult, error) {
	ctx, span := a.tracer.Start(ctx, "analysis.run",
		trace.WithAttributes(attribute.String("company", req.Company.Name)))
	defer span.End()

	sess := &session{
		id:      uuid.New().String(),
		company: req.Company,
		stage:   domain.StageInitializing,
	}

	providers := a.providers
	if a.MockMode() {
		a.logger.Info("running in mock mode", slog.String("session_id", sess.id))
	}

	if err := a.emit(ctx, sink, sess, domain.EventStart, domain.StageInitializing, domain.StageProgressData{
		Message: fmt.Sprintf("Starting analysis for %s", req.Company.Name),
	}); err != nil {
		return nil, err
	}

	// Identify competitors.
	if err := a.emitStage(ctx, sink, sess, 0, "Identifying competitors"); err != nil {
		return nil, err
	}
	if err := a.identifyCompetitors(ctx, sink, sess, req); err != nil {
		return nil, err
	}
	if a.MockMode() {
		// Mock providers fabricate answers from the resolved entity set.
		providers = MockProviders(req.Company.Name, sess.competitors,
			time.Duration(a.cfg.MockDelayMinMS)*time.Millisecond,
			time.Duration(a.cfg.MockDelayMaxMS)*time.Millisecond)
	}

	// Generate prompts.
	if err := a.emitStage(ctx, sink, sess, 0, "Generating prompts"); err != nil {
		return nil, err
	}
	if err := a.generatePrompts(ctx, sink, sess, req); err != nil {
		return nil, err
	}

	// Fan out provider calls.
	if err := a.emitStage(ctx, sink, sess, 0, "Analyzing prompts across providers"); err != nil {
		return nil, err
	}
	if err := a.analyzePrompts(ctx, sink, sess, providers, req.WebSearch); err != nil {
		return nil, err
	}

	// Score.
	if err := a.emitStage(ctx, sink, sess, 0, "Calculating visibility scores"); err != nil {
		return nil, err
	}
	rankings := scoring.Rank(sess.company, sess.competitors, sess.responses, req.Previous)
	for i, r := range rankings {
		if err := a.emit(ctx, sink, sess, domain.EventScoringStart, sess.stage, domain.ScoringProgressData{
			Competitor: r.Name,
			Score:      r.VisibilityScore,
			Index:      i + 1,
			Total:      len(rankings),
		}); err != nil {
			return nil, err
		}
	}
	providerRankings, comparison := scoring.RankByProvider(sess.company, sess.competitors, sess.responses, req.Previous)

	// Finalize.
	if err := a.emitStage(ctx, sink, sess, 100, "Analysis complete"); err != nil {
		return nil, err
	}
	sess.advance() // complete

	result := &domain.AnalysisResult{
		SessionID:          sess.id,
		Company:            sess.company,
		KnownCompetitors:   sess.competitors,
		Prompts:            sess.prompts,
		Responses:          sess.responses,
		Competitors:        rankings,
		ProviderRankings:   providerRankings,
		ProviderComparison: comparison,
		WebSearchUsed:      req.WebSearch,
		Usage:              sess.usage,
		CompletedAt:        time.Now().UTC(),
	}
	if len(sess.errors) > 0 {
		result.Errors = sess.errors
	}

	a.logger.Info("analysis finished",
		slog.String("session_id", sess.id),
		slog.String("company", sess.company.Name),
		slog.Int("responses", len(sess.responses)),
		slog.Int("errors", len(sess.errors)),
		slog.Int("total_tokens", sess.usage.TotalTokens),
	)
	return result, nil
}

// identifyCompetitors fills the session competitor list. Caller-supplied
// names are taken as-is in caller order without any network call.
func (a *Analyzer) identifyCompetitors(ctx context.Context, sink EventSink, sess *session, req Request) error {
	if len(req.Competitors) > 0 {
		sess.competitors = Dedupe(sess.company.Name, req.Competitors, a.cfg.MaxCompetitors)
	} else {
		resolver := NewCompetitorResolver(a.resolverProvider(), a.cfg.MaxCompetitors)
		resolved, err := resolver.Resolve(ctx, sess.company)
		if err != nil {
			return err
		}
		sess.competitors = resolved
	}

	for i, name := range sess.competitors {
		if err := a.emit(ctx, sink, sess, domain.EventCompetitorFound, sess.stage, domain.CompetitorFoundData{
			Competitor: name,
			Index:      i + 1,
			Total:      len(sess.competitors),
		}); err != nil {
			return err
		}
	}
	return nil
}

// generatePrompts fills the session prompt list. Caller-supplied prompts
// become custom-category prompts; otherwise at most MaxPrompts are
// generated.
func (a *Analyzer) generatePrompts(ctx context.Context, sink EventSink, sess *session, req Request) error {
	if len(req.Prompts) > 0 {
		sess.prompts = Wrap(req.Prompts)
	} else {
		source := NewPromptSource(a.resolverProvider(), a.cfg.MaxPrompts)
		prompts, err := source.Generate(ctx, GenerateRequest{
			EntityName:  sess.company.Name,
			Sector:      sess.company.Industry,
			Description: sess.company.Description,
			Products:    strings.Join(sess.company.Products, ", "),
			Competitors: sess.competitors,
		})
		if err != nil {
			return err
		}
		sess.prompts = prompts
	}

	for i, p := range sess.prompts {
		if err := a.emit(ctx, sink, sess, domain.EventPromptGenerated, sess.stage, domain.PromptGeneratedData{
			PromptID: p.ID,
			Prompt:   p.Text,
			Category: p.Category,
			Index:    i + 1,
			Total:    len(sess.prompts),
		}); err != nil {
			return err
		}
	}
	return nil
}

// callMsg is what a fan-out worker reports back to the collector. Each
// worker sends exactly one started and one finished message, in that
// order.
type callMsg struct {
	finished bool
	prompt   domain.Prompt
	provider domain.ProviderDescriptor
	total    callTotals
	resp     *domain.Response
	usage    domain.Usage
	skipped  bool
	err      error
}

type callTotals struct {
	promptIndex    int // 1-based
	totalPrompts   int
	totalProviders int
}

// analyzePrompts runs the P×N fan-out in batches of up to BatchSize
// prompts. Within a batch every (prompt, provider) pair runs concurrently,
// optionally capped by MaxInFlight; the next batch starts only after the
// whole batch resolved. All session mutation and event emission happens on
// the collector side, so appends never race.
func (a *Analyzer) analyzePrompts(ctx context.Context, sink EventSink, sess *session, providers []domain.AnswerProvider, webSearch bool) error {
	total := len(sess.prompts) * len(providers)
	if total == 0 {
		return nil
	}

	var sem chan struct{}
	if a.cfg.MaxInFlight > 0 {
		sem = make(chan struct{}, a.cfg.MaxInFlight)
	}

	completed := 0
	for batchStart := 0; batchStart < len(sess.prompts); batchStart += a.cfg.BatchSize {
		// Cancellation is batch-granular: calls already issued run to
		// completion, no further batch is started.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("analysis canceled: %w", err)
		}

		batchEnd := min(batchStart+a.cfg.BatchSize, len(sess.prompts))
		batch := sess.prompts[batchStart:batchEnd]
		pairs := len(batch) * len(providers)

		// Buffered for every message so workers never block even if the
		// collector bails out on a transport failure.
		msgs := make(chan callMsg, pairs*2)

		for bi, prompt := range batch {
			for _, p := range providers {
				totals := callTotals{
					promptIndex:    batchStart + bi + 1,
					totalPrompts:   len(sess.prompts),
					totalProviders: len(providers),
				}
				go a.call(ctx, msgs, p, prompt, totals, sess.company.Name, sess.competitors, webSearch, sem)
			}
		}

		for done := 0; done < pairs; {
			msg := <-msgs
			if !msg.finished {
				if err := a.emit(ctx, sink, sess, domain.EventAnalysisStart, sess.stage, domain.CallProgressData{
					Provider:       msg.provider.Name,
					Prompt:         msg.prompt.Text,
					PromptID:       msg.prompt.ID,
					PromptIndex:    msg.total.promptIndex,
					TotalPrompts:   msg.total.totalPrompts,
					TotalProviders: msg.total.totalProviders,
					Status:         domain.CallStarted,
				}); err != nil {
					return err
				}
				continue
			}

			done++
			completed++
			if err := a.collect(ctx, sink, sess, msg); err != nil {
				return err
			}

			progress := int(math.Round(float64(completed) / float64(total) * 100))
			if err := a.emit(ctx, sink, sess, domain.EventProgress, sess.stage, domain.StageProgressData{
				Stage:    sess.stage,
				Progress: progress,
				Message:  fmt.Sprintf("Completed %d of %d analyses", completed, total),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// call runs one (prompt, provider) pair. The provider call is detached
// from the request context so an in-flight call completes (and is then
// discarded) instead of being hard-aborted on client disconnect.
func (a *Analyzer) call(ctx context.Context, msgs chan<- callMsg, p domain.AnswerProvider, prompt domain.Prompt, totals callTotals, brand string, competitors []string, webSearch bool, sem chan struct{}) {
	if sem != nil {
		sem <- struct{}{}
		defer func() { <-sem }()
	}

	desc := p.Descriptor()
	msgs <- callMsg{prompt: prompt, provider: desc, total: totals}

	callCtx, span := a.tracer.Start(context.WithoutCancel(ctx), "provider.call",
		trace.WithAttributes(
			attribute.String("provider", desc.Name),
			attribute.String("model", desc.Model),
			attribute.Int("prompt_index", totals.promptIndex),
		))
	defer span.End()

	answer, err := p.Answer(callCtx, prompt.Text, domain.AnswerOptions{WebSearch: webSearch})
	switch {
	case errors.Is(err, domain.ErrUnavailable):
		msgs <- callMsg{finished: true, prompt: prompt, provider: desc, total: totals, skipped: true}
	case err != nil:
		msgs <- callMsg{finished: true, prompt: prompt, provider: desc, total: totals, err: err}
	default:
		resp := classify(desc.Name, prompt, answer.Text, brand, competitors)
		msgs <- callMsg{finished: true, prompt: prompt, provider: desc, total: totals, resp: &resp, usage: answer.Usage}
	}
}

// collect folds one finished call into the session and emits its events.
func (a *Analyzer) collect(ctx context.Context, sink EventSink, sess *session, msg callMsg) error {
	data := domain.CallProgressData{
		Provider:       msg.provider.Name,
		Prompt:         msg.prompt.Text,
		PromptID:       msg.prompt.ID,
		PromptIndex:    msg.total.promptIndex,
		TotalPrompts:   msg.total.totalPrompts,
		TotalProviders: msg.total.totalProviders,
	}

	switch {
	case msg.err != nil:
		sess.errors = append(sess.errors, fmt.Sprintf("%s: %s", msg.provider.Name, msg.err.Error()))
		a.logger.Warn("provider call failed",
			slog.String("session_id", sess.id),
			slog.String("provider", msg.provider.Name),
			slog.String("error", msg.err.Error()),
		)
		data.Status = domain.CallFailed
		return a.emit(ctx, sink, sess, domain.EventAnalysisComplete, sess.stage, data)

	case msg.skipped:
		data.Status = domain.CallFailed
		return a.emit(ctx, sink, sess, domain.EventAnalysisComplete, sess.stage, data)

	default:
		sess.responses = append(sess.responses, *msg.resp)
		sess.usage.PromptTokens += msg.usage.PromptTokens
		sess.usage.CompletionTokens += msg.usage.CompletionTokens
		sess.usage.TotalTokens += msg.usage.TotalTokens

		if err := a.emit(ctx, sink, sess, domain.EventPartialResult, sess.stage, domain.PartialResultData{
			Provider: msg.provider.Name,
			Prompt:   msg.prompt.Text,
			Response: domain.PartialResponse{
				Provider:       msg.resp.Provider,
				BrandMentioned: msg.resp.BrandMentioned,
				BrandPosition:  msg.resp.BrandPosition,
				Sentiment:      msg.resp.Sentiment,
			},
		}); err != nil {
			return err
		}
		data.Status = domain.CallCompleted
		return a.emit(ctx, sink, sess, domain.EventAnalysisComplete, sess.stage, data)
	}
}

// PromptTexts serves the standalone prompt-generation endpoint: same
// generator and fallbacks as a full run, without starting a session.
func (a *Analyzer) PromptTexts(ctx context.Context, req GenerateRequest) ([]string, error) {
	source := NewPromptSource(a.resolverProvider(), a.cfg.MaxPrompts)
	return source.GenerateTexts(ctx, req)
}

// resolverProvider returns the provider used for competitor resolution and
// prompt generation: the first configured one, or nil in mock mode (the
// template/hint fallbacks then apply).
func (a *Analyzer) resolverProvider() domain.AnswerProvider {
	if a.MockMode() {
		return nil
	}
	return a.providers[0]
}

// emitStage advances the session and announces the new stage.
func (a *Analyzer) emitStage(ctx context.Context, sink EventSink, sess *session, progress int, message string) error {
	stage := sess.advance()
	return a.emit(ctx, sink, sess, domain.EventStage, stage, domain.StageProgressData{
		Stage:    stage,
		Progress: progress,
		Message:  message,
	})
}

// emit stamps and sends one event. Send failures are transport failures
// and abort the run.
func (a *Analyzer) emit(ctx context.Context, sink EventSink, sess *session, typ domain.EventType, stage domain.Stage, data any) error {
	event := domain.ProgressEvent{
		Type:      typ,
		Stage:     stage,
		SessionID: sess.id,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	if err := sink.Send(ctx, event); err != nil {
		return fmt.Errorf("event transport failed: %w", err)
	}
	return nil
}
