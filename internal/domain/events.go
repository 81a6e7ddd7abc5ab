package domain

import (
	"encoding/json"
	"time"
)

// Stage identifies a step of the linear analysis state machine. Transitions
// are forward-only; see analysis.nextStage for the ordering.
type Stage string

const (
	StageInitializing           Stage = "initializing"
	StageIdentifyingCompetitors Stage = "identifying-competitors"
	StageGeneratingPrompts      Stage = "generating-prompts"
	StageAnalyzingPrompts       Stage = "analyzing-prompts"
	StageCalculatingScores      Stage = "calculating-scores"
	StageFinalizing             Stage = "finalizing"
	StageComplete               Stage = "complete"
)

// EventType tags a ProgressEvent variant.
type EventType string

const (
	EventStart            EventType = "start"
	EventStage            EventType = "stage"
	EventCompetitorFound  EventType = "competitor-found"
	EventPromptGenerated  EventType = "prompt-generated"
	EventAnalysisStart    EventType = "analysis-start"
	EventPartialResult    EventType = "partial-result"
	EventAnalysisComplete EventType = "analysis-complete"
	EventScoringStart     EventType = "scoring-start"
	EventProgress         EventType = "progress"
	EventError            EventType = "error"
	EventComplete         EventType = "complete"
)

// CallStatus reports the lifecycle of one (prompt, provider) call.
type CallStatus string

const (
	CallStarted   CallStatus = "started"
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
)

// ProgressEvent is the wire unit pushed to the client. Data holds the
// payload specific to Type; payload structs are defined below.
type ProgressEvent struct {
	Type      EventType `json:"type"`
	Stage     Stage     `json:"stage"`
	SessionID string    `json:"sessionId"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// RawEvent is the client-side mirror of ProgressEvent with the payload left
// undecoded. DecodeData resolves it into the typed payload for the tag.
type RawEvent struct {
	Type      EventType       `json:"type"`
	Stage     Stage           `json:"stage"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// StageProgressData accompanies start, stage, and progress events.
type StageProgressData struct {
	Stage    Stage  `json:"stage,omitempty"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
}

// CompetitorFoundData carries one resolved competitor name with its
// 1-based position.
type CompetitorFoundData struct {
	Competitor string `json:"competitor"`
	Index      int    `json:"index"`
	Total      int    `json:"total"`
}

// PromptGeneratedData carries one prompt with its 1-based position. The ID
// is the same one later call events reference, so consumers can key their
// bookkeeping on it.
type PromptGeneratedData struct {
	PromptID string         `json:"promptId"`
	Prompt   string         `json:"prompt"`
	Category PromptCategory `json:"category"`
	Index    int            `json:"index"`
	Total    int            `json:"total"`
}

// CallProgressData accompanies analysis-start and analysis-complete events.
// Prompts are referenced by identity and text, never by a transient offset.
type CallProgressData struct {
	Provider       string     `json:"provider"`
	Prompt         string     `json:"prompt"`
	PromptID       string     `json:"promptId"`
	PromptIndex    int        `json:"promptIndex"` // 1-based
	TotalPrompts   int        `json:"totalPrompts"`
	TotalProviders int        `json:"totalProviders"`
	Status         CallStatus `json:"status"`
}

// PartialResultData is the live-preview subset of a Response.
type PartialResultData struct {
	Provider string          `json:"provider"`
	Prompt   string          `json:"prompt"`
	Response PartialResponse `json:"response"`
}

// PartialResponse carries only the fields the UI previews before the
// terminal result arrives.
type PartialResponse struct {
	Provider       string    `json:"provider"`
	BrandMentioned bool      `json:"brandMentioned"`
	BrandPosition  int       `json:"brandPosition,omitempty"`
	Sentiment      Sentiment `json:"sentiment"`
}

// ScoringProgressData announces one ranked entity with its score and
// 1-based rank position.
type ScoringProgressData struct {
	Competitor string  `json:"competitor"`
	Score      float64 `json:"score"`
	Index      int     `json:"index"`
	Total      int     `json:"total"`
}

// ErrorData carries a fatal stage-level failure message.
type ErrorData struct {
	Message string `json:"message"`
}

// CompleteData wraps the terminal AnalysisResult.
type CompleteData struct {
	Analysis AnalysisResult `json:"analysis"`
}

// DecodeData resolves the raw payload into the typed payload struct for the
// event's tag. Unrecognized tags return (nil, nil) so consumers can treat
// them as a no-op instead of an error.
func (e *RawEvent) DecodeData() (any, error) {
	var target any
	switch e.Type {
	case EventStart, EventStage, EventProgress:
		target = &StageProgressData{}
	case EventCompetitorFound:
		target = &CompetitorFoundData{}
	case EventPromptGenerated:
		target = &PromptGeneratedData{}
	case EventAnalysisStart, EventAnalysisComplete:
		target = &CallProgressData{}
	case EventPartialResult:
		target = &PartialResultData{}
	case EventScoringStart:
		target = &ScoringProgressData{}
	case EventError:
		target = &ErrorData{}
	case EventComplete:
		target = &CompleteData{}
	default:
		return nil, nil
	}
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, target); err != nil {
			return nil, err
		}
	}
	return target, nil
}
