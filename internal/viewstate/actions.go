package viewstate

import "github.com/visiblelabs/brandscope/internal/domain"

// Action is the closed set of state transitions. Stream-derived actions
// carry the session identity of the event that produced them; Reduce
// drops any whose session does not match the state's.
type Action interface {
	isAction()
}

// Stream-derived actions, one per progress event type.

type AnalysisStarted struct {
	SessionID string
	Message   string
}

type StageEntered struct {
	SessionID string
	Stage     domain.Stage
	Progress  int
	Message   string
}

type CompetitorFound struct {
	SessionID string
	Name      string
}

type PromptGenerated struct {
	SessionID string
	Prompt    domain.Prompt
}

type CallStarted struct {
	SessionID string
	PromptID  string
	Provider  string
}

type CallFinished struct {
	SessionID string
	PromptID  string
	Provider  string
	Failed    bool
}

type PartialResultReceived struct {
	SessionID string
	Data      domain.PartialResultData
}

type ProgressUpdated struct {
	SessionID string
	Stage     domain.Stage
	Progress  int
	Message   string
}

type ScoringStarted struct {
	SessionID  string
	Competitor string
	Score      float64
}

type FatalErrorReceived struct {
	SessionID string
	Message   string
}

type AnalysisCompleted struct {
	SessionID string
	Result    domain.AnalysisResult
}

// StreamEnded marks the stream closing without a terminal result, which
// the consumer must treat as a failed run.
type StreamEnded struct {
	SessionID string
}

// Local UI actions.

type SetCompany struct{ Company domain.Company }

type SetProviders struct{ Names []string }

type BeginAnalysis struct{}

type AddPromptDraft struct{ Text string }

type EditPromptDraft struct {
	Index int
	Text  string
}

type RemovePromptDraft struct{ Index int }

type AddCompetitorDraft struct{ Name string }

type RemoveCompetitorDraft struct{ Index int }

type SelectTab struct{ Tab Tab }

type ExpandPrompt struct{ Index int }

type CollapsePrompts struct{}

type SelectCompetitor struct{ Name string }

type ToggleInput struct{ Visible bool }

type MarkSaved struct{ SessionID string }

type ResetState struct{}

func (AnalysisStarted) isAction()       {}
func (StageEntered) isAction()          {}
func (CompetitorFound) isAction()       {}
func (PromptGenerated) isAction()       {}
func (CallStarted) isAction()           {}
func (CallFinished) isAction()          {}
func (PartialResultReceived) isAction() {}
func (ProgressUpdated) isAction()       {}
func (ScoringStarted) isAction()        {}
func (FatalErrorReceived) isAction()    {}
func (AnalysisCompleted) isAction()     {}
func (StreamEnded) isAction()           {}
func (SetCompany) isAction()            {}
func (SetProviders) isAction()          {}
func (BeginAnalysis) isAction()         {}
func (AddPromptDraft) isAction()        {}
func (EditPromptDraft) isAction()       {}
func (RemovePromptDraft) isAction()     {}
func (AddCompetitorDraft) isAction()    {}
func (RemoveCompetitorDraft) isAction() {}
func (SelectTab) isAction()             {}
func (ExpandPrompt) isAction()          {}
func (CollapsePrompts) isAction()       {}
func (SelectCompetitor) isAction()      {}
func (ToggleInput) isAction()           {}
func (MarkSaved) isAction()             {}
func (ResetState) isAction()            {}

// FromEvent translates one decoded stream event into its action. Events
// with no state effect (or an unrecognized tag) yield nil, which Reduce
// treats as a no-op.
func FromEvent(event *domain.RawEvent) (Action, error) {
	payload, err := event.DecodeData()
	if err != nil {
		return nil, err
	}

	switch event.Type {
	case domain.EventStart:
		data, _ := payload.(*domain.StageProgressData)
		if data == nil {
			data = &domain.StageProgressData{}
		}
		return AnalysisStarted{SessionID: event.SessionID, Message: data.Message}, nil

	case domain.EventStage:
		data, _ := payload.(*domain.StageProgressData)
		if data == nil {
			data = &domain.StageProgressData{}
		}
		stage := data.Stage
		if stage == "" {
			stage = event.Stage
		}
		return StageEntered{SessionID: event.SessionID, Stage: stage, Progress: data.Progress, Message: data.Message}, nil

	case domain.EventCompetitorFound:
		data, _ := payload.(*domain.CompetitorFoundData)
		if data == nil {
			return nil, nil
		}
		return CompetitorFound{SessionID: event.SessionID, Name: data.Competitor}, nil

	case domain.EventPromptGenerated:
		data, _ := payload.(*domain.PromptGeneratedData)
		if data == nil {
			return nil, nil
		}
		return PromptGenerated{SessionID: event.SessionID, Prompt: domain.Prompt{
			ID:       data.PromptID,
			Text:     data.Prompt,
			Category: data.Category,
		}}, nil

	case domain.EventAnalysisStart:
		data, _ := payload.(*domain.CallProgressData)
		if data == nil {
			return nil, nil
		}
		return CallStarted{SessionID: event.SessionID, PromptID: data.PromptID, Provider: data.Provider}, nil

	case domain.EventAnalysisComplete:
		data, _ := payload.(*domain.CallProgressData)
		if data == nil {
			return nil, nil
		}
		return CallFinished{
			SessionID: event.SessionID,
			PromptID:  data.PromptID,
			Provider:  data.Provider,
			Failed:    data.Status == domain.CallFailed,
		}, nil

	case domain.EventPartialResult:
		data, _ := payload.(*domain.PartialResultData)
		if data == nil {
			return nil, nil
		}
		return PartialResultReceived{SessionID: event.SessionID, Data: *data}, nil

	case domain.EventProgress:
		data, _ := payload.(*domain.StageProgressData)
		if data == nil {
			data = &domain.StageProgressData{}
		}
		stage := data.Stage
		if stage == "" {
			stage = event.Stage
		}
		return ProgressUpdated{SessionID: event.SessionID, Stage: stage, Progress: data.Progress, Message: data.Message}, nil

	case domain.EventScoringStart:
		data, _ := payload.(*domain.ScoringProgressData)
		if data == nil {
			return nil, nil
		}
		return ScoringStarted{SessionID: event.SessionID, Competitor: data.Competitor, Score: data.Score}, nil

	case domain.EventError:
		data, _ := payload.(*domain.ErrorData)
		if data == nil {
			return nil, nil
		}
		return FatalErrorReceived{SessionID: event.SessionID, Message: data.Message}, nil

	case domain.EventComplete:
		data, _ := payload.(*domain.CompleteData)
		if data == nil {
			return nil, nil
		}
		return AnalysisCompleted{SessionID: event.SessionID, Result: data.Analysis}, nil

	default:
		return nil, nil
	}
}
