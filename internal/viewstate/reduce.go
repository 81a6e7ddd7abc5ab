package viewstate

import (
	"fmt"

	"github.com/visiblelabs/brandscope/internal/domain"
)

// Reduce is the pure transition function. Stream-derived actions whose
// session identity does not match the state's are dropped, so late events
// from a superseded run can never corrupt a fresh one. Unrecognized or nil
// actions are no-ops.
func Reduce(s State, action Action) State {
	if action == nil {
		return s
	}
	if id, streamDerived := sessionOf(action); streamDerived {
		// The start event establishes the session identity; everything
		// after it must match. Fatal errors may arrive before a session
		// exists (the run died during setup) and carry no identity then.
		switch action.(type) {
		case AnalysisStarted:
			if s.SessionID != "" && s.SessionID != id {
				return s
			}
		case FatalErrorReceived:
			if id != "" && s.SessionID != id {
				return s
			}
		default:
			if s.SessionID != id {
				return s
			}
		}
	}

	switch a := action.(type) {
	case AnalysisStarted:
		next := s.clone()
		next.SessionID = a.SessionID
		next.Analyzing = true
		next.Stage = domain.StageInitializing
		next.Progress = 0
		next.Message = a.Message
		return next

	case StageEntered:
		next := s.clone()
		next.Stage = a.Stage
		next.Progress = a.Progress
		next.Message = a.Message
		return next

	case CompetitorFound:
		next := s.clone()
		next.Competitors = append(next.Competitors, a.Name)
		return next

	case PromptGenerated:
		next := s.clone()
		prompt := a.Prompt
		if prompt.ID == "" {
			prompt.ID = fmt.Sprintf("prompt-%d", len(next.Prompts))
		}
		next.Prompts = append(next.Prompts, prompt)
		for _, provider := range next.Providers {
			next.setCell(prompt.ID, provider, CellPending)
		}
		return next

	case CallStarted:
		next := s.clone()
		next.setCell(a.PromptID, a.Provider, CellInProgress)
		return next

	case CallFinished:
		next := s.clone()
		status := CellCompleted
		if a.Failed {
			status = CellFailed
		}
		next.setCell(a.PromptID, a.Provider, status)
		return next

	case PartialResultReceived:
		next := s.clone()
		next.PartialResults = append(next.PartialResults, a.Data)
		return next

	case ProgressUpdated:
		next := s.clone()
		if a.Stage != "" {
			next.Stage = a.Stage
		}
		next.Progress = a.Progress
		if a.Message != "" {
			next.Message = a.Message
		}
		return next

	case ScoringStarted:
		next := s.clone()
		next.Message = "Scoring " + a.Competitor
		return next

	case FatalErrorReceived:
		next := s.clone()
		next.Analyzing = false
		next.FatalError = a.Message
		return next

	case AnalysisCompleted:
		return completeState(s, a.Result)

	case StreamEnded:
		if s.Result != nil || s.FatalError != "" {
			return s
		}
		next := s.clone()
		next.Analyzing = false
		next.FatalError = "analysis stream ended before completion"
		return next

	case SetCompany:
		next := s.clone()
		next.Company = a.Company
		return next

	case SetProviders:
		next := s.clone()
		next.Providers = append([]string(nil), a.Names...)
		return next

	case BeginAnalysis:
		// Fresh run: everything except the configured inputs resets. The
		// empty session identity is adopted from the start event.
		next := Initial()
		next.Company = s.Company
		next.Providers = append([]string(nil), s.Providers...)
		next.PromptDrafts = append([]string(nil), s.PromptDrafts...)
		next.CompetitorDrafts = append([]string(nil), s.CompetitorDrafts...)
		next.ActiveTab = s.ActiveTab
		next.Analyzing = true
		return next

	case AddPromptDraft:
		if a.Text == "" {
			return s
		}
		next := s.clone()
		next.PromptDrafts = append(next.PromptDrafts, a.Text)
		return next

	case EditPromptDraft:
		if a.Index < 0 || a.Index >= len(s.PromptDrafts) {
			return s
		}
		next := s.clone()
		next.PromptDrafts[a.Index] = a.Text
		return next

	case RemovePromptDraft:
		if a.Index < 0 || a.Index >= len(s.PromptDrafts) {
			return s
		}
		next := s.clone()
		next.PromptDrafts = append(next.PromptDrafts[:a.Index], next.PromptDrafts[a.Index+1:]...)
		return next

	case AddCompetitorDraft:
		if a.Name == "" {
			return s
		}
		next := s.clone()
		next.CompetitorDrafts = append(next.CompetitorDrafts, a.Name)
		return next

	case RemoveCompetitorDraft:
		if a.Index < 0 || a.Index >= len(s.CompetitorDrafts) {
			return s
		}
		next := s.clone()
		next.CompetitorDrafts = append(next.CompetitorDrafts[:a.Index], next.CompetitorDrafts[a.Index+1:]...)
		return next

	case SelectTab:
		next := s.clone()
		next.ActiveTab = a.Tab
		return next

	case ExpandPrompt:
		next := s.clone()
		next.ExpandedPrompt = a.Index
		return next

	case CollapsePrompts:
		next := s.clone()
		next.ExpandedPrompt = -1
		return next

	case SelectCompetitor:
		next := s.clone()
		next.SelectedCompetitor = a.Name
		return next

	case ToggleInput:
		next := s.clone()
		next.ShowInput = a.Visible
		return next

	case MarkSaved:
		if s.SessionID != a.SessionID {
			return s
		}
		next := s.clone()
		next.Saved = true
		return next

	case ResetState:
		return Initial()

	default:
		return s
	}
}

// completeState replaces the working state with the terminal snapshot
// wholesale rather than merging, so partial and final views can never
// disagree. Cells never resolved by the time the run completed read as
// failed.
func completeState(s State, result domain.AnalysisResult) State {
	next := Initial()
	next.SessionID = result.SessionID
	next.Stage = domain.StageComplete
	next.Progress = 100
	next.Company = result.Company
	next.Competitors = append([]string(nil), result.KnownCompetitors...)
	next.Prompts = append([]domain.Prompt(nil), result.Prompts...)
	next.Providers = append([]string(nil), s.Providers...)
	next.Errors = append([]string(nil), result.Errors...)
	next.Result = &result
	next.ActiveTab = s.ActiveTab
	next.Saved = s.Saved

	next.Matrix = make(map[string]map[string]CellStatus, len(result.Prompts))
	for _, prompt := range result.Prompts {
		row := make(map[string]CellStatus, len(next.Providers))
		for _, provider := range next.Providers {
			row[provider] = CellFailed
		}
		next.Matrix[prompt.ID] = row
	}
	for _, resp := range result.Responses {
		next.setCellForce(resp.PromptID, resp.Provider, CellCompleted)
	}
	return next
}

// setCellForce writes a cell unconditionally, bypassing the terminal-cell
// guard; used only when rebuilding the matrix from a terminal result.
func (s *State) setCellForce(promptID, provider string, status CellStatus) {
	if s.Matrix == nil {
		s.Matrix = make(map[string]map[string]CellStatus)
	}
	row := s.Matrix[promptID]
	if row == nil {
		row = make(map[string]CellStatus)
		s.Matrix[promptID] = row
	}
	row[provider] = status
}

// sessionOf extracts the session identity from stream-derived actions.
// The second return is false for local UI actions, which are never
// session-guarded.
func sessionOf(action Action) (string, bool) {
	switch a := action.(type) {
	case AnalysisStarted:
		return a.SessionID, true
	case StageEntered:
		return a.SessionID, true
	case CompetitorFound:
		return a.SessionID, true
	case PromptGenerated:
		return a.SessionID, true
	case CallStarted:
		return a.SessionID, true
	case CallFinished:
		return a.SessionID, true
	case PartialResultReceived:
		return a.SessionID, true
	case ProgressUpdated:
		return a.SessionID, true
	case ScoringStarted:
		return a.SessionID, true
	case FatalErrorReceived:
		return a.SessionID, true
	case AnalysisCompleted:
		return a.SessionID, true
	case StreamEnded:
		return a.SessionID, true
	default:
		return "", false
	}
}
