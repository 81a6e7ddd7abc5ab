// Package viewstate is the client-side model of an analysis run: a pure
// reducer folding progress events and local UI actions into a state value.
// It backs the scopewatch CLI and any other stream consumer that needs a
// consistent picture of a run while events are still arriving.
package viewstate

import (
	"github.com/visiblelabs/brandscope/internal/domain"
)

// CellStatus tracks one (prompt, provider) call in the status matrix.
type CellStatus string

const (
	CellPending    CellStatus = "pending"
	CellInProgress CellStatus = "in-progress"
	CellCompleted  CellStatus = "completed"
	CellFailed     CellStatus = "failed"
)

// Tab identifies the active results view.
type Tab string

const (
	TabVisibility Tab = "visibility"
	TabMatrix     Tab = "matrix"
	TabResponses  Tab = "responses"
	TabErrors     Tab = "errors"
)

// State is the reducer's model. It is treated as immutable: Reduce returns
// a fresh value and never mutates its input.
type State struct {
	SessionID string
	Stage     domain.Stage
	Progress  int
	Message   string
	Analyzing bool

	Company     domain.Company
	Competitors []string
	Prompts     []domain.Prompt
	Providers   []string

	// Matrix is keyed [promptID][provider].
	Matrix         map[string]map[string]CellStatus
	PartialResults []domain.PartialResultData
	Errors         []string

	Result     *domain.AnalysisResult
	FatalError string
	Saved      bool

	// UI-only fields.
	ActiveTab          Tab
	ExpandedPrompt     int // -1 when collapsed
	SelectedCompetitor string
	ShowInput          bool
	PromptDrafts       []string
	CompetitorDrafts   []string
}

// Initial returns the empty pre-analysis state.
func Initial() State {
	return State{
		Stage:          domain.StageInitializing,
		ActiveTab:      TabVisibility,
		ExpandedPrompt: -1,
	}
}

// Cell reads the matrix status for a (prompt, provider) pair; absent cells
// read as pending.
func (s State) Cell(promptID, provider string) CellStatus {
	if row, ok := s.Matrix[promptID]; ok {
		if status, ok := row[provider]; ok {
			return status
		}
	}
	return CellPending
}

// clone copies the state deeply enough that the returned value can be
// mutated without aliasing the input.
func (s State) clone() State {
	out := s
	if s.Matrix != nil {
		out.Matrix = make(map[string]map[string]CellStatus, len(s.Matrix))
		for id, row := range s.Matrix {
			cp := make(map[string]CellStatus, len(row))
			for p, st := range row {
				cp[p] = st
			}
			out.Matrix[id] = cp
		}
	}
	out.Competitors = append([]string(nil), s.Competitors...)
	out.Prompts = append([]domain.Prompt(nil), s.Prompts...)
	out.Providers = append([]string(nil), s.Providers...)
	out.PartialResults = append([]domain.PartialResultData(nil), s.PartialResults...)
	out.Errors = append([]string(nil), s.Errors...)
	out.PromptDrafts = append([]string(nil), s.PromptDrafts...)
	out.CompetitorDrafts = append([]string(nil), s.CompetitorDrafts...)
	return out
}

// setCell writes a matrix cell, creating rows on demand. Completed and
// failed are terminal per cell: a late started/duplicate event never
// regresses them.
func (s *State) setCell(promptID, provider string, status CellStatus) {
	current := s.Cell(promptID, provider)
	if current == CellCompleted || current == CellFailed {
		return
	}
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
