// Package analysis implements the brand-visibility pipeline: a linear
// stage machine that resolves competitors, sources prompts, fans out
// provider calls in bounded batches, and hands the collected responses to
// the scoring engine, emitting a progress event for every transition.
package analysis

import (
	"fmt"

	"github.com/visiblelabs/brandscope/internal/domain"
)

// session is the unit of work, owned exclusively by the orchestrator from
// request start to request end. Nothing persists it beyond the run.
type session struct {
	id          string
	company     domain.Company
	competitors []string
	prompts     []domain.Prompt
	responses   []domain.Response
	errors      []string
	usage       domain.Usage
	stage       domain.Stage
}

// nextStage is the single forward-only transition function of the stage
// machine. Calling it from a stage with no successor is a programming
// error.
func nextStage(s domain.Stage) domain.Stage {
	switch s {
	case domain.StageInitializing:
		return domain.StageIdentifyingCompetitors
	case domain.StageIdentifyingCompetitors:
		return domain.StageGeneratingPrompts
	case domain.StageGeneratingPrompts:
		return domain.StageAnalyzingPrompts
	case domain.StageAnalyzingPrompts:
		return domain.StageCalculatingScores
	case domain.StageCalculatingScores:
		return domain.StageFinalizing
	case domain.StageFinalizing:
		return domain.StageComplete
	default:
		panic(fmt.Sprintf("no transition from stage %q", s))
	}
}

// advance moves the session to the next stage and returns it.
func (s *session) advance() domain.Stage {
	s.stage = nextStage(s.stage)
	return s.stage
}
