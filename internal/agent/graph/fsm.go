package graph

import (
	"fmt"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

// Transition returns the stage that follows from. The only branch is after
// evaluation: replan loops back to planning while iterations remain, any
// other decision goes to synthesis.
func Transition(from model.Stage, decision model.Decision, iteration, maxIterations int) (model.Stage, error) {
	switch from {
	case model.StagePlanning:
		return model.StageExecuting, nil
	case model.StageExecuting:
		return model.StageEvaluating, nil
	case model.StageEvaluating:
		if decision == model.DecisionReplan && iteration < maxIterations {
			return model.StagePlanning, nil
		}
		return model.StageSynthesizing, nil
	case model.StageSynthesizing:
		return model.StageDone, nil
	case model.StageDone:
		return model.StageDone, fmt.Errorf("no transition out of %s", from)
	default:
		return from, fmt.Errorf("unknown stage %s", from)
	}
}

// TransitionBudget is the number of transitions a full turn may take with
// maxIterations cycles, plus one of slack.
func TransitionBudget(maxIterations int) int {
	if maxIterations <= 0 {
		maxIterations = model.DefaultMaxIterations
	}
	return 3*maxIterations + 2
}
