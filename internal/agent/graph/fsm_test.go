package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from      model.Stage
		decision  model.Decision
		iteration int
		want      model.Stage
	}{
		{model.StagePlanning, "", 1, model.StageExecuting},
		{model.StageExecuting, "", 1, model.StageEvaluating},
		{model.StageEvaluating, model.DecisionReplan, 1, model.StagePlanning},
		{model.StageEvaluating, model.DecisionReplan, 2, model.StageSynthesizing},
		{model.StageEvaluating, model.DecisionFinish, 1, model.StageSynthesizing},
		{model.StageEvaluating, "", 1, model.StageSynthesizing},
		{model.StageSynthesizing, model.DecisionReplan, 1, model.StageDone},
	}
	for _, tt := range tests {
		got, err := Transition(tt.from, tt.decision, tt.iteration, 2)
		require.NoError(t, err, "%s/%s/%d", tt.from, tt.decision, tt.iteration)
		assert.Equal(t, tt.want, got, "%s/%s/%d", tt.from, tt.decision, tt.iteration)
	}
}

func TestTransition_Errors(t *testing.T) {
	_, err := Transition(model.StageDone, model.DecisionFinish, 1, 2)
	assert.Error(t, err)
	_, err = Transition(model.Stage(0), "", 0, 2)
	assert.Error(t, err)
}

func TestTransitionBudget(t *testing.T) {
	assert.Equal(t, 8, TransitionBudget(2))
	assert.Equal(t, 5, TransitionBudget(1))
	assert.Equal(t, TransitionBudget(model.DefaultMaxIterations), TransitionBudget(0))
}
