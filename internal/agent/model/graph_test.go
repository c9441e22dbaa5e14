package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_TextRoundTrip(t *testing.T) {
	for _, st := range []Stage{StagePlanning, StageExecuting, StageEvaluating, StageSynthesizing, StageDone} {
		b, err := json.Marshal(st)
		require.NoError(t, err)

		var got Stage
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, st, got)
	}
}

func TestStage_Invalid(t *testing.T) {
	var zero Stage
	assert.False(t, zero.Valid())
	assert.Equal(t, "stage(0)", zero.String())
	_, err := json.Marshal(zero)
	assert.Error(t, err)

	var s Stage
	assert.Error(t, json.Unmarshal([]byte(`"thinking"`), &s))
	require.NoError(t, json.Unmarshal([]byte(`" Evaluating "`), &s))
	assert.Equal(t, StageEvaluating, s)
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		raw  string
		want Decision
		ok   bool
	}{
		{"replan", DecisionReplan, true},
		{" REPLAN ", DecisionReplan, true},
		{"finish", DecisionFinish, true},
		{"continue", DecisionFinish, false},
		{"", DecisionFinish, false},
		{"banana", DecisionFinish, false},
	}
	for _, tt := range tests {
		got, ok := ParseDecision(tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
	}
}

func TestToolName_Mappings(t *testing.T) {
	assert.Equal(t, StepSQLExecuted, ToolSQL.ExecutedStep())
	assert.Equal(t, StepSemanticExecuted, ToolSemantic.ExecutedStep())
	assert.Equal(t, StepOMDBExecuted, ToolOMDB.ExecutedStep())
	assert.Equal(t, StepWebExecuted, ToolWeb.ExecutedStep())
	assert.Equal(t, SourceDatabase, ToolSQL.SourceType())
	assert.Equal(t, SourceWeb, ToolWeb.SourceType())
	assert.Empty(t, ToolName("x").SourceType())
}

func TestFailedToolResult(t *testing.T) {
	r := FailedToolResult("")
	assert.True(t, r.Failed())
	assert.Equal(t, "unknown error", r.Error)
	assert.Equal(t, []any{}, r.Results)

	ok := NewToolResult([]int{1}, 1)
	assert.False(t, ok.Failed())
	var nilRes *ToolResult
	assert.False(t, nilRes.Failed())
}
