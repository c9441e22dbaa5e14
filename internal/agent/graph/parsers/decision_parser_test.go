package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

func TestParsePlan(t *testing.T) {
	content := "```json\n" + `{
  "reasoning": "count rows",
  "resolved_query": "how many genres are there",
  "needs_sql": true,
  "sql_query": "SELECT COUNT(*) FROM genres",
  "sql_database": "movies",
  "needs_semantic": "false",
  "needs_omdb": false,
  "needs_web": 0
}` + "\n```"

	plan, err := ParsePlan(content)
	require.NoError(t, err)
	assert.Equal(t, &model.ExecutionPlan{
		Reasoning:     "count rows",
		ResolvedQuery: "how many genres are there",
		NeedsSQL:      true,
		SQLQuery:      "SELECT COUNT(*) FROM genres",
		SQLDatabase:   "movies",
	}, plan)
}

func TestParsePlan_LooseTyping(t *testing.T) {
	plan, err := ParsePlan(`Here is the plan: {"needs_semantic": "true", "semantic_query": "heist", "semantic_limit": "7", "needs_web": 1, "web_query": "x"} hope it helps`)
	require.NoError(t, err)
	assert.True(t, plan.NeedsSemantic)
	assert.Equal(t, 7, plan.SemanticLimit)
	assert.True(t, plan.NeedsWeb)
}

func TestParsePlan_UnflagsToolsWithoutQuery(t *testing.T) {
	plan, err := ParsePlan(`{"needs_sql": true, "sql_query": "  ", "needs_omdb": true, "needs_semantic": true}`)
	require.NoError(t, err)
	assert.False(t, plan.NeedsSQL)
	assert.False(t, plan.NeedsOMDB)
	assert.True(t, plan.NeedsSemantic)
}

func TestParsePlan_Errors(t *testing.T) {
	_, err := ParsePlan("I cannot help with that.")
	assert.ErrorContains(t, err, "no json object")

	_, err = ParsePlan(`{"needs_sql": true,}`)
	assert.ErrorContains(t, err, "parse plan")

	_, err = ParsePlan("")
	assert.Error(t, err)
}

func TestParseEvaluation(t *testing.T) {
	eval, ok, err := ParseEvaluation(`{"decision": "Replan", "reasoning": "sql failed", "confidence": 0.4, "replan_instructions": "fix the join"}`)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.DecisionReplan, eval.Decision)
	assert.Equal(t, "fix the join", eval.ReplanInstructions)
	assert.InDelta(t, 0.4, eval.Confidence, 1e-9)

	eval, ok, err = ParseEvaluation(`{"decision": "finish", "confidence": "0.9", "replan_instructions": "ignored"}`)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.DecisionFinish, eval.Decision)
	assert.Empty(t, eval.ReplanInstructions)
	assert.InDelta(t, 0.9, eval.Confidence, 1e-9)
}

func TestParseEvaluation_UnknownDecision(t *testing.T) {
	eval, ok, err := ParseEvaluation(`{"decision": "continue", "confidence": 7}`)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, model.DecisionFinish, eval.Decision)
	assert.Equal(t, 1.0, eval.Confidence)
}

func TestParseEvaluation_Errors(t *testing.T) {
	_, _, err := ParseEvaluation("finish")
	assert.Error(t, err)
}

func TestParseLimitAndConfidence(t *testing.T) {
	assert.Equal(t, 0, parseLimit(nil))
	assert.Equal(t, 0, parseLimit([]byte(`0`)))
	assert.Equal(t, 0, parseLimit([]byte(`"many"`)))
	assert.Equal(t, 3, parseLimit([]byte(`3.9`)))
	assert.Equal(t, 50, parseLimit([]byte(`500`)))

	assert.Equal(t, 0.0, parseConfidence([]byte(`-2`)))
	assert.Equal(t, 0.0, parseConfidence([]byte(`null`)))
	assert.Equal(t, 0.5, parseConfidence([]byte(`" 0.5 "`)))
}

func TestClip(t *testing.T) {
	long := strings.Repeat("é", maxFieldLen)
	got := clip(long)
	assert.LessOrEqual(t, len(got), maxFieldLen)
	assert.True(t, strings.HasPrefix(long, got))
	assert.Equal(t, "x", clip("  x  "))
}
