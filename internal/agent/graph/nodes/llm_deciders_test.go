package nodes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/conversations"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

var testPrompt = model.PromptConfig{AssistantName: "Albert Query", Language: "English", Domain: "movies"}

func TestLLMPlanner_Plan(t *testing.T) {
	reply := schema.AssistantMessage(`{"reasoning":"count","needs_sql":true,"sql_query":"SELECT COUNT(*) FROM genres","sql_database":"movies"}`, nil)
	reply.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1000, CompletionTokens: 100, TotalTokens: 1100}}
	chat := &fakeChat{replies: []*schema.Message{reply}}

	s := newTurn("how many genres?")
	s.IterationCount = 1
	plan, err := NewLLMPlanner(chat, "gemini-2.5-flash", testPrompt, conversations.NewWindow(4)).Plan(context.Background(), s, "try again")

	require.NoError(t, err)
	assert.True(t, plan.NeedsSQL)
	assert.Equal(t, "SELECT COUNT(*) FROM genres", plan.SQLQuery)
	require.NotNil(t, plan.Usage)
	assert.Equal(t, 1100, plan.Usage.TotalTokens)
	assert.Greater(t, plan.Usage.CostUSD, 0.0)

	require.Len(t, chat.inputs, 1)
	msgs := chat.inputs[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "table genres (28 rows)")
	assert.Contains(t, msgs[0].Content, "try again")
	assert.Equal(t, "how many genres?", msgs[1].Content)
}

func TestLLMPlanner_Errors(t *testing.T) {
	s := newTurn("q")
	s.IterationCount = 1

	_, err := NewLLMPlanner(nil, "m", testPrompt, nil).Plan(context.Background(), s, "")
	assert.ErrorContains(t, err, "planner chat model is not configured")

	chat := &fakeChat{err: errors.New("503")}
	_, err = NewLLMPlanner(chat, "m", testPrompt, nil).Plan(context.Background(), s, "")
	assert.ErrorContains(t, err, "planner generate: 503")

	_, err = NewLLMPlanner(newFakeChat("no idea"), "m", testPrompt, nil).Plan(context.Background(), s, "")
	assert.ErrorContains(t, err, "no json object")
}

func TestLLMEvaluator_Evaluate(t *testing.T) {
	chat := newFakeChat(`{"decision":"replan","reasoning":"empty","confidence":0.7,"replan_instructions":"use semantic"}`)
	s := newTurn("movies like Heat")
	s.IterationCount = 1
	s.ExecutionPlan = &model.ExecutionPlan{NeedsSQL: true, SQLQuery: "SELECT 1", SQLDatabase: "movies"}
	s.ToolResults[model.ToolSQL] = &model.ToolResult{Results: []any{}, Count: 0}

	eval, err := NewLLMEvaluator(chat, "m", testPrompt, 0).Evaluate(context.Background(), s)

	require.NoError(t, err)
	assert.Equal(t, model.DecisionReplan, eval.Decision)
	assert.Equal(t, "use semantic", eval.ReplanInstructions)
	assert.Nil(t, eval.Usage)

	msgs := chat.inputs[0]
	assert.Contains(t, msgs[0].Content, "[sql]")
	assert.Contains(t, msgs[0].Content, `"sql_query": "SELECT 1"`)
	assert.Equal(t, "Evaluate the results for: movies like Heat", msgs[1].Content)
}

func TestLLMSynthesizer_Synthesize(t *testing.T) {
	chat := newFakeChat("  There are **28** genres.  ")
	ans, err := NewLLMSynthesizer(chat, "m", testPrompt).Synthesize(context.Background(), SynthesisRequest{
		Question: "how many genres?",
		ToolResults: map[model.ToolName]string{
			model.ToolWeb: `{"results": []}`,
			model.ToolSQL: `{"results": [{"count": 28}]}`,
		},
		Sources: []model.ToolName{model.ToolSQL, model.ToolWeb},
		History: []*schema.Message{
			schema.UserMessage("hi"),
			schema.AssistantMessage("", nil),
			schema.AssistantMessage("Hello!", nil),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "There are **28** genres.", ans.Text)

	msgs := chat.inputs[0]
	require.Len(t, msgs, 4)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Less(t, strings.Index(msgs[0].Content, "[sql]"), strings.Index(msgs[0].Content, "[web]"))
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, "Hello!", msgs[2].Content)
	assert.Equal(t, "how many genres?", msgs[3].Content)
}

func TestJoinPayload(t *testing.T) {
	assert.Equal(t, "(no tool was called)", joinPayload(nil))
	assert.Equal(t, "[omdb]\nb\n[sql]\na", joinPayload(map[model.ToolName]string{model.ToolSQL: "a", model.ToolOMDB: "b"}))
}
