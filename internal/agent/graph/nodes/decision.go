package nodes

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

// Node is one stage of the workflow. It mutates state in place and returns
// an error only for conditions that must abort the run.
type Node func(ctx context.Context, state *model.SessionState) error

// Planner decides which tools to call. guidance is extra instruction added
// when a previous proposal had to be rejected.
type Planner interface {
	Plan(ctx context.Context, state *model.SessionState, guidance string) (*model.ExecutionPlan, error)
}

// Evaluator judges whether the current tool results are sufficient.
type Evaluator interface {
	Evaluate(ctx context.Context, state *model.SessionState) (*model.Evaluation, error)
}

// Synthesizer writes the user-facing answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*Answer, error)
}

// SynthesisRequest is the input of the answer decision function. ToolResults
// holds serialized, size-capped payloads keyed by tool.
type SynthesisRequest struct {
	Question    string
	ToolResults map[model.ToolName]string
	Sources     []model.ToolName
	History     []*schema.Message
}

type Answer struct {
	Text  string
	Usage *model.Usage
}

// PlannerFunc adapts a function to Planner.
type PlannerFunc func(ctx context.Context, state *model.SessionState, guidance string) (*model.ExecutionPlan, error)

func (f PlannerFunc) Plan(ctx context.Context, state *model.SessionState, guidance string) (*model.ExecutionPlan, error) {
	return f(ctx, state, guidance)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, state *model.SessionState) (*model.Evaluation, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, state *model.SessionState) (*model.Evaluation, error) {
	return f(ctx, state)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, req SynthesisRequest) (*Answer, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, req SynthesisRequest) (*Answer, error) {
	return f(ctx, req)
}
