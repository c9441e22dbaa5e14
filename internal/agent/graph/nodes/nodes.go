package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/conversations"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

const differentStrategyGuidance = "Your proposal repeats a plan that was already executed in this turn. " +
	"Choose a different strategy: use other tools, or rewrite the queries substantially."

// NewPlannerNode starts an iteration: it increments iteration_count and stores
// a fresh plan. A failing planner yields an empty plan so the turn still ends
// with an answer. A plan identical to an earlier one of the same turn is
// retried once with explicit guidance.
func NewPlannerNode(planner Planner) Node {
	return func(ctx context.Context, s *model.SessionState) error {
		s.IterationCount++

		plan, err := planOnce(ctx, planner, s, "")
		if err != nil {
			return err
		}
		if s.IterationCount > 1 && repeatsPrevious(plan, s.PreviousPlans) {
			logx.Debug().
				Str("thread_id", s.ThreadID).
				Int("iteration", s.IterationCount).
				Msg("planner repeated a previous plan, retrying with guidance")
			retry, err := planOnce(ctx, planner, s, differentStrategyGuidance)
			if err != nil {
				return err
			}
			plan = retry
		}

		s.ExecutionPlan = plan
		s.PreviousPlans = append(s.PreviousPlans, *plan)
		s.CurrentStep = model.StepPlanned

		logx.Debug().
			Str("thread_id", s.ThreadID).
			Int("iteration", s.IterationCount).
			Interface("tools", plan.Tools()).
			Str("reasoning", plan.Reasoning).
			Msg("execution plan ready")
		return nil
	}
}

// planOnce calls the planner and normalizes its output. Only a cancelled
// context is returned as an error.
func planOnce(ctx context.Context, planner Planner, s *model.SessionState, guidance string) (*model.ExecutionPlan, error) {
	plan, err := planner.Plan(ctx, s, guidance)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil || plan == nil {
		logx.Warn().Err(err).Str("thread_id", s.ThreadID).Msg("planner failed, continuing with an empty plan")
		plan = &model.ExecutionPlan{Reasoning: "planner unavailable"}
	}
	s.AddUsage(plan.Usage)
	plan.Normalize(s.Catalog, s.OriginalQuestion)
	return plan, nil
}

func repeatsPrevious(plan *model.ExecutionPlan, previous []model.ExecutionPlan) bool {
	if len(plan.Tools()) == 0 {
		return false
	}
	for i := range previous {
		if plan.Equivalent(&previous[i]) {
			return true
		}
	}
	return false
}

// NewEvaluatorNode records the loop-or-finish decision. Any failure, an
// unrecognized decision or an exhausted budget resolves to finish.
func NewEvaluatorNode(evaluator Evaluator) Node {
	return func(ctx context.Context, s *model.SessionState) error {
		s.ReplanInstructions = ""

		if s.IterationCount >= s.MaxIterations {
			s.EvaluatorDecision = model.DecisionFinish
			s.EvaluatorReasoning = fmt.Sprintf("iteration budget exhausted (%d/%d)", s.IterationCount, s.MaxIterations)
			s.EvaluatorConfidence = 1
			return nil
		}

		eval, err := evaluator.Evaluate(ctx, s)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || eval == nil {
			logx.Warn().Err(err).Str("thread_id", s.ThreadID).Msg("evaluator failed, finishing")
			s.EvaluatorDecision = model.DecisionFinish
			s.EvaluatorReasoning = "evaluation unavailable"
			s.EvaluatorConfidence = 0
			return nil
		}
		s.AddUsage(eval.Usage)

		decision, ok := model.ParseDecision(string(eval.Decision))
		if !ok {
			logx.Warn().
				Str("thread_id", s.ThreadID).
				Str("decision", string(eval.Decision)).
				Msg("unrecognized evaluator decision, finishing")
		}
		s.EvaluatorDecision = decision
		s.EvaluatorReasoning = strings.TrimSpace(eval.Reasoning)
		s.EvaluatorConfidence = clamp01(eval.Confidence)
		if decision == model.DecisionReplan {
			s.ReplanInstructions = strings.TrimSpace(eval.ReplanInstructions)
		}

		logx.Debug().
			Str("thread_id", s.ThreadID).
			Int("iteration", s.IterationCount).
			Str("decision", string(decision)).
			Float64("confidence", s.EvaluatorConfidence).
			Msg("evaluation done")
		return nil
	}
}

// SynthesizerConfig bounds the synthesis input.
type SynthesizerConfig struct {
	MaxResultChars int
	Window         *conversations.Window
}

// NewSynthesizerNode produces the final answer from the current tool results
// and appends it to the conversation history.
func NewSynthesizerNode(synth Synthesizer, cfg SynthesizerConfig) Node {
	if cfg.Window == nil {
		cfg.Window = conversations.NewWindow(0)
	}
	return func(ctx context.Context, s *model.SessionState) error {
		payload, err := SerializeToolResults(s.ToolResults, cfg.MaxResultChars)
		if err != nil {
			return err
		}

		sources := make([]model.ToolName, len(s.SourcesUsed))
		copy(sources, s.SourcesUsed)

		ans, err := synth.Synthesize(ctx, SynthesisRequest{
			Question:    s.OriginalQuestion,
			ToolResults: payload,
			Sources:     sources,
			History:     cfg.Window.Prior(s.ConversationHistory),
		})
		if err != nil {
			return fmt.Errorf("synthesize answer: %w", err)
		}
		if ans == nil || strings.TrimSpace(ans.Text) == "" {
			return fmt.Errorf("synthesize answer: empty answer")
		}
		s.AddUsage(ans.Usage)

		text := strings.TrimSpace(ans.Text)
		s.FinalAnswer = text
		s.ConversationHistory = append(s.ConversationHistory, schema.AssistantMessage(text, nil))
		s.CurrentStep = model.StepComplete
		return nil
	}
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
