package prompts

import (
	"context"
	_ "embed"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

//go:embed template/evaluator_prompt.txt
var evaluatorSystemPrompt string

type EvaluatorInput struct {
	Question      string
	Plan          string
	Results       string
	Iteration     int
	MaxIterations int
}

// RenderEvaluatorSystem renders the evaluator system prompt.
func RenderEvaluatorSystem(ctx context.Context, cfg model.PromptConfig, in EvaluatorInput) (string, error) {
	return render(ctx, "evaluator", evaluatorSystemPrompt, map[string]any{
		"AssistantName": cfg.AssistantName,
		"Domain":        cfg.Domain,
		"Question":      in.Question,
		"Plan":          in.Plan,
		"Results":       in.Results,
		"Iteration":     in.Iteration,
		"MaxIterations": in.MaxIterations,
	})
}
