package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/tools"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

//go:embed template/planner_prompt.txt
var plannerSystemPrompt string

// PlannerInput carries the per-call values of the planner prompt.
type PlannerInput struct {
	Catalog            *model.Catalog
	History            string
	Iteration          int
	MaxIterations      int
	ReplanInstructions string
	PreviousPlans      string
	PreviousResults    string
	Guidance           string
}

// RenderPlannerSystem renders the planner system prompt via the Eino prompt
// component so prompt callbacks fire.
func RenderPlannerSystem(ctx context.Context, cfg model.PromptConfig, in PlannerInput) (string, error) {
	vars := map[string]any{
		"AssistantName":      cfg.AssistantName,
		"Domain":             cfg.Domain,
		"Tools":              tools.GetToolInfos(),
		"Catalog":            in.Catalog.Describe(),
		"History":            in.History,
		"Iteration":          in.Iteration,
		"MaxIterations":      in.MaxIterations,
		"ReplanInstructions": in.ReplanInstructions,
		"PreviousPlans":      in.PreviousPlans,
		"PreviousResults":    in.PreviousResults,
		"Guidance":           in.Guidance,
		"SQLTool":            model.ToolSQL,
		"SemanticTool":       model.ToolSemantic,
		"OMDBTool":           model.ToolOMDB,
		"WebTool":            model.ToolWeb,
	}
	return render(ctx, "planner", plannerSystemPrompt, vars)
}

func render(ctx context.Context, name, tplText string, vars map[string]any) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(tplText),
	)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs[0].Content, nil
}
