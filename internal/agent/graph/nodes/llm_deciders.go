package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/conversations"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/observers"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/parsers"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/prompts"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

// ===================================
// Planner
// ===================================

type LLMPlanner struct {
	chat      einomodel.BaseChatModel
	modelName string
	prompt    model.PromptConfig
	window    *conversations.Window
}

func NewLLMPlanner(chat einomodel.BaseChatModel, modelName string, prompt model.PromptConfig, window *conversations.Window) *LLMPlanner {
	if window == nil {
		window = conversations.NewWindow(0)
	}
	return &LLMPlanner{chat: chat, modelName: modelName, prompt: prompt, window: window}
}

func (p *LLMPlanner) Plan(ctx context.Context, s *model.SessionState, guidance string) (*model.ExecutionPlan, error) {
	pctx := observers.Attach(ctx, "PlannerPrompt", components.ComponentOfPrompt)
	system, err := prompts.RenderPlannerSystem(pctx, p.prompt, prompts.PlannerInput{
		Catalog:            s.Catalog,
		History:            p.window.BuildContext(s.ConversationHistory),
		Iteration:          s.IterationCount,
		MaxIterations:      s.MaxIterations,
		ReplanInstructions: s.ReplanInstructions,
		PreviousPlans:      summarizePlans(s.PreviousPlans),
		PreviousResults:    summarizeResults(s.PreviousResults),
		Guidance:           guidance,
	})
	if err != nil {
		return nil, fmt.Errorf("render planner system prompt: %w", err)
	}

	out, err := generate(ctx, p.chat, "Planner", []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(s.OriginalQuestion),
	})
	if err != nil {
		return nil, err
	}
	plan, err := parsers.ParsePlan(out.Content)
	if err != nil {
		return nil, err
	}
	plan.Usage = model.UsageFromMessage(p.modelName, out)
	logUsage("planner", plan.Usage)
	return plan, nil
}

// ===================================
// Evaluator
// ===================================

type LLMEvaluator struct {
	chat           einomodel.BaseChatModel
	modelName      string
	prompt         model.PromptConfig
	maxResultChars int
}

func NewLLMEvaluator(chat einomodel.BaseChatModel, modelName string, prompt model.PromptConfig, maxResultChars int) *LLMEvaluator {
	return &LLMEvaluator{chat: chat, modelName: modelName, prompt: prompt, maxResultChars: maxResultChars}
}

func (e *LLMEvaluator) Evaluate(ctx context.Context, s *model.SessionState) (*model.Evaluation, error) {
	planJSON, err := json.MarshalIndent(s.ExecutionPlan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	payload, err := SerializeToolResults(s.ToolResults, e.maxResultChars)
	if err != nil {
		return nil, err
	}

	pctx := observers.Attach(ctx, "EvaluatorPrompt", components.ComponentOfPrompt)
	system, err := prompts.RenderEvaluatorSystem(pctx, e.prompt, prompts.EvaluatorInput{
		Question:      s.OriginalQuestion,
		Plan:          string(planJSON),
		Results:       joinPayload(payload),
		Iteration:     s.IterationCount,
		MaxIterations: s.MaxIterations,
	})
	if err != nil {
		return nil, fmt.Errorf("render evaluator system prompt: %w", err)
	}

	out, err := generate(ctx, e.chat, "Evaluator", []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage("Evaluate the results for: " + s.OriginalQuestion),
	})
	if err != nil {
		return nil, err
	}
	eval, ok, err := parsers.ParseEvaluation(out.Content)
	if err != nil {
		return nil, err
	}
	if !ok {
		logx.Warn().Str("component", "evaluator").Msg("model returned an unknown decision")
	}
	eval.Usage = model.UsageFromMessage(e.modelName, out)
	logUsage("evaluator", eval.Usage)
	return eval, nil
}

// ===================================
// Synthesizer
// ===================================

type LLMSynthesizer struct {
	chat      einomodel.BaseChatModel
	modelName string
	prompt    model.PromptConfig
}

func NewLLMSynthesizer(chat einomodel.BaseChatModel, modelName string, prompt model.PromptConfig) *LLMSynthesizer {
	return &LLMSynthesizer{chat: chat, modelName: modelName, prompt: prompt}
}

func (y *LLMSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (*Answer, error) {
	data := make([]prompts.ToolData, 0, len(req.ToolResults))
	for _, tool := range model.AllTools {
		if v, ok := req.ToolResults[tool]; ok {
			data = append(data, prompts.ToolData{Tool: tool, Data: v})
		}
	}

	pctx := observers.Attach(ctx, "SynthesizerPrompt", components.ComponentOfPrompt)
	system, err := prompts.RenderSynthesizerSystem(pctx, y.prompt, prompts.SynthesizerInput{
		Question: req.Question,
		Results:  data,
		Sources:  req.Sources,
	})
	if err != nil {
		return nil, fmt.Errorf("render synthesizer system prompt: %w", err)
	}

	msgs := make([]*schema.Message, 0, len(req.History)+2)
	msgs = append(msgs, schema.SystemMessage(system))
	for _, m := range req.History {
		if m != nil && m.Content != "" && (m.Role == schema.User || m.Role == schema.Assistant) {
			msgs = append(msgs, m)
		}
	}
	msgs = append(msgs, schema.UserMessage(req.Question))

	out, err := generate(ctx, y.chat, "Synthesizer", msgs)
	if err != nil {
		return nil, err
	}
	usage := model.UsageFromMessage(y.modelName, out)
	logUsage("synthesizer", usage)
	return &Answer{Text: strings.TrimSpace(out.Content), Usage: usage}, nil
}

// --- helpers ---

func generate(ctx context.Context, chat einomodel.BaseChatModel, name string, msgs []*schema.Message) (*schema.Message, error) {
	if chat == nil {
		return nil, fmt.Errorf("%s chat model is not configured", strings.ToLower(name))
	}
	cctx := observers.Attach(ctx, name+"ChatModel", components.ComponentOfChatModel)
	out, err := chat.Generate(cctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", strings.ToLower(name), err)
	}
	if out == nil {
		return nil, fmt.Errorf("%s generate: empty response", strings.ToLower(name))
	}
	return out, nil
}

func joinPayload(payload map[model.ToolName]string) string {
	if len(payload) == 0 {
		return "(no tool was called)"
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "[%s]\n%s\n", k, payload[model.ToolName(k)])
	}
	return strings.TrimRight(b.String(), "\n")
}

func logUsage(stage string, u *model.Usage) {
	if u == nil {
		return
	}
	logx.Debug().
		Str("stage", stage).
		Str("model", u.Model).
		Int("prompt_tokens", u.PromptTokens).
		Int("completion_tokens", u.CompletionTokens).
		Int("total_tokens", u.TotalTokens).
		Float64("cost_usd", u.CostUSD).
		Msg("LLM usage")
}
