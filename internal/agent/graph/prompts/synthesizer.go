package prompts

import (
	"context"
	_ "embed"
	"strings"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

//go:embed template/synthesizer_prompt.txt
var synthesizerSystemPrompt string

// ToolData is one serialized tool result shown to the synthesizer.
type ToolData struct {
	Tool model.ToolName
	Data string
}

type SynthesizerInput struct {
	Question string
	Results  []ToolData
	Sources  []model.ToolName
}

// RenderSynthesizerSystem renders the answer prompt. Results are expected
// to be serialized and truncated already.
func RenderSynthesizerSystem(ctx context.Context, cfg model.PromptConfig, in SynthesizerInput) (string, error) {
	sources := make([]string, 0, len(in.Sources))
	for _, s := range in.Sources {
		sources = append(sources, string(s))
	}
	lang := strings.TrimSpace(cfg.Language)
	if lang == "" {
		lang = "the language of the question"
	}
	return render(ctx, "synthesizer", synthesizerSystemPrompt, map[string]any{
		"AssistantName": cfg.AssistantName,
		"Domain":        cfg.Domain,
		"Language":      lang,
		"Question":      in.Question,
		"Results":       in.Results,
		"Sources":       strings.Join(sources, ", "),
	})
}
