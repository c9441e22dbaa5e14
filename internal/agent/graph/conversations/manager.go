package conversations

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Window selects the recent conversation shown to the decision functions.
type Window struct {
	maxTurns int
}

func NewWindow(maxTurns int) *Window {
	if maxTurns < 0 {
		maxTurns = 0
	}
	return &Window{maxTurns: maxTurns}
}

// Prior returns the last maxTurns messages before the current question.
// The current question is the trailing user message of history.
func (w *Window) Prior(history []*schema.Message) []*schema.Message {
	if n := len(history); n > 0 && history[n-1] != nil && history[n-1].Role == schema.User {
		history = history[:n-1]
	}
	return trimTail(history, w.maxTurns)
}

// BuildContext renders the prior conversation for planner prompts.
// It returns an empty string when there is no prior conversation.
func (w *Window) BuildContext(history []*schema.Message) string {
	recent := w.Prior(history)
	var b strings.Builder
	for _, msg := range recent {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			b.WriteString("UserMessage(" + msg.Content + ")\n")
		case schema.Assistant:
			b.WriteString("AssistantMessage(" + msg.Content + ")\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 {
		return []*schema.Message{}
	}
	if len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
