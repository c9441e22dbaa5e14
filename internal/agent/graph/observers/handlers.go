package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates all observer handlers (prompt, model, tool) into one callbacks.Handler.
func NewAllCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Tool(newToolHandler()).
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}

// Attach installs the observer handlers on ctx for one component run.
func Attach(ctx context.Context, name string, component components.Component) context.Context {
	return einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      name,
		Type:      "AlbertQuery",
		Component: component,
	}, NewAllCallbacks())
}
