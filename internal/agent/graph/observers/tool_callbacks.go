package observers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

// newToolHandler builds a typed ToolCallbackHandler (not yet wrapped).
func newToolHandler() *callbackHelper.ToolCallbackHandler {
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			ev := logx.Debug().Str("component", "tool").Str("tool", info.Name)
			if input != nil {
				ev = ev.Str("arguments", clip(input.ArgumentsInJSON))
			}
			ev.Msg("tool call started")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			ev := logx.Debug().Str("component", "tool").Str("tool", info.Name)
			if output != nil {
				ev = ev.Str("response", clip(output.Response))
			}
			ev.Msg("tool call finished")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("component", "tool").Str("tool", info.Name).Msg("tool call failed")
			return ctx
		},
	}
}

// ToolStart opens the callback scope of one adapter call.
func ToolStart(ctx context.Context, name model.ToolName, args any) context.Context {
	ctx = Attach(ctx, string(name), components.ComponentOfTool)
	b, err := json.Marshal(args)
	if err != nil {
		b = []byte(fmt.Sprintf("%q", fmt.Sprint(args)))
	}
	return einocb.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: string(b)})
}

// ToolEnd closes the scope opened by ToolStart.
func ToolEnd(ctx context.Context, res model.ToolResult) {
	if res.Failed() {
		einocb.OnError(ctx, errors.New(res.Error))
		return
	}
	einocb.OnEnd(ctx, &tool.CallbackOutput{Response: fmt.Sprintf("%d results", res.Count)})
}
