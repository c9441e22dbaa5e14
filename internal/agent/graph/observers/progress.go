package observers

import (
	"context"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

type progressKey struct{}

// WithProgress attaches a progress listener to ctx.
func WithProgress(ctx context.Context, fn model.ProgressFunc) context.Context {
	if fn == nil {
		return ctx
	}
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress forwards ev to the listener attached to ctx, if any.
func ReportProgress(ctx context.Context, ev model.ProgressEvent) {
	if fn, ok := ctx.Value(progressKey{}).(model.ProgressFunc); ok {
		fn(ev)
	}
}
