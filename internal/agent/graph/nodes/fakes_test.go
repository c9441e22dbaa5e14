package nodes

import (
	"context"
	"errors"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

type sqlFunc func(ctx context.Context, query, database string, catalog *model.Catalog) model.ToolResult

func (f sqlFunc) Query(ctx context.Context, query, database string, catalog *model.Catalog) model.ToolResult {
	return f(ctx, query, database, catalog)
}

type semanticFunc func(ctx context.Context, query string, limit int) model.ToolResult

func (f semanticFunc) Search(ctx context.Context, query string, limit int) model.ToolResult {
	return f(ctx, query, limit)
}

type lookupFunc func(ctx context.Context, key string) model.ToolResult

func (f lookupFunc) Lookup(ctx context.Context, key string) model.ToolResult { return f(ctx, key) }

type webFunc func(ctx context.Context, query string) model.ToolResult

func (f webFunc) Search(ctx context.Context, query string) model.ToolResult { return f(ctx, query) }

// fakeChat replays canned replies in order and records every input.
type fakeChat struct {
	mu      sync.Mutex
	replies []*schema.Message
	err     error
	inputs  [][]*schema.Message
}

func newFakeChat(contents ...string) *fakeChat {
	f := &fakeChat{}
	for _, c := range contents {
		f.replies = append(f.replies, schema.AssistantMessage(c, nil))
	}
	return f
}

func (f *fakeChat) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	out := f.replies[0]
	f.replies = f.replies[1:]
	return out, nil
}

func (f *fakeChat) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func moviesCatalog() *model.Catalog {
	return &model.Catalog{Databases: map[string]model.DatabaseInfo{
		"movies": {Tables: map[string]model.TableInfo{"genres": {RowCount: 28}}},
	}}
}

// newTurn returns a state at the start of a turn on a fresh thread.
func newTurn(question string) *model.SessionState {
	s := model.NewSessionState("thread-1", 2)
	s.BeginTurn("turn-1", question, moviesCatalog())
	return s
}
