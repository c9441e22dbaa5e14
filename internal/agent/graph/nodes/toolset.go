package nodes

import (
	"context"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

type SQLQuerier interface {
	Query(ctx context.Context, query, database string, catalog *model.Catalog) model.ToolResult
}

type SemanticSearcher interface {
	Search(ctx context.Context, query string, limit int) model.ToolResult
}

type MetadataLookup interface {
	Lookup(ctx context.Context, key string) model.ToolResult
}

type WebSearcher interface {
	Search(ctx context.Context, query string) model.ToolResult
}

// Toolset holds the adapters available to the executor. A nil adapter
// yields a failed result when the plan flags it.
type Toolset struct {
	SQL      SQLQuerier
	Semantic SemanticSearcher
	OMDB     MetadataLookup
	Web      WebSearcher
}

// call dispatches one flagged tool of plan to its adapter.
func (ts Toolset) call(ctx context.Context, tool model.ToolName, plan *model.ExecutionPlan, catalog *model.Catalog) model.ToolResult {
	switch tool {
	case model.ToolSQL:
		if ts.SQL != nil {
			return ts.SQL.Query(ctx, plan.SQLQuery, plan.SQLDatabase, catalog)
		}
	case model.ToolSemantic:
		if ts.Semantic != nil {
			return ts.Semantic.Search(ctx, plan.SemanticQuery, plan.SemanticLimit)
		}
	case model.ToolOMDB:
		if ts.OMDB != nil {
			return ts.OMDB.Lookup(ctx, plan.OMDBQuery)
		}
	case model.ToolWeb:
		if ts.Web != nil {
			return ts.Web.Search(ctx, plan.WebQuery)
		}
	default:
		return model.FailedToolResult("unknown tool " + string(tool))
	}
	return model.FailedToolResult(string(tool) + " tool not configured")
}

// toolArgs returns the arguments logged for tool.
func toolArgs(tool model.ToolName, plan *model.ExecutionPlan) map[string]any {
	switch tool {
	case model.ToolSQL:
		return map[string]any{"sql_query": plan.SQLQuery, "sql_database": plan.SQLDatabase}
	case model.ToolSemantic:
		return map[string]any{"semantic_query": plan.SemanticQuery, "semantic_limit": plan.SemanticLimit}
	case model.ToolOMDB:
		return map[string]any{"omdb_query": plan.OMDBQuery}
	case model.ToolWeb:
		return map[string]any{"web_query": plan.WebQuery}
	}
	return nil
}
