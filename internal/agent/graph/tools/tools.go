package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

// ===================================
// Tool descriptions for the planner
// ===================================

// GetToolInfos describes the four adapters the planner can flag.
func GetToolInfos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: string(model.ToolSQL),
			Desc: "Run one read-only SQL SELECT against a catalog database. Best for counts, aggregates, rankings and exact filters on the movie tables.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"sql_query":    {Type: "string", Desc: "A single SELECT or WITH statement using only catalog tables and columns.", Required: true},
				"sql_database": {Type: "string", Desc: "Catalog database name to run the query against.", Required: true},
			}),
		},
		{
			Name: string(model.ToolSemantic),
			Desc: "Semantic search over movie plots and descriptions. Best for themes, moods and 'movies like X' questions.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"semantic_query": {Type: "string", Desc: "Natural-language description of what to find.", Required: true},
				"semantic_limit": {Type: "integer", Desc: "Number of documents to return (default 5, max 20)."},
			}),
		},
		{
			Name: string(model.ToolOMDB),
			Desc: "Look up one movie on OMDB by exact title or IMDb id (tt1234567). Returns cast, director, ratings, awards, box office.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"omdb_query": {Type: "string", Desc: "Movie title or IMDb id.", Required: true},
			}),
		},
		{
			Name: string(model.ToolWeb),
			Desc: "Web search for recent or external information missing from the databases (news, releases, trivia).",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"web_query": {Type: "string", Desc: "Search engine query.", Required: true},
			}),
		},
	}
}

// recoverTool turns a panic inside an adapter into a failed result.
func recoverTool(name model.ToolName, res *model.ToolResult) {
	if r := recover(); r != nil {
		logx.Error().Str("component", "tools").Str("tool", string(name)).Msgf("panic recovered: %v", r)
		*res = model.FailedToolResult(fmt.Sprintf("%s tool failed unexpectedly", name))
	}
}

// ctxError maps a context failure to a readable tool error.
func ctxError(ctx context.Context, err error) string {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Sprintf("request cancelled: %v", ctxErr)
	}
	return err.Error()
}
