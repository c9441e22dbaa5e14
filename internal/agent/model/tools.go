package model

// ToolName identifies one of the four tool adapters.
type ToolName string

const (
	ToolSQL      ToolName = "sql"
	ToolSemantic ToolName = "semantic"
	ToolOMDB     ToolName = "omdb"
	ToolWeb      ToolName = "web"
)

// AllTools lists the tools in their canonical order.
var AllTools = []ToolName{ToolSQL, ToolSemantic, ToolOMDB, ToolWeb}

// ExecutedStep returns the progress tag set when the tool completes.
func (t ToolName) ExecutedStep() Step {
	switch t {
	case ToolSQL:
		return StepSQLExecuted
	case ToolSemantic:
		return StepSemanticExecuted
	case ToolOMDB:
		return StepOMDBExecuted
	case ToolWeb:
		return StepWebExecuted
	}
	return ""
}

// SourceType maps the tool to its provenance type.
func (t ToolName) SourceType() SourceType {
	switch t {
	case ToolSQL:
		return SourceDatabase
	case ToolSemantic:
		return SourceSemantic
	case ToolOMDB:
		return SourceOMDB
	case ToolWeb:
		return SourceWeb
	}
	return ""
}

// ToolResult is the normalized outcome of one adapter call.
// Results is empty whenever Error is set. Count is the row count for SQL
// and the number of documents, records or snippets otherwise.
type ToolResult struct {
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
	Count   int    `json:"count"`

	// Source carries adapter-specific provenance hints to the executor.
	Source *Provenance `json:"-"`
}

func NewToolResult(results any, count int) ToolResult {
	return ToolResult{Results: results, Count: count}
}

func FailedToolResult(msg string) ToolResult {
	if msg == "" {
		msg = "unknown error"
	}
	return ToolResult{Results: []any{}, Error: msg}
}

func (r *ToolResult) Failed() bool {
	return r != nil && r.Error != ""
}

// ResultSnapshot records the tool results of one iteration.
type ResultSnapshot struct {
	Iteration int                      `json:"iteration"`
	Results   map[ToolName]*ToolResult `json:"results"`
}
