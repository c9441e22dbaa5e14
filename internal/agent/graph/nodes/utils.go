package nodes

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	errx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/core/error"
)

const (
	DefaultMaxResultChars = 3000
	truncationMarker      = "..."
)

// SerializeToolResults renders each tool result as indented JSON, capped at
// maxChars runes plus a truncation marker. A payload that cannot be encoded
// fails the whole synthesis with a serialization error.
func SerializeToolResults(results map[model.ToolName]*model.ToolResult, maxChars int) (map[model.ToolName]string, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxResultChars
	}
	out := make(map[model.ToolName]string, len(results))
	for tool, res := range results {
		if res == nil {
			continue
		}
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, errx.Serialization(fmt.Errorf("serialize %s result: %w", tool, err))
		}
		out[tool] = Truncate(string(b), maxChars)
	}
	return out, nil
}

// Truncate cuts s to max runes and appends the marker only when it cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + truncationMarker
		}
		n++
	}
	return s
}

// provenanceFor builds the record of one completed call. Adapter hints
// override the defaults derived from the plan.
func provenanceFor(tool model.ToolName, plan *model.ExecutionPlan, res model.ToolResult) model.Provenance {
	p := model.Provenance{Type: tool.SourceType()}
	switch tool {
	case model.ToolSQL:
		p.Name = plan.SQLDatabase
		p.Details = fmt.Sprintf("%d rows", res.Count)
	case model.ToolSemantic:
		p.Name = "Semantic search"
		p.Details = fmt.Sprintf("%d matches", res.Count)
	case model.ToolOMDB:
		p.Name = plan.OMDBQuery
	case model.ToolWeb:
		p.Name = "Web search"
		p.Details = fmt.Sprintf("%d results", res.Count)
	}
	if h := res.Source; h != nil && !res.Failed() {
		if h.Name != "" {
			p.Name = h.Name
		}
		if h.URL != "" {
			p.URL = h.URL
		}
		if h.Details != "" {
			p.Details = h.Details
		}
	}
	if res.Failed() {
		p.Details = "error: " + res.Error
	}
	if p.Name == "" {
		p.Name = string(tool)
	}
	return p
}

// summarizePlans renders previous plans compactly for re-planning prompts.
func summarizePlans(plans []model.ExecutionPlan) string {
	if len(plans) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, p := range plans {
		fmt.Fprintf(&b, "%d. tools=%v", i+1, p.Tools())
		if p.NeedsSQL {
			fmt.Fprintf(&b, " sql[%s]=%q", p.SQLDatabase, p.SQLQuery)
		}
		if p.NeedsSemantic {
			fmt.Fprintf(&b, " semantic=%q limit=%d", p.SemanticQuery, p.SemanticLimit)
		}
		if p.NeedsOMDB {
			fmt.Fprintf(&b, " omdb=%q", p.OMDBQuery)
		}
		if p.NeedsWeb {
			fmt.Fprintf(&b, " web=%q", p.WebQuery)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// summarizeResults lists, per iteration, each tool's count or error.
func summarizeResults(snapshots []model.ResultSnapshot) string {
	if len(snapshots) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, snap := range snapshots {
		fmt.Fprintf(&b, "iteration %d:", snap.Iteration)
		if len(snap.Results) == 0 {
			b.WriteString(" no tools called")
		}
		for _, tool := range model.AllTools {
			res, ok := snap.Results[tool]
			if !ok || res == nil {
				continue
			}
			if res.Failed() {
				fmt.Fprintf(&b, " %s=error(%s)", tool, Truncate(res.Error, 160))
			} else {
				fmt.Fprintf(&b, " %s=%d results", tool, res.Count)
			}
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
