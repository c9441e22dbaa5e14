package model

import "strings"

// DefaultSemanticLimit is the result limit used when a plan does not set one.
const DefaultSemanticLimit = 5

// ExecutionPlan is the planner's decision for one iteration.
type ExecutionPlan struct {
	Reasoning     string `json:"reasoning,omitempty"`
	ResolvedQuery string `json:"resolved_query,omitempty"`

	NeedsSQL      bool `json:"needs_sql"`
	NeedsSemantic bool `json:"needs_semantic"`
	NeedsOMDB     bool `json:"needs_omdb"`
	NeedsWeb      bool `json:"needs_web"`

	SQLQuery      string `json:"sql_query,omitempty"`
	SQLDatabase   string `json:"sql_database,omitempty"`
	SemanticQuery string `json:"semantic_query,omitempty"`
	SemanticLimit int    `json:"semantic_limit,omitempty"`
	OMDBQuery     string `json:"omdb_query,omitempty"`
	WebQuery      string `json:"web_query,omitempty"`

	Usage *Usage `json:"-"`
}

// Tools returns the flagged tools in canonical order.
func (p *ExecutionPlan) Tools() []ToolName {
	if p == nil {
		return nil
	}
	var out []ToolName
	if p.NeedsSQL {
		out = append(out, ToolSQL)
	}
	if p.NeedsSemantic {
		out = append(out, ToolSemantic)
	}
	if p.NeedsOMDB {
		out = append(out, ToolOMDB)
	}
	if p.NeedsWeb {
		out = append(out, ToolWeb)
	}
	return out
}

// Normalize trims derived queries and fills defaults that can be inferred
// from the catalog. Missing tool queries fall back to the resolved question.
func (p *ExecutionPlan) Normalize(catalog *Catalog, question string) {
	p.Reasoning = strings.TrimSpace(p.Reasoning)
	p.ResolvedQuery = strings.TrimSpace(p.ResolvedQuery)
	p.SQLQuery = strings.TrimSpace(p.SQLQuery)
	p.SQLDatabase = strings.TrimSpace(p.SQLDatabase)
	p.SemanticQuery = strings.TrimSpace(p.SemanticQuery)
	p.OMDBQuery = strings.TrimSpace(p.OMDBQuery)
	p.WebQuery = strings.TrimSpace(p.WebQuery)

	fallback := p.ResolvedQuery
	if fallback == "" {
		fallback = strings.TrimSpace(question)
	}
	if p.NeedsSQL && p.SQLDatabase == "" && catalog != nil {
		if names := catalog.DatabaseNames(); len(names) == 1 {
			p.SQLDatabase = names[0]
		}
	}
	if p.NeedsSemantic {
		if p.SemanticQuery == "" {
			p.SemanticQuery = fallback
		}
		if p.SemanticLimit <= 0 {
			p.SemanticLimit = DefaultSemanticLimit
		}
	}
	if p.NeedsWeb && p.WebQuery == "" {
		p.WebQuery = fallback
	}
}

// Equivalent reports whether two plans would issue the same tool calls.
// Reasoning and resolved question are ignored.
func (p *ExecutionPlan) Equivalent(o *ExecutionPlan) bool {
	if p == nil || o == nil {
		return p == o
	}
	norm := func(s string) string { return strings.Join(strings.Fields(strings.ToLower(s)), " ") }
	return p.NeedsSQL == o.NeedsSQL &&
		p.NeedsSemantic == o.NeedsSemantic &&
		p.NeedsOMDB == o.NeedsOMDB &&
		p.NeedsWeb == o.NeedsWeb &&
		(!p.NeedsSQL || (norm(p.SQLQuery) == norm(o.SQLQuery) && p.SQLDatabase == o.SQLDatabase)) &&
		(!p.NeedsSemantic || (norm(p.SemanticQuery) == norm(o.SemanticQuery) && p.SemanticLimit == o.SemanticLimit)) &&
		(!p.NeedsOMDB || norm(p.OMDBQuery) == norm(o.OMDBQuery)) &&
		(!p.NeedsWeb || norm(p.WebQuery) == norm(o.WebQuery))
}
