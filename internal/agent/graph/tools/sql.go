package tools

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

const defaultMaxRows = 200

// DBResolver returns a handle for a catalog database.
type DBResolver interface {
	DB(ctx context.Context, database string) (*sql.DB, error)
}

// SQLTool runs planner-written SELECT statements against catalog databases.
type SQLTool struct {
	dbs     DBResolver
	maxRows int
}

func NewSQLTool(dbs DBResolver, maxRows int) *SQLTool {
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	return &SQLTool{dbs: dbs, maxRows: maxRows}
}

// Query executes query on database inside a read-only transaction and
// returns at most maxRows rows as column → value maps.
func (t *SQLTool) Query(ctx context.Context, query, database string, catalog *model.Catalog) (res model.ToolResult) {
	defer recoverTool(model.ToolSQL, &res)

	query = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if query == "" {
		return model.FailedToolResult("empty SQL query")
	}
	if !catalog.HasDatabase(database) {
		return model.FailedToolResult(fmt.Sprintf("unknown database %q; available: %s", database, strings.Join(catalog.DatabaseNames(), ", ")))
	}
	if err := checkReadOnly(query); err != nil {
		return model.FailedToolResult(err.Error())
	}
	if t.dbs == nil {
		return model.FailedToolResult("sql backend is not configured")
	}

	db, err := t.dbs.DB(ctx, database)
	if err != nil {
		logx.Error().Err(err).Str("tool", string(model.ToolSQL)).Str("database", database).Msg("failed to open database")
		return model.FailedToolResult(fmt.Sprintf("SQL execution failed: %s", ctxError(ctx, err)))
	}

	start := time.Now()
	rows, truncated, err := t.run(ctx, db, query)
	if err != nil {
		logx.Warn().Err(err).Str("tool", string(model.ToolSQL)).Str("database", database).Str("query", query).Msg("sql query failed")
		return model.FailedToolResult(fmt.Sprintf("SQL execution failed: %s", ctxError(ctx, err)))
	}

	logx.Debug().
		Str("tool", string(model.ToolSQL)).
		Str("database", database).
		Int("row_count", len(rows)).
		Bool("truncated", truncated).
		Dur("elapsed", time.Since(start)).
		Msg("sql query executed")

	details := fmt.Sprintf("%d rows", len(rows))
	if truncated {
		details += " (truncated)"
	}
	res = model.NewToolResult(rows, len(rows))
	res.Source = &model.Provenance{Name: database, Details: details}
	return res
}

func (t *SQLTool) run(ctx context.Context, db *sql.DB, query string) ([]map[string]any, bool, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, false, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, false, err
	}

	out := make([]map[string]any, 0)
	truncated := false
	for rows.Next() {
		if len(out) >= t.maxRows {
			truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, false, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return out, truncated, nil
}

var forbiddenKeywords = []string{
	"insert", "update", "delete", "drop", "alter", "create", "truncate",
	"grant", "revoke", "copy", "vacuum", "attach", "pragma", "call", "do",
}

// checkReadOnly accepts a single SELECT or WITH statement.
func checkReadOnly(query string) error {
	lower := strings.ToLower(query)
	if strings.Contains(lower, ";") {
		return fmt.Errorf("only a single SQL statement is allowed")
	}
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	if len(fields) == 0 || (fields[0] != "select" && fields[0] != "with") {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	for _, f := range fields {
		for _, kw := range forbiddenKeywords {
			if f == kw {
				return fmt.Errorf("keyword %q is not allowed in read-only queries", strings.ToUpper(kw))
			}
		}
	}
	return nil
}
