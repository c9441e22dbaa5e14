package tools

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

func moviesCatalog() *model.Catalog {
	return &model.Catalog{Databases: map[string]model.DatabaseInfo{
		"movies": {Tables: map[string]model.TableInfo{"genres": {RowCount: 28}}},
	}}
}

func TestSQLTool_Query(t *testing.T) {
	fdb := &fakeDB{result: fakeResult{
		columns: []string{"count"},
		rows:    [][]driver.Value{{int64(28)}},
	}}
	db := fdb.open()
	t.Cleanup(func() { _ = db.Close() })

	tool := NewSQLTool(staticResolver{db: db}, 0)
	res := tool.Query(context.Background(), "SELECT COUNT(*) AS count FROM genres;", "movies", moviesCatalog())

	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, 1, res.Count)
	rows, ok := res.Results.([]map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(28), rows[0]["count"])
	require.NotNil(t, res.Source)
	assert.Equal(t, "movies", res.Source.Name)
	assert.Equal(t, "1 rows", res.Source.Details)

	assert.Equal(t, []string{"SELECT COUNT(*) AS count FROM genres"}, fdb.lastQueries())
	assert.Equal(t, []bool{true}, fdb.readOnly)
}

func TestSQLTool_QueryTruncatesAndDecodesBytes(t *testing.T) {
	fdb := &fakeDB{result: fakeResult{
		columns: []string{"name"},
		rows:    [][]driver.Value{{[]byte("Action")}, {[]byte("Comedy")}, {[]byte("Drama")}},
	}}
	db := fdb.open()
	t.Cleanup(func() { _ = db.Close() })

	res := NewSQLTool(staticResolver{db: db}, 2).Query(context.Background(), "SELECT name FROM genres", "movies", moviesCatalog())

	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, 2, res.Count)
	rows := res.Results.([]map[string]any)
	assert.Equal(t, "Action", rows[0]["name"])
	assert.Equal(t, "2 rows (truncated)", res.Source.Details)
}

func TestSQLTool_QueryFailures(t *testing.T) {
	fdb := &fakeDB{result: fakeResult{err: errors.New(`relation "genre" does not exist`)}}
	db := fdb.open()
	t.Cleanup(func() { _ = db.Close() })

	tests := []struct {
		name     string
		tool     *SQLTool
		query    string
		database string
		want     string
	}{
		{"empty", NewSQLTool(staticResolver{db: db}, 0), " ; ", "movies", "empty SQL query"},
		{"unknown database", NewSQLTool(staticResolver{db: db}, 0), "SELECT 1", "music", `unknown database "music"; available: movies`},
		{"write statement", NewSQLTool(staticResolver{db: db}, 0), "DELETE FROM genres", "movies", "only SELECT queries are allowed"},
		{"no backend", NewSQLTool(nil, 0), "SELECT 1", "movies", "sql backend is not configured"},
		{"resolver error", NewSQLTool(staticResolver{err: errors.New("pool closed")}, 0), "SELECT 1", "movies", "SQL execution failed: pool closed"},
		{"driver error", NewSQLTool(staticResolver{db: db}, 0), "SELECT * FROM genre", "movies", `SQL execution failed: relation "genre" does not exist`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.tool.Query(context.Background(), tt.query, tt.database, moviesCatalog())
			require.True(t, res.Failed())
			assert.Equal(t, tt.want, res.Error)
			assert.Equal(t, []any{}, res.Results)
			assert.Zero(t, res.Count)
			assert.Nil(t, res.Source)
		})
	}
}

func TestCheckReadOnly(t *testing.T) {
	allowed := []string{
		"SELECT * FROM movies",
		"select title from movies where title like '%x%'",
		"WITH top AS (SELECT movie_id FROM ratings) SELECT * FROM top",
		"SELECT updated_at FROM movies",
	}
	for _, q := range allowed {
		assert.NoError(t, checkReadOnly(q), q)
	}

	rejected := map[string]string{
		"SELECT 1; DROP TABLE movies":             "single SQL statement",
		"UPDATE movies SET title = 'x'":           "only SELECT",
		"   ":                                     "only SELECT",
		"WITH x AS (DELETE FROM movies) SELECT 1": `"DELETE"`,
		"SELECT * FROM movies; ":                  "single SQL statement",
		"select pg_sleep(1) from x into copy":     `"COPY"`,
	}
	for q, want := range rejected {
		err := checkReadOnly(q)
		require.Error(t, err, q)
		assert.Contains(t, err.Error(), want, q)
	}
}
