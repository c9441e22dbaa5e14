package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionPlan_Tools(t *testing.T) {
	var nilPlan *ExecutionPlan
	assert.Nil(t, nilPlan.Tools())
	assert.Empty(t, (&ExecutionPlan{}).Tools())

	p := &ExecutionPlan{NeedsWeb: true, NeedsSQL: true, NeedsOMDB: true}
	assert.Equal(t, []ToolName{ToolSQL, ToolOMDB, ToolWeb}, p.Tools())
}

func TestExecutionPlan_Normalize(t *testing.T) {
	p := &ExecutionPlan{
		ResolvedQuery: "  sci-fi movies about time travel ",
		NeedsSQL:      true,
		SQLQuery:      " SELECT 1 ",
		NeedsSemantic: true,
		NeedsWeb:      true,
	}
	p.Normalize(testCatalog(), "the question")

	assert.Equal(t, "SELECT 1", p.SQLQuery)
	assert.Equal(t, "movies", p.SQLDatabase)
	assert.Equal(t, "sci-fi movies about time travel", p.SemanticQuery)
	assert.Equal(t, DefaultSemanticLimit, p.SemanticLimit)
	assert.Equal(t, "sci-fi movies about time travel", p.WebQuery)
}

func TestExecutionPlan_NormalizeFallsBackToQuestion(t *testing.T) {
	p := &ExecutionPlan{NeedsWeb: true}
	p.Normalize(nil, " latest box office ")
	assert.Equal(t, "latest box office", p.WebQuery)
}

func TestExecutionPlan_NormalizeKeepsDatabaseWhenAmbiguous(t *testing.T) {
	c := testCatalog()
	c.Databases["other"] = DatabaseInfo{}
	p := &ExecutionPlan{NeedsSQL: true, SQLQuery: "SELECT 1"}
	p.Normalize(c, "q")
	assert.Empty(t, p.SQLDatabase)
}

func TestExecutionPlan_Equivalent(t *testing.T) {
	a := &ExecutionPlan{NeedsSQL: true, SQLQuery: "SELECT  count(*) FROM genres", SQLDatabase: "movies", Reasoning: "a"}
	b := &ExecutionPlan{NeedsSQL: true, SQLQuery: "select count(*)   from GENRES", SQLDatabase: "movies", Reasoning: "b"}
	assert.True(t, a.Equivalent(b))

	c := &ExecutionPlan{NeedsSQL: true, SQLQuery: "SELECT name FROM genres", SQLDatabase: "movies"}
	assert.False(t, a.Equivalent(c))

	d := &ExecutionPlan{NeedsSQL: true, NeedsWeb: true, SQLQuery: a.SQLQuery, SQLDatabase: "movies", WebQuery: "x"}
	assert.False(t, a.Equivalent(d))

	var nilPlan *ExecutionPlan
	assert.False(t, a.Equivalent(nilPlan))
	assert.True(t, nilPlan.Equivalent(nil))
}
