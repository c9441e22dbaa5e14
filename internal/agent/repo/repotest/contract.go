// Package repotest holds behaviour shared by every checkpoint store.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	errx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/core/error"
)

// RunCheckpointStoreContract exercises store against the CheckpointStore contract.
func RunCheckpointStoreContract(t *testing.T, store model.CheckpointStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("load missing thread", func(t *testing.T) {
		_, err := store.Load(ctx, "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, errx.ErrThreadNotFound)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		s := sampleState("thread-a")
		require.NoError(t, store.Save(ctx, "thread-a", s))

		got, err := store.Load(ctx, "thread-a")
		require.NoError(t, err)
		assert.Equal(t, s.ThreadID, got.ThreadID)
		assert.Equal(t, s.TurnID, got.TurnID)
		assert.Equal(t, s.OriginalQuestion, got.OriginalQuestion)
		assert.Equal(t, model.StageExecuting, got.Stage)
		assert.Equal(t, 1, got.IterationCount)
		assert.Equal(t, 2, got.MaxIterations)
		require.Len(t, got.ConversationHistory, 1)
		assert.Equal(t, "How many genres are there?", got.ConversationHistory[0].Content)
		require.NotNil(t, got.ExecutionPlan)
		assert.True(t, got.ExecutionPlan.NeedsSQL)
		assert.Equal(t, s.SourcesDetailed, got.SourcesDetailed)
		assert.True(t, got.Catalog.HasDatabase("movies"))
	})

	t.Run("stored state is a copy", func(t *testing.T) {
		s := sampleState("thread-b")
		require.NoError(t, store.Save(ctx, "thread-b", s))
		s.OriginalQuestion = "mutated"
		s.SourcesDetailed = append(s.SourcesDetailed, model.Provenance{Type: model.SourceWeb, Name: "Web search"})

		got, err := store.Load(ctx, "thread-b")
		require.NoError(t, err)
		assert.Equal(t, "How many genres are there?", got.OriginalQuestion)
		assert.Len(t, got.SourcesDetailed, 1)
	})

	t.Run("journal keeps stage order", func(t *testing.T) {
		s := sampleState("thread-c")
		for _, stage := range []model.Stage{model.StagePlanning, model.StageExecuting, model.StageEvaluating} {
			s.Stage = stage
			require.NoError(t, store.Save(ctx, "thread-c", s))
		}
		records, err := store.History(ctx, "thread-c")
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, model.StagePlanning, records[0].Stage)
		assert.Equal(t, model.StageExecuting, records[1].Stage)
		assert.Equal(t, model.StageEvaluating, records[2].Stage)
		assert.Equal(t, "turn-1", records[2].TurnID)
		assert.Equal(t, 1, records[2].Sources)
	})

	t.Run("threads are independent", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "thread-d", sampleState("thread-d")))
		e := sampleState("thread-e")
		e.OriginalQuestion = "Other question"
		require.NoError(t, store.Save(ctx, "thread-e", e))

		d, err := store.Load(ctx, "thread-d")
		require.NoError(t, err)
		assert.Equal(t, "How many genres are there?", d.OriginalQuestion)
	})

	t.Run("delete removes state and journal", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "thread-f", sampleState("thread-f")))
		require.NoError(t, store.Delete(ctx, "thread-f"))

		_, err := store.Load(ctx, "thread-f")
		assert.ErrorIs(t, err, errx.ErrThreadNotFound)
		records, err := store.History(ctx, "thread-f")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("history of unknown thread is empty", func(t *testing.T) {
		records, err := store.History(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func sampleState(threadID string) *model.SessionState {
	catalog := &model.Catalog{Databases: map[string]model.DatabaseInfo{
		"movies": {Tables: map[string]model.TableInfo{
			"genres": {RowCount: 28, Columns: []model.ColumnInfo{{Name: "genre_id", Type: "INTEGER", PrimaryKey: true}}},
		}},
	}}
	s := model.NewSessionState(threadID, 2)
	s.BeginTurn("turn-1", "How many genres are there?", catalog)
	s.IterationCount = 1
	s.ExecutionPlan = &model.ExecutionPlan{NeedsSQL: true, SQLQuery: "SELECT COUNT(*) FROM genres", SQLDatabase: "movies"}
	s.Stage = model.StageExecuting
	s.CurrentStep = model.StepPlanned
	s.AppendProvenance(model.Provenance{Type: model.SourceDatabase, Name: "movies", Details: "1 rows"})
	s.UpdatedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return s
}
