package observers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.ObserveTool(model.ToolSQL, 10*time.Millisecond, model.NewToolResult([]any{1}, 1))
	m.ObserveTool(model.ToolSQL, 10*time.Millisecond, model.FailedToolResult("boom"))
	m.ObserveTool(model.ToolWeb, time.Millisecond, model.NewToolResult([]any{}, 0))
	m.ObserveStage(model.StagePlanning, time.Millisecond, nil)
	m.ObserveTurn(2, nil)
	m.ObserveTurn(1, errors.New("x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("sql", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("sql", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("web", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.iterations))

	expected := `
# HELP albert_query_turns_total Completed turns by outcome.
# TYPE albert_query_turns_total counter
albert_query_turns_total{outcome="error"} 1
albert_query_turns_total{outcome="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "albert_query_turns_total"))
}

func TestMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStage(model.StageDone, time.Second, nil)
		m.ObserveTool(model.ToolOMDB, time.Second, model.ToolResult{})
		m.ObserveTurn(1, nil)
	})
}

func TestProgress(t *testing.T) {
	ReportProgress(context.Background(), model.ProgressEvent{Stage: model.StageDone})
	assert.Equal(t, context.Background(), WithProgress(context.Background(), nil))

	var got []model.ProgressEvent
	ctx := WithProgress(context.Background(), func(ev model.ProgressEvent) { got = append(got, ev) })
	ReportProgress(ctx, model.ProgressEvent{Stage: model.StageExecuting, Tool: model.ToolSQL})
	ReportProgress(ctx, model.ProgressEvent{Stage: model.StageEvaluating})

	require.Len(t, got, 2)
	assert.Equal(t, model.ToolSQL, got[0].Tool)
	assert.Equal(t, model.StageEvaluating, got[1].Stage)
}

func TestToolScope(t *testing.T) {
	assert.NotPanics(t, func() {
		ctx := ToolStart(context.Background(), model.ToolWeb, map[string]any{"query": "dune"})
		ToolEnd(ctx, model.NewToolResult([]any{"x"}, 1))
		ctx = ToolStart(context.Background(), model.ToolSQL, make(chan int))
		ToolEnd(ctx, model.FailedToolResult("boom"))
	})
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", clip("  abc "))
	long := strings.Repeat("x", maxLoggedContent+10)
	assert.Len(t, clip(long), maxLoggedContent+3)
}
